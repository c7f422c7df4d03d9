package gstreamer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// SinkConfig contains configuration for encode pipeline creation
type SinkConfig struct {
	Path    string
	Width   int
	Height  int
	FPSNum  int
	FPSDen  int
	Fourcc  string
	Bitrate int
}

// Sink encodes packed RGB frames into a video file.
//
// Pipeline structure:
//
//	appsrc → videoconvert → encoder(fourcc) → muxer(extension) → filesink
//
// The pipeline is built at construction but only started on the first push,
// so an unwritable output is reported as a write failure.
type Sink struct {
	cfg      SinkConfig
	pipeline *gst.Pipeline
	src      *app.Source
	started  bool
	frameDur time.Duration
	pushed   uint64
}

// BuildSinkPipeline returns the gst-launch description of the encode pipeline.
func BuildSinkPipeline(cfg SinkConfig) (string, error) {
	encoder, err := EncoderFor(cfg.Fourcc, cfg.Bitrate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"appsrc name=src format=time block=true ! videoconvert ! %s ! %s ! filesink name=out",
		encoder, MuxerFor(cfg.Path),
	), nil
}

// NewSink creates the encode pipeline. The pipeline stays in NULL state.
func NewSink(cfg SinkConfig) (*Sink, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	desc, err := BuildSinkPipeline(cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create encode pipeline: %w", err)
	}

	srcElem, err := pipeline.GetElementByName("src")
	if err != nil {
		return nil, fmt.Errorf("failed to get appsrc: %w", err)
	}
	filesink, err := pipeline.GetElementByName("out")
	if err != nil {
		return nil, fmt.Errorf("failed to get filesink: %w", err)
	}
	filesink.SetProperty("location", cfg.Path)

	src := app.SrcFromElement(srcElem)
	capsStr := fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/%d",
		cfg.Width, cfg.Height, cfg.FPSNum, cfg.FPSDen,
	)
	src.SetCaps(gst.NewCapsFromString(capsStr))

	var frameDur time.Duration
	if cfg.FPSNum > 0 {
		frameDur = time.Duration(int64(time.Second) * int64(cfg.FPSDen) / int64(cfg.FPSNum))
	}

	slog.Debug("video-io: encode pipeline created",
		"path", cfg.Path,
		"pipeline", desc,
		"caps", capsStr,
	)

	return &Sink{
		cfg:      cfg,
		pipeline: pipeline,
		src:      src,
		frameDur: frameDur,
	}, nil
}

// Push timestamps and pushes one packed RGB frame.
//
// The first push starts the pipeline (opening the output file). Returns a
// *PipelineError when the bus carries an error.
func (s *Sink) Push(data []byte) error {
	if !s.started {
		if err := s.pipeline.SetState(gst.StatePlaying); err != nil {
			if perr := pendingError(s.pipeline, "video-io"); perr != nil {
				return perr
			}
			return fmt.Errorf("failed to start encode pipeline: %w", err)
		}
		s.started = true
	}

	buffer := gst.NewBufferFromBytes(data)
	buffer.SetPresentationTimestamp(time.Duration(s.pushed) * s.frameDur)
	buffer.SetDuration(s.frameDur)

	if ret := s.src.PushBuffer(buffer); ret != gst.FlowOK {
		if perr := pendingError(s.pipeline, "video-io"); perr != nil {
			return perr
		}
		return fmt.Errorf("appsrc refused buffer: %v", ret)
	}
	s.pushed++

	return pendingError(s.pipeline, "video-io")
}

// Finish signals end-of-stream, waits for the muxer to finalize the
// container, and releases the pipeline.
func (s *Sink) Finish(timeout time.Duration) error {
	if s.pipeline == nil {
		return nil
	}
	defer func() {
		s.pipeline.SetState(gst.StateNull)
		s.pipeline = nil
	}()

	if !s.started {
		return nil
	}

	if ret := s.src.EndStream(); ret != gst.FlowOK {
		return fmt.Errorf("failed to send end of stream: %v", ret)
	}
	if err := waitFor(s.pipeline, "video-io", gst.MessageEOS, timeout); err != nil {
		return fmt.Errorf("finalize failed: %w", err)
	}

	slog.Debug("video-io: encode pipeline finalized",
		"path", s.cfg.Path,
		"frames", s.pushed,
	)
	return nil
}

// Pushed returns the number of buffers accepted by appsrc.
func (s *Sink) Pushed() uint64 {
	return s.pushed
}

// Available reports whether GStreamer and the elements needed for fourcc
// are installed.
func Available(fourcc string) error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)

	if fourcc == "" {
		return nil
	}
	encoder, err := EncoderFor(fourcc, 0)
	if err != nil {
		return err
	}
	factory := strings.Fields(encoder)[0]
	enc, err := gst.NewElement(factory)
	if err != nil {
		return fmt.Errorf("encoder %s not available: %w", factory, err)
	}
	enc.SetState(gst.StateNull)
	return nil
}
