package gstreamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pullInterval bounds each appsink pull so bus errors and cancellation are
// noticed while the decoder is stalled.
const pullInterval = 100 * time.Millisecond

// SourceInfo is the stream metadata negotiated during preroll.
type SourceInfo struct {
	Caps     VideoCaps
	Duration time.Duration // 0 when the container does not report it
}

// FrameCount estimates the number of frames from duration and framerate.
// Returns 0 when either is unknown.
func (i SourceInfo) FrameCount() int64 {
	fps := i.Caps.FPS()
	if i.Duration <= 0 || fps <= 0 {
		return 0
	}
	return int64(math.Round(i.Duration.Seconds() * fps))
}

// Source decodes a video file into packed RGB frames.
//
// Pipeline structure:
//
//	filesrc → decodebin → videoconvert → capsfilter(RGB) → appsink
//
// The appsink does not drop buffers: decoding blocks until the caller pulls,
// so frames are delivered in decode order without loss.
type Source struct {
	path     string
	pipeline *gst.Pipeline
	sink     *app.Sink
	info     SourceInfo
}

// OpenSource builds the decode pipeline, prerolls it to PAUSED to negotiate
// caps, and then sets it to PLAYING.
//
// Returns an error if the pipeline cannot be built, the file cannot be
// demuxed/decoded, or preroll does not complete within timeout.
func OpenSource(path string, timeout time.Duration) (*Source, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipelineFromString(
		"filesrc name=src ! decodebin ! videoconvert ! video/x-raw,format=RGB ! " +
			"appsink name=sink sync=false max-buffers=4 drop=false",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode pipeline: %w", err)
	}

	filesrc, err := pipeline.GetElementByName("src")
	if err != nil {
		return nil, fmt.Errorf("failed to get filesrc: %w", err)
	}
	filesrc.SetProperty("location", path)

	sinkElem, err := pipeline.GetElementByName("sink")
	if err != nil {
		return nil, fmt.Errorf("failed to get appsink: %w", err)
	}

	s := &Source{
		path:     path,
		pipeline: pipeline,
		sink:     app.SinkFromElement(sinkElem),
	}

	// PAUSED triggers demux and caps negotiation without consuming frames
	if err := pipeline.SetState(gst.StatePaused); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to pause pipeline: %w", err)
	}
	if err := waitFor(pipeline, "video-io", gst.MessageAsyncDone, timeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("preroll failed: %w", err)
	}

	info, err := s.negotiated()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.info = info

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start pipeline: %w", err)
	}

	slog.Debug("video-io: decode pipeline prerolled",
		"path", path,
		"resolution", fmt.Sprintf("%dx%d", info.Caps.Width, info.Caps.Height),
		"framerate", fmt.Sprintf("%d/%d", info.Caps.FPSNum, info.Caps.FPSDen),
		"duration", info.Duration,
	)

	return s, nil
}

// negotiated reads the caps on the appsink pad and queries the duration.
func (s *Source) negotiated() (SourceInfo, error) {
	pad := s.sink.GetStaticPad("sink")
	if pad == nil {
		return SourceInfo{}, fmt.Errorf("failed to get appsink pad")
	}
	caps := pad.GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		return SourceInfo{}, fmt.Errorf("no caps negotiated on appsink")
	}

	vc, err := ParseVideoCaps(caps.String())
	if err != nil {
		return SourceInfo{}, err
	}

	// Framerate is a Gst.Fraction; the caps string is authoritative but
	// the structure value is used when the string carried none.
	if vc.FPSNum == 0 {
		if val, err := caps.GetStructureAt(0).GetValue("framerate"); err == nil {
			if num, den, ok := ParseFraction(fmt.Sprintf("%v", val)); ok {
				vc.FPSNum, vc.FPSDen = num, den
			}
		}
	}

	info := SourceInfo{Caps: vc}
	if ok, dur := s.pipeline.QueryDuration(gst.FormatTime); ok && dur > 0 {
		info.Duration = time.Duration(dur)
	}
	return info, nil
}

// Info returns the metadata negotiated at open time.
func (s *Source) Info() SourceInfo {
	return s.info
}

// Pull blocks until the next frame is available and returns its packed RGB
// pixels (copied; GStreamer reuses the buffer).
//
// Returns io.EOF at end of stream, a *PipelineError when the bus carries an
// error, or ctx.Err() when ctx is cancelled.
func (s *Source) Pull(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sample := s.sink.TryPullSample(pullInterval)
		if sample == nil {
			if err := pendingError(s.pipeline, "video-io"); err != nil {
				return nil, err
			}
			if s.sink.IsEOS() {
				return nil, io.EOF
			}
			continue
		}

		buffer := sample.GetBuffer()
		if buffer == nil {
			return nil, errors.New("sample carries no buffer")
		}

		mapInfo := buffer.Map(gst.MapRead)
		data := mapInfo.Bytes()
		if len(data) == 0 {
			buffer.Unmap()
			return nil, errors.New("empty buffer received")
		}

		// Copy frame data (GStreamer will reuse buffer)
		frameData := make([]byte, len(data))
		copy(frameData, data)
		buffer.Unmap()

		return PackedRGB(frameData, s.info.Caps.Width, s.info.Caps.Height)
	}
}

// Close sets the pipeline to NULL and releases resources.
// Safe to call multiple times.
func (s *Source) Close() error {
	if s.pipeline == nil {
		return nil
	}
	err := s.pipeline.SetState(gst.StateNull)
	s.pipeline = nil
	if err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}
