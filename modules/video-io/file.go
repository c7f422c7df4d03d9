package videoio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-annotate/modules/video-io/internal/gstreamer"
	"github.com/google/uuid"
)

const (
	// DefaultPrerollTimeout bounds how long OpenFile waits for caps negotiation.
	DefaultPrerollTimeout = 10 * time.Second
	// finalizeTimeout bounds how long FileSink.Close waits for the muxer.
	finalizeTimeout = 10 * time.Second
	// fallbackFPS is used for output timestamps when the input rate is unknown.
	fallbackFPS = 25.0
)

var (
	_ FrameSource = (*FileSource)(nil)
	_ FrameSink   = (*FileSink)(nil)
)

// FileSource implements FrameSource for local video files using GStreamer
type FileSource struct {
	path   string
	src    *gstreamer.Source
	desc   StreamDescriptor
	closed atomic.Bool

	// Statistics (atomic for thread-safety)
	framesRead atomic.Uint64
	bytesRead  atomic.Uint64
}

// OpenFile opens a video file for sequential decoding with fail-fast validation
//
// Validates before touching GStreamer:
//   - path must not be empty
//   - path must exist and be a regular file
//
// Returns an error wrapping ErrOpen if validation fails or the container/codec
// cannot be decoded. The preroll wait honours ctx's deadline when it is
// shorter than DefaultPrerollTimeout.
func OpenFile(ctx context.Context, path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrOpen)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrOpen, path)
	}

	if err := gstreamer.Available(""); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	timeout := DefaultPrerollTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	src, err := gstreamer.OpenSource(path, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}

	si := src.Info()
	desc := StreamDescriptor{
		Width:      si.Caps.Width,
		Height:     si.Caps.Height,
		FPS:        si.Caps.FPS(),
		FrameCount: si.FrameCount(),
	}

	slog.Info("video-io: input opened",
		"path", path,
		"resolution", desc.Resolution(),
		"fps", desc.FPS,
		"frame_count", desc.FrameCount,
	)

	return &FileSource{path: path, src: src, desc: desc}, nil
}

// Descriptor returns the stream metadata captured at open time.
func (s *FileSource) Descriptor() StreamDescriptor {
	return s.desc
}

// Next blocks until the next frame is decoded.
//
// Returns io.EOF at end of stream, or an error wrapping ErrDecode.
// Cancellation of ctx is returned as ctx.Err().
func (s *FileSource) Next(ctx context.Context) (Frame, error) {
	if s.closed.Load() {
		return Frame{}, ErrClosed
	}

	data, err := s.src.Pull(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Frame{}, err
		}
		return Frame{}, fmt.Errorf("%w: frame %d: %v", ErrDecode, s.framesRead.Load()+1, err)
	}

	seq := s.framesRead.Add(1)
	s.bytesRead.Add(uint64(len(data)))

	return Frame{
		Seq:     seq,
		PTS:     time.Duration(seq-1) * s.desc.FrameDuration(),
		Width:   s.desc.Width,
		Height:  s.desc.Height,
		Data:    data,
		TraceID: uuid.New().String(),
	}, nil
}

// Stats returns the number of frames and bytes decoded so far.
func (s *FileSource) Stats() (frames, bytes uint64) {
	return s.framesRead.Load(), s.bytesRead.Load()
}

// Close releases the decode pipeline. Safe to call multiple times.
func (s *FileSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.src.Close()
}

// FileSink implements FrameSink for local video files using GStreamer
type FileSink struct {
	path   string
	desc   StreamDescriptor
	sink   *gstreamer.Sink
	closed atomic.Bool

	framesWritten atomic.Uint64
}

// CreateFile prepares an output video with the same resolution and frame
// rate as desc, encoded with cfg.Fourcc.
//
// Returns an error wrapping ErrOpen if:
//   - path is empty or its parent directory does not exist
//   - desc has no valid dimensions
//   - the fourcc is not supported or its encoder is not installed
//
// The file itself is created on the first Write, so permission failures on
// an existing directory surface as ErrEncode.
func CreateFile(path string, desc StreamDescriptor, cfg SinkConfig) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrOpen)
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: output directory: %v", ErrOpen, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrOpen, dir)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid output dimensions %s", ErrOpen, desc.Resolution())
	}

	fourcc := cfg.Fourcc
	if fourcc == "" {
		fourcc = DefaultFourcc
	}
	if err := gstreamer.Available(fourcc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	fps := desc.FPS
	if fps <= 0 {
		slog.Warn("video-io: input frame rate unknown, using fallback for output timestamps",
			"fallback_fps", fallbackFPS,
		)
		fps = fallbackFPS
	}
	num, den := gstreamer.FramerateFraction(fps)

	sink, err := gstreamer.NewSink(gstreamer.SinkConfig{
		Path:    path,
		Width:   desc.Width,
		Height:  desc.Height,
		FPSNum:  num,
		FPSDen:  den,
		Fourcc:  fourcc,
		Bitrate: cfg.Bitrate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	slog.Info("video-io: output prepared",
		"path", path,
		"resolution", desc.Resolution(),
		"framerate", fmt.Sprintf("%d/%d", num, den),
		"fourcc", fourcc,
	)

	return &FileSink{path: path, desc: desc, sink: sink}, nil
}

// Write encodes a single frame. The frame must match the output dimensions.
func (s *FileSink) Write(ctx context.Context, frame *Frame) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if frame.Width != s.desc.Width || frame.Height != s.desc.Height {
		return fmt.Errorf("%w: frame %d is %dx%d, output is %s",
			ErrEncode, frame.Seq, frame.Width, frame.Height, s.desc.Resolution())
	}
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := s.sink.Push(frame.Data); err != nil {
		return fmt.Errorf("%w: frame %d: %v", ErrEncode, frame.Seq, err)
	}
	s.framesWritten.Add(1)
	return nil
}

// FramesWritten returns the number of frames accepted by the encoder.
func (s *FileSink) FramesWritten() uint64 {
	return s.framesWritten.Load()
}

// Close flushes the encoder and finalizes the container.
// Safe to call multiple times.
func (s *FileSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.sink.Finish(finalizeTimeout); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, s.path, err)
	}
	slog.Info("video-io: output finalized",
		"path", s.path,
		"frames", s.framesWritten.Load(),
	)
	return nil
}
