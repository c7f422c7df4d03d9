package videoio

import (
	"fmt"
	"time"
)

// BytesPerPixel is the channel depth of every Frame (packed RGB24).
const BytesPerPixel = 3

// Frame represents a single decoded video frame with metadata
type Frame struct {
	// Seq is the 1-based decode order of the frame within its stream
	Seq uint64
	// PTS is the presentation timestamp relative to stream start
	PTS time.Duration
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains packed RGB pixels, row stride = Width*BytesPerPixel
	Data []byte
	// TraceID is a unique identifier for log correlation
	TraceID string
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return f.Width * BytesPerPixel
}

// Validate reports whether Data matches the frame dimensions.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("video-io: invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * BytesPerPixel; len(f.Data) != want {
		return fmt.Errorf("video-io: invalid RGB data size: got %d, expected %d", len(f.Data), want)
	}
	return nil
}

// StreamDescriptor is captured once when a stream is opened and never changes.
type StreamDescriptor struct {
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// FPS is the nominal frame rate (frames per second)
	FPS float64
	// FrameCount is the total number of frames; <= 0 means unknown
	FrameCount int64
	// Codec is a human-readable description of the input codec, when known
	Codec string
}

// KnownLength reports whether FrameCount can be used as a progress denominator.
func (d StreamDescriptor) KnownLength() bool {
	return d.FrameCount > 0
}

// Resolution returns the descriptor size as "WxH".
func (d StreamDescriptor) Resolution() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// FrameDuration returns the duration of a single frame at the nominal rate.
// Returns 0 when the rate is unknown.
func (d StreamDescriptor) FrameDuration() time.Duration {
	if d.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / d.FPS)
}

// SinkConfig contains configuration for output video encoding
type SinkConfig struct {
	// Fourcc is the four-character codec identifier (e.g., "mp4v", "avc1", "mjpg")
	Fourcc string
	// Bitrate in kbit/s for encoders that support it (0 = encoder default)
	Bitrate int
}

// DefaultFourcc is the output codec used when SinkConfig.Fourcc is empty.
const DefaultFourcc = "mp4v"
