package videoio

import "context"

// FrameSource defines the contract for sequential video decoding
//
// Implementations must guarantee:
//   - Frames are returned in strict decode order (no skips, no duplicates)
//   - Next() returns io.EOF exactly when the stream ended without error
//   - Descriptor() is immutable after open
//   - Close() is idempotent
//
// A FrameSource is owned by a single goroutine; it is not safe for
// concurrent use.
type FrameSource interface {
	// Descriptor returns the stream metadata captured at open time.
	Descriptor() StreamDescriptor

	// Next blocks until the next frame is decoded.
	//
	// Returns io.EOF at end of stream, or an error wrapping ErrDecode when
	// the decoder fails. The returned frame is owned by the caller.
	Next(ctx context.Context) (Frame, error)

	// Close releases decoder resources.
	Close() error
}

// FrameSink defines the contract for sequential video encoding
//
// Frames must be written in display order; implementations are not safe for
// out-of-order or concurrent writes.
type FrameSink interface {
	// Write encodes a single frame.
	//
	// Returns an error wrapping ErrEncode if the frame cannot be written.
	// The sink does not retain the frame after Write returns.
	Write(ctx context.Context, frame *Frame) error

	// Close flushes pending data and finalizes the container.
	//
	// Returns an error wrapping ErrEncode if the container cannot be
	// finalized. Safe to call multiple times.
	Close() error
}
