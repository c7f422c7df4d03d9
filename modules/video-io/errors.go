package videoio

import "errors"

var (
	// ErrOpen is returned when an input cannot be read or an output cannot be created.
	ErrOpen = errors.New("video-io: open failed")
	// ErrDecode is returned when a frame cannot be decoded mid-stream.
	ErrDecode = errors.New("video-io: decode failed")
	// ErrEncode is returned when a frame cannot be written to the output stream.
	ErrEncode = errors.New("video-io: encode failed")
	// ErrClosed is returned by operations on a closed source or sink.
	ErrClosed = errors.New("video-io: closed")
)
