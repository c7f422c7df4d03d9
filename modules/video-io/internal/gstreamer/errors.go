package gstreamer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory represents the classification of GStreamer errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryResource indicates file access failures (missing, permission, disk full)
	ErrCategoryResource ErrorCategory = iota
	// ErrCategoryCodec indicates decoder/encoder failures
	ErrCategoryCodec
	// ErrCategoryFormat indicates container or caps negotiation failures
	ErrCategoryFormat
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryResource:
		return "resource"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryFormat:
		return "format"
	default:
		return "unknown"
	}
}

var (
	resourceKeywords = []string{
		"no such file",
		"permission denied",
		"could not open",
		"could not read",
		"could not write",
		"no space left",
		"read-only file system",
		"resource",
	}
	codecKeywords = []string{
		"codec",
		"decode",
		"encode",
		"no decoder",
		"missing plugin",
		"h264",
		"mpeg4",
		"jpeg",
	}
	formatKeywords = []string{
		"not negotiated",
		"not-negotiated",
		"negotiation",
		"caps",
		"demux",
		"type not found",
		"could not determine type",
		"stream doesn't contain enough data",
		"format",
	}
)

// Classify categorizes an error message and its debug string.
//
// Classification relies on string matching because go-gst's GError does not
// expose the error domain. Resource errors are checked first since they are
// the most specific.
func Classify(msg, debug string) ErrorCategory {
	combined := strings.ToLower(msg + " " + debug)
	switch {
	case containsAny(combined, resourceKeywords):
		return ErrCategoryResource
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	case containsAny(combined, formatKeywords):
		return ErrCategoryFormat
	default:
		return ErrCategoryUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// PipelineError is an error message posted on a pipeline bus.
type PipelineError struct {
	Message  string
	Debug    string
	Category ErrorCategory
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error [%s]: %s", e.Category, e.Message)
}

func newPipelineError(gerr *gst.GError) *PipelineError {
	if gerr == nil {
		return &PipelineError{Message: "unknown error", Category: ErrCategoryUnknown}
	}
	return &PipelineError{
		Message:  gerr.Error(),
		Debug:    gerr.DebugString(),
		Category: Classify(gerr.Error(), gerr.DebugString()),
	}
}

// pendingError drains queued bus messages without blocking and returns the
// first error found, or nil.
func pendingError(pipeline *gst.Pipeline, component string) error {
	bus := pipeline.GetPipelineBus()
	for {
		msg := bus.TimedPop(0)
		if msg == nil {
			return nil
		}
		if msg.Type() == gst.MessageError {
			perr := newPipelineError(msg.ParseError())
			slog.Error(component+": pipeline error",
				"error", perr.Message,
				"debug", perr.Debug,
				"category", perr.Category.String(),
			)
			return perr
		}
	}
}

// waitFor polls the bus until a message of the wanted type arrives, an error
// is posted, or the timeout expires.
func waitFor(pipeline *gst.Pipeline, component string, want gst.MessageType, timeout time.Duration) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		// Poll with short timeout for responsive error detection
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case want:
			return nil

		case gst.MessageError:
			perr := newPipelineError(msg.ParseError())
			slog.Error(component+": pipeline error",
				"error", perr.Message,
				"debug", perr.Debug,
				"category", perr.Category.String(),
			)
			return perr

		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				from, to := msg.ParseStateChanged()
				slog.Debug(component+": pipeline state changed", "from", from, "to", to)
			}
		}
	}

	return fmt.Errorf("timeout after %v waiting for %v", timeout, want)
}
