package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen means the input or output could not be opened.
	ErrOpen = errors.New("pipeline: open failed")
	// ErrDecode means the source failed mid-stream.
	ErrDecode = errors.New("pipeline: decode failed")
	// ErrDetect means the detector failed (or could not be constructed).
	ErrDetect = errors.New("pipeline: detect failed")
	// ErrEncode means the sink refused a frame or could not be finalized.
	ErrEncode = errors.New("pipeline: encode failed")
	// ErrRunFinished is returned by Execute on a run that already left Idle.
	ErrRunFinished = errors.New("pipeline: run already executed")
)

// Stage identifies where in the per-frame loop a run failed.
type Stage string

const (
	StageOpen     Stage = "open"
	StageDecode   Stage = "decode"
	StageDetect   Stage = "detect"
	StageEncode   Stage = "encode"
	StageReport   Stage = "report"
	StageCanceled Stage = "canceled"
)

func (s Stage) sentinel() error {
	switch s {
	case StageOpen:
		return ErrOpen
	case StageDecode:
		return ErrDecode
	case StageDetect:
		return ErrDetect
	case StageEncode:
		return ErrEncode
	}
	return nil
}

// RunError describes why a run failed.
//
// errors.Is matches both the stage sentinel (ErrOpen, ErrDecode, ErrDetect,
// ErrEncode) and anything in the wrapped cause chain.
type RunError struct {
	Stage Stage
	// Frame is the zero-based index of the frame being processed, -1 when
	// the failure happened outside the frame loop.
	Frame int64
	Err   error
}

func (e *RunError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("pipeline: %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("pipeline: %s failed at frame %d: %v", e.Stage, e.Frame, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's stage.
func (e *RunError) Is(target error) bool {
	s := e.Stage.sentinel()
	return s != nil && target == s
}

func stageError(stage Stage, frame int64, err error) *RunError {
	return &RunError{Stage: stage, Frame: frame, Err: err}
}
