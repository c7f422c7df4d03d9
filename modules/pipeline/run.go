package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Completed or Failed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Run is one input to output processing pass.
//
// A Run is created Idle, moved to Running by Runner.Execute and ends in
// Completed or Failed. Terminal states are absorbing: a new pass needs a
// new Run. State and counters are safe to read from other goroutines while
// the worker executes.
type Run struct {
	ID     string
	Input  string
	Output string

	state atomic.Int32

	frames     atomic.Int64
	detections atomic.Int64
	total      atomic.Int64

	mu       sync.Mutex
	started  time.Time
	finished time.Time
	err      error
}

// NewRun creates an Idle run for the given paths.
func NewRun(input, output string) *Run {
	return &Run{
		ID:     uuid.NewString(),
		Input:  input,
		Output: output,
	}
}

// State returns the current state.
func (r *Run) State() State {
	return State(r.state.Load())
}

// Err returns the failure cause once the run is Failed.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// begin performs Idle -> Running.
func (r *Run) begin(now time.Time) bool {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return false
	}
	r.mu.Lock()
	r.started = now
	r.mu.Unlock()
	return true
}

// finish performs Running -> Completed or Running -> Failed.
func (r *Run) finish(now time.Time, err error) {
	next := StateCompleted
	if err != nil {
		next = StateFailed
	}
	r.mu.Lock()
	r.finished = now
	r.err = err
	r.mu.Unlock()
	r.state.CompareAndSwap(int32(StateRunning), int32(next))
}

// Stats contains run statistics
type Stats struct {
	ID         string
	State      State
	Frames     int64
	Total      int64 // 0 when the frame count is unknown
	Detections int64
	Elapsed    time.Duration
	FPS        float64 // frames processed per wall-clock second
}

// Stats returns a snapshot of the run statistics.
func (r *Run) Stats() Stats {
	r.mu.Lock()
	started, finished := r.started, r.finished
	r.mu.Unlock()

	s := Stats{
		ID:         r.ID,
		State:      r.State(),
		Frames:     r.frames.Load(),
		Total:      r.total.Load(),
		Detections: r.detections.Load(),
	}
	switch {
	case started.IsZero():
	case finished.IsZero():
		s.Elapsed = time.Since(started)
	default:
		s.Elapsed = finished.Sub(started)
	}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.FPS = float64(s.Frames) / secs
	}
	return s
}
