package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/e7canasta/orion-annotate/modules/pipeline"
	"github.com/e7canasta/orion-annotate/modules/progress"
)

const waitDrainInterval = 10 * time.Millisecond

// Status is what the control surface displays.
type Status struct {
	RunID  string
	Input  string
	Output string

	State     pipeline.State
	Fraction  float64
	Processed int64
	Total     int64 // 0 when unknown

	// Message is the human readable status line.
	Message string
	// Err is the failure cause once State is Failed.
	Err error
}

// Active reports whether a run is in progress.
func (s Status) Active() bool {
	return s.State == pipeline.StateRunning
}

type activeRun struct {
	run      *pipeline.Run
	events   *progress.Channel
	finished chan struct{}
}

// Controller owns the user-facing state and drives single-flight runs.
//
// Start spawns one worker goroutine per run and returns immediately. Tick
// never blocks: it drains the run's progress channel and folds the events
// into Status. The controller accepts a new Start once the Done event of
// the previous run was observed by Tick or Wait.
type Controller struct {
	runner   *pipeline.Runner
	capacity int
	logger   *slog.Logger

	mu      sync.Mutex
	current *activeRun
	status  Status
}

// Option configures a Controller.
type Option func(*Controller)

// WithCapacity sets the progress channel capacity (default progress.DefaultCapacity).
func WithCapacity(n int) Option {
	return func(c *Controller) { c.capacity = n }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates an idle controller.
func New(runner *pipeline.Runner, opts ...Option) (*Controller, error) {
	if runner == nil {
		return nil, fmt.Errorf("controller: runner is required")
	}
	c := &Controller{
		runner:   runner,
		capacity: progress.DefaultCapacity,
		logger:   slog.Default(),
		status:   Status{State: pipeline.StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.capacity < 1 {
		return nil, fmt.Errorf("controller: %w", progress.ErrInvalidCapacity)
	}
	return c, nil
}

// Start validates the paths and launches a run in the background.
//
// Returns a *ValidationError when a path is missing, the input does not
// exist or a run is already active. ctx bounds the run itself and is
// checked between frames, so it must outlive the call (do not pass a
// request-scoped context).
func (c *Controller) Start(ctx context.Context, input, output string) error {
	input = strings.TrimSpace(input)
	output = strings.TrimSpace(output)

	if input == "" {
		return &ValidationError{Field: "input", Err: ErrMissingInput}
	}
	if output == "" {
		return &ValidationError{Field: "output", Err: ErrMissingOutput}
	}
	if _, err := os.Stat(input); err != nil {
		return &ValidationError{Field: "input", Err: fmt.Errorf("%w: %s", ErrInputNotFound, input)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return &ValidationError{Field: "run", Err: fmt.Errorf("%w: %s", ErrRunActive, c.current.run.ID)}
	}

	events, err := progress.NewChannel(c.capacity)
	if err != nil {
		return err
	}
	a := &activeRun{
		run:      pipeline.NewRun(input, output),
		events:   events,
		finished: make(chan struct{}),
	}
	c.current = a
	c.status = Status{
		RunID:   a.run.ID,
		Input:   input,
		Output:  output,
		State:   pipeline.StateRunning,
		Message: processingMessage(0, 0, 0),
	}

	go func() {
		defer close(a.finished)
		c.runner.Execute(ctx, a.run, a.events)
	}()

	c.logger.Info("controller: run started", "run_id", a.run.ID, "input", input, "output", output)
	return nil
}

// Tick drains pending events without blocking and returns the current status.
func (c *Controller) Tick() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.absorb()
	return c.status
}

// Status returns the last computed status without draining events.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Wait blocks until the active run (if any) has finished and its Done
// event was absorbed, then returns the final status.
//
// Wait keeps draining the progress channel while it blocks, so a worker
// stuck on a full channel always reaches Done.
func (c *Controller) Wait(ctx context.Context) (Status, error) {
	ticker := time.NewTicker(waitDrainInterval)
	defer ticker.Stop()

	var finished <-chan struct{}
	for {
		c.mu.Lock()
		c.absorb()
		st, a := c.status, c.current
		c.mu.Unlock()

		if a == nil {
			return st, nil
		}
		if finished == nil {
			finished = a.finished
		}
		select {
		case <-finished:
			// Done is buffered by now; stop selecting on the closed channel.
			finished = make(chan struct{})
		case <-ticker.C:
		case <-ctx.Done():
			return c.Status(), ctx.Err()
		}
	}
}

// Run returns the active run, nil when idle.
func (c *Controller) Run() *pipeline.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.run
}

// absorb folds drained events into status. Caller holds c.mu.
func (c *Controller) absorb() {
	a := c.current
	if a == nil {
		return
	}

	u := a.events.Drain()
	if u.HasProgress {
		c.status.Fraction = u.Progress.Fraction
		c.status.Processed = u.Progress.Processed
		c.status.Total = u.Progress.Total
	} else if frames := a.run.Stats().Frames; frames > c.status.Processed {
		// Unknown length: no progress events, report frames only.
		c.status.Processed = frames
	}
	c.status.Message = processingMessage(c.status.Fraction, c.status.Processed, c.status.Total)

	if !u.HasDone {
		return
	}

	c.status.State = a.run.State()
	c.status.Err = u.Done.Err
	if u.Done.Succeeded() {
		c.status.Fraction = 1
		c.status.Message = "Done! Saved to " + a.run.Output
	} else {
		c.status.Message = "Error: " + u.Done.Err.Error()
	}
	c.current = nil

	c.logger.Info("controller: run finished",
		"run_id", a.run.ID,
		"state", c.status.State,
		"processed", c.status.Processed,
	)
}

func processingMessage(fraction float64, processed, total int64) string {
	if total <= 0 && processed > 0 {
		return fmt.Sprintf("Processing… %d frames", processed)
	}
	return fmt.Sprintf("Processing… %d%%", progress.Percent(fraction))
}
