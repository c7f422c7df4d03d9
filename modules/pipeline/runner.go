package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/e7canasta/orion-annotate/modules/annotator"
	"github.com/e7canasta/orion-annotate/modules/detector"
	"github.com/e7canasta/orion-annotate/modules/progress"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// SourceOpener opens the input video.
type SourceOpener func(ctx context.Context, path string) (videoio.FrameSource, error)

// SinkCreator creates the output video with the input's resolution and rate.
type SinkCreator func(path string, desc videoio.StreamDescriptor) (videoio.FrameSink, error)

// DetectorFactory builds the detector owned by one run.
// If the returned detector implements io.Closer it is closed when the run ends.
type DetectorFactory func() (detector.Detector, error)

// Timing holds per-stage latencies for one frame.
type Timing struct {
	Decode   time.Duration
	Detect   time.Duration
	Annotate time.Duration
	Encode   time.Duration
}

// Total returns the sum of all stages.
func (t Timing) Total() time.Duration {
	return t.Decode + t.Detect + t.Annotate + t.Encode
}

// Observer receives per-frame and per-run notifications from the worker.
//
// Observers run synchronously on the worker goroutine after the frame has
// been written; the frame must not be retained or mutated after return.
type Observer interface {
	RunStarted(run *Run)
	FrameProcessed(run *Run, frame *videoio.Frame, boxes []detector.BoundingBox, timing Timing)
	RunFinished(run *Run, err error)
}

// Config configures a Runner.
type Config struct {
	OpenSource  SourceOpener
	CreateSink  SinkCreator
	NewDetector DetectorFactory

	// Annotator draws boxes; nil uses annotator.DefaultStyle.
	Annotator *annotator.Annotator

	Observers []Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner executes runs: decode, detect, annotate, encode for every frame.
type Runner struct {
	cfg       Config
	annotator *annotator.Annotator
	logger    *slog.Logger
}

// NewRunner creates a runner with fail-fast validation
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.OpenSource == nil {
		return nil, fmt.Errorf("pipeline: source opener is required")
	}
	if cfg.CreateSink == nil {
		return nil, fmt.Errorf("pipeline: sink creator is required")
	}
	if cfg.NewDetector == nil {
		return nil, fmt.Errorf("pipeline: detector factory is required")
	}

	ann := cfg.Annotator
	if ann == nil {
		var err error
		if ann, err = annotator.New(annotator.DefaultStyle()); err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{cfg: cfg, annotator: ann, logger: logger}, nil
}

// Execute runs r to completion on the calling goroutine.
//
// Every call on an Idle run ends with exactly one Done event on events,
// sent after the run reached its terminal state. Done is delivered even if
// ctx was cancelled. Progress events precede it, in non-decreasing order,
// and are only emitted when the frame count is known, plus one final
// Progress(1) after a non-empty stream.
//
// ctx is checked between frames; cancellation fails the run with an error
// wrapping ctx.Err(). Returns ErrRunFinished (without sending anything) if
// run is not Idle, otherwise the run error, nil on success.
func (r *Runner) Execute(ctx context.Context, run *Run, events progress.Sender) error {
	if !run.begin(time.Now()) {
		return fmt.Errorf("%w: %s is %s", ErrRunFinished, run.ID, run.State())
	}

	logger := r.logger.With("run_id", run.ID)
	logger.Info("pipeline: run started", "input", run.Input, "output", run.Output)
	for _, obs := range r.cfg.Observers {
		obs.RunStarted(run)
	}

	runErr := r.process(ctx, run, events, logger)
	run.finish(time.Now(), runErr)

	for _, obs := range r.cfg.Observers {
		obs.RunFinished(run, runErr)
	}

	stats := run.Stats()
	if runErr != nil {
		logger.Error("pipeline: run failed",
			"error", runErr,
			"frames", stats.Frames,
			"elapsed", stats.Elapsed,
		)
	} else {
		logger.Info("pipeline: run completed",
			"frames", stats.Frames,
			"detections", stats.Detections,
			"elapsed", stats.Elapsed,
			"fps", fmt.Sprintf("%.2f", stats.FPS),
		)
	}

	if err := events.Send(context.WithoutCancel(ctx), progress.Done(runErr)); err != nil {
		logger.Warn("pipeline: done event not delivered", "error", err)
	}
	return runErr
}

func (r *Runner) process(ctx context.Context, run *Run, events progress.Sender, logger *slog.Logger) error {
	det, err := r.cfg.NewDetector()
	if err != nil {
		return stageError(StageDetect, -1, err)
	}
	if c, ok := det.(io.Closer); ok {
		defer c.Close()
	}

	src, err := r.cfg.OpenSource(ctx, run.Input)
	if err != nil {
		return stageError(StageOpen, -1, err)
	}
	defer src.Close()

	desc := src.Descriptor()
	total := desc.FrameCount
	if total < 0 {
		total = 0
	}
	run.total.Store(total)

	sink, err := r.cfg.CreateSink(run.Output, desc)
	if err != nil {
		return stageError(StageOpen, -1, err)
	}
	sinkClosed := false
	defer func() {
		if !sinkClosed {
			// Partial output is left on disk.
			if err := sink.Close(); err != nil {
				logger.Warn("pipeline: closing partial output failed", "error", err)
			}
		}
	}()

	logger.Info("pipeline: streams opened",
		"resolution", desc.Resolution(),
		"fps", desc.FPS,
		"frame_count", total,
	)

	var (
		processed    int64
		lastFraction float64
	)
	for {
		if err := ctx.Err(); err != nil {
			return stageError(StageCanceled, processed, err)
		}

		var timing Timing
		t0 := time.Now()
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isContextErr(err) {
				return stageError(StageCanceled, processed, err)
			}
			return stageError(StageDecode, processed, err)
		}
		timing.Decode = time.Since(t0)

		t0 = time.Now()
		boxes, err := det.Detect(&frame)
		if err != nil {
			return stageError(StageDetect, processed, err)
		}
		timing.Detect = time.Since(t0)

		t0 = time.Now()
		r.annotator.Draw(&frame, boxes)
		timing.Annotate = time.Since(t0)

		t0 = time.Now()
		if err := sink.Write(ctx, &frame); err != nil {
			if isContextErr(err) {
				return stageError(StageCanceled, processed, err)
			}
			return stageError(StageEncode, processed, err)
		}
		timing.Encode = time.Since(t0)

		processed++
		run.frames.Store(processed)
		run.detections.Add(int64(len(boxes)))

		for _, obs := range r.cfg.Observers {
			obs.FrameProcessed(run, &frame, boxes, timing)
		}

		if total > 0 {
			ev := progress.Progress(processed, total)
			if err := events.Send(ctx, ev); err != nil {
				return reportError(processed, err)
			}
			lastFraction = ev.Fraction
		}

		logger.Debug("pipeline: frame processed",
			"seq", frame.Seq,
			"boxes", len(boxes),
			"latency", timing.Total(),
		)
	}

	sinkClosed = true
	if err := sink.Close(); err != nil {
		return stageError(StageEncode, -1, err)
	}

	if processed > 0 && lastFraction < 1 {
		if err := events.Send(ctx, progress.Complete(processed)); err != nil {
			return reportError(processed, err)
		}
	}
	return nil
}

func reportError(frame int64, err error) *RunError {
	if isContextErr(err) {
		return stageError(StageCanceled, frame, err)
	}
	return stageError(StageReport, frame, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
