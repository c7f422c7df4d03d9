package progress

import (
	"fmt"
	"math"
	"time"
)

// Kind discriminates the Event variants.
type Kind int

const (
	// KindProgress carries a completion fraction
	KindProgress Kind = iota
	// KindDone is the terminal event of a run
	KindDone
)

// String returns a human-readable name of the kind
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is a tagged union of Progress and Done.
//
// Fraction, Processed and Total are meaningful for KindProgress; Err is
// meaningful for KindDone (nil means success).
type Event struct {
	Kind      Kind
	Fraction  float64
	Processed int64
	Total     int64
	Err       error
	At        time.Time
}

// Progress builds a progress event for processed out of total frames.
// The fraction is clamped to [0, 1]; a non-positive total yields 0.
func Progress(processed, total int64) Event {
	var fraction float64
	if total > 0 {
		fraction = float64(processed) / float64(total)
	}
	return Event{
		Kind:      KindProgress,
		Fraction:  clamp01(fraction),
		Processed: processed,
		Total:     total,
		At:        time.Now(),
	}
}

// Complete builds a Progress(1) event after processed frames.
func Complete(processed int64) Event {
	return Event{
		Kind:      KindProgress,
		Fraction:  1,
		Processed: processed,
		Total:     processed,
		At:        time.Now(),
	}
}

// Done builds the terminal event. err == nil means success.
func Done(err error) Event {
	return Event{Kind: KindDone, Err: err, At: time.Now()}
}

// IsDone reports whether e is the terminal event.
func (e Event) IsDone() bool {
	return e.Kind == KindDone
}

// Succeeded reports whether e is a successful Done.
func (e Event) Succeeded() bool {
	return e.Kind == KindDone && e.Err == nil
}

// Percent returns the fraction as an integer percentage.
func (e Event) Percent() int {
	return Percent(e.Fraction)
}

// Percent converts a fraction to a whole percentage, rounding down.
// The epsilon keeps 0.29 at 29 despite binary representation.
func Percent(fraction float64) int {
	return int(math.Floor(fraction*100 + 1e-9))
}

// String returns a short description, e.g. "progress 42% (420/1000)".
func (e Event) String() string {
	switch e.Kind {
	case KindProgress:
		return fmt.Sprintf("progress %d%% (%d/%d)", e.Percent(), e.Processed, e.Total)
	case KindDone:
		if e.Err != nil {
			return fmt.Sprintf("done: failed: %v", e.Err)
		}
		return "done: success"
	default:
		return "unknown event"
	}
}

func (e Event) validate() error {
	switch e.Kind {
	case KindProgress:
		if math.IsNaN(e.Fraction) || e.Fraction < 0 || e.Fraction > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidFraction, e.Fraction)
		}
	case KindDone:
	default:
		return fmt.Errorf("progress: unknown event kind %d", e.Kind)
	}
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
