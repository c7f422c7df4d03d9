package emitter

import (
	"context"
	"log/slog"

	"github.com/e7canasta/orion-annotate/modules/controller"
	"github.com/e7canasta/orion-annotate/modules/progress"
)

// StatusPublisher publishes one status.
type StatusPublisher interface {
	PublishStatus(st controller.Status) error
}

// Reporter forwards controller ticks to a publisher on its own goroutine,
// skipping ticks that do not change the run, state, message or whole
// percentage.
//
// Offer never blocks: when the publisher is slower than the tick loop only
// the newest pending status is kept.
type Reporter struct {
	pub     StatusPublisher
	pending chan controller.Status

	last    controller.Status
	hasLast bool
}

// NewReporter creates a reporter over pub.
func NewReporter(pub StatusPublisher) *Reporter {
	return &Reporter{pub: pub, pending: make(chan controller.Status, 1)}
}

// Offer queues st for publishing, replacing an unpublished older status.
// Must be called from a single goroutine.
func (r *Reporter) Offer(st controller.Status) {
	for {
		select {
		case r.pending <- st:
			return
		default:
		}
		select {
		case <-r.pending:
		default:
		}
	}
}

// Run publishes offered statuses until ctx is cancelled, then flushes the
// last pending one.
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case st := <-r.pending:
			r.Observe(st)
		case <-ctx.Done():
			select {
			case st := <-r.pending:
				r.Observe(st)
			default:
			}
			return
		}
	}
}

// Observe publishes st synchronously if it differs from the last published
// status. Publish errors are logged, not returned.
func (r *Reporter) Observe(st controller.Status) bool {
	if r.hasLast && !changed(r.last, st) {
		return false
	}
	if err := r.pub.PublishStatus(st); err != nil {
		slog.Warn("emitter: status not published", "error", err, "run_id", st.RunID)
		return false
	}
	r.last = st
	r.hasLast = true
	return true
}

func changed(a, b controller.Status) bool {
	return a.RunID != b.RunID ||
		a.State != b.State ||
		a.Message != b.Message ||
		progress.Percent(a.Fraction) != progress.Percent(b.Fraction)
}
