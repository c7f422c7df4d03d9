package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the number of events buffered before Send blocks.
const DefaultCapacity = 10

var (
	// ErrClosed is returned by Send after the Done event was sent.
	ErrClosed = errors.New("progress: channel closed after done")
	// ErrInvalidFraction is returned for NaN or out-of-range fractions.
	ErrInvalidFraction = errors.New("progress: fraction outside [0, 1]")
	// ErrNotMonotonic is returned when a fraction is lower than a previous one.
	ErrNotMonotonic = errors.New("progress: fraction decreased")
	// ErrInvalidCapacity is returned by NewChannel for capacity < 1.
	ErrInvalidCapacity = errors.New("progress: capacity must be >= 1")
)

// Sender is the producer side of a progress channel.
type Sender interface {
	// Send delivers ev, blocking while the buffer is full.
	Send(ctx context.Context, ev Event) error
}

// Update is the result of one non-blocking Drain.
type Update struct {
	// Progress is the latest progress event drained, valid if HasProgress
	Progress    Event
	HasProgress bool
	// Done is the terminal event, valid if HasDone
	Done    Event
	HasDone bool
	// Consumed is the number of events taken from the buffer
	Consumed int
}

// Stats contains channel statistics
type Stats struct {
	Capacity  int
	Pending   int
	Sent      uint64
	Drained   uint64
	Coalesced uint64
	Closed    bool
}

// Channel is a bounded, ordered, single-producer progress channel.
//
// Guarantees:
//   - Send blocks when Capacity events are pending (back-pressure, no loss)
//   - Progress fractions are validated to be in [0, 1] and non-decreasing
//   - Exactly one Done may be sent; it is always the last event
//   - Drain never blocks and never drops Done; intermediate progress
//     events drained together are coalesced to the latest one
type Channel struct {
	ch chan Event

	mu           sync.Mutex // serializes producers; held while blocked on a full buffer
	lastFraction float64
	done         atomic.Bool

	sent      atomic.Uint64
	drained   atomic.Uint64
	coalesced atomic.Uint64
}

var _ Sender = (*Channel)(nil)

// NewChannel creates a channel buffering capacity events.
func NewChannel(capacity int) (*Channel, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Channel{ch: make(chan Event, capacity)}, nil
}

// Send delivers ev in order.
//
// Blocks while the buffer is full. Returns ctx.Err() if ctx is cancelled
// before the event is buffered (the event is then not delivered and a Done
// may be retried). Returns ErrClosed once Done was delivered.
func (c *Channel) Send(ctx context.Context, ev Event) error {
	if err := ev.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done.Load() {
		return ErrClosed
	}
	if ev.Kind == KindProgress && ev.Fraction < c.lastFraction {
		return fmt.Errorf("%w: %.4f after %.4f", ErrNotMonotonic, ev.Fraction, c.lastFraction)
	}

	select {
	case c.ch <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.sent.Add(1)
	switch ev.Kind {
	case KindProgress:
		c.lastFraction = ev.Fraction
	case KindDone:
		c.done.Store(true)
	}
	return nil
}

// Drain takes every currently buffered event without blocking.
func (c *Channel) Drain() Update {
	var u Update
	for {
		select {
		case ev := <-c.ch:
			u.Consumed++
			c.drained.Add(1)
			if ev.Kind == KindDone {
				u.Done = ev
				u.HasDone = true
				continue
			}
			if u.HasProgress {
				c.coalesced.Add(1)
			}
			u.Progress = ev
			u.HasProgress = true
		default:
			return u
		}
	}
}

// Events exposes the receive side for blocking consumers.
// Consumers must not mix Events and Drain on the same channel.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Stats returns current channel statistics.
func (c *Channel) Stats() Stats {
	return Stats{
		Capacity:  cap(c.ch),
		Pending:   len(c.ch),
		Sent:      c.sent.Load(),
		Drained:   c.drained.Load(),
		Coalesced: c.coalesced.Load(),
		Closed:    c.done.Load(),
	}
}
