package progress

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func newTestChannel(t *testing.T, capacity int) *Channel {
	t.Helper()
	ch, err := NewChannel(capacity)
	if err != nil {
		t.Fatalf("NewChannel(%d) failed: %v", capacity, err)
	}
	return ch
}

func TestNewChannel_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewChannel(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("capacity %d: expected ErrInvalidCapacity, got %v", capacity, err)
		}
	}
}

func TestProgressEvent(t *testing.T) {
	tests := []struct {
		name      string
		processed int64
		total     int64
		want      float64
	}{
		{"half", 5, 10, 0.5},
		{"complete", 10, 10, 1},
		{"overshoot clamped", 12, 10, 1},
		{"unknown total", 5, 0, 0},
		{"negative total", 5, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Progress(tt.processed, tt.total)
			if ev.Fraction != tt.want {
				t.Errorf("Progress(%d, %d).Fraction = %v, want %v", tt.processed, tt.total, ev.Fraction, tt.want)
			}
			if math.IsNaN(ev.Fraction) {
				t.Error("fraction must never be NaN")
			}
		})
	}
}

func TestSend_RejectsInvalidFraction(t *testing.T) {
	ch := newTestChannel(t, DefaultCapacity)
	ctx := context.Background()

	for _, f := range []float64{-0.1, 1.5, math.NaN()} {
		err := ch.Send(ctx, Event{Kind: KindProgress, Fraction: f})
		if !errors.Is(err, ErrInvalidFraction) {
			t.Errorf("fraction %v: expected ErrInvalidFraction, got %v", f, err)
		}
	}
}

func TestSend_RejectsDecreasingFraction(t *testing.T) {
	ch := newTestChannel(t, DefaultCapacity)
	ctx := context.Background()

	if err := ch.Send(ctx, Progress(5, 10)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := ch.Send(ctx, Progress(5, 10)); err != nil {
		t.Errorf("equal fraction should be accepted, got %v", err)
	}
	if err := ch.Send(ctx, Progress(4, 10)); !errors.Is(err, ErrNotMonotonic) {
		t.Errorf("expected ErrNotMonotonic, got %v", err)
	}
}

// TestSend_NoSendAfterDone verifies Done is always the last event.
func TestSend_NoSendAfterDone(t *testing.T) {
	ch := newTestChannel(t, DefaultCapacity)
	ctx := context.Background()

	if err := ch.Send(ctx, Done(nil)); err != nil {
		t.Fatalf("Send(Done) failed: %v", err)
	}
	if err := ch.Send(ctx, Progress(1, 2)); !errors.Is(err, ErrClosed) {
		t.Errorf("progress after done: expected ErrClosed, got %v", err)
	}
	if err := ch.Send(ctx, Done(nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("second done: expected ErrClosed, got %v", err)
	}
	if !ch.Stats().Closed {
		t.Error("Stats().Closed should be true after Done")
	}
}

// TestSend_BlocksWhenFull verifies back-pressure instead of loss.
func TestSend_BlocksWhenFull(t *testing.T) {
	ch := newTestChannel(t, 2)
	ctx := context.Background()

	ch.Send(ctx, Progress(1, 10))
	ch.Send(ctx, Progress(2, 10))

	sent := make(chan error, 1)
	go func() {
		sent <- ch.Send(ctx, Progress(3, 10))
	}()

	select {
	case err := <-sent:
		t.Fatalf("Send should block on a full buffer, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// The first drain frees a slot; the blocked sender may refill it before
	// the drain loop ends, so count events across drains.
	first := ch.Drain()
	if first.Consumed < 2 || !first.HasProgress || first.Progress.Processed < 2 {
		t.Fatalf("first drain should take the buffered events, got %+v", first)
	}

	select {
	case err := <-sent:
		if err != nil {
			t.Fatalf("blocked Send failed after drain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send still blocked after drain")
	}

	second := ch.Drain()
	total := first.Consumed + second.Consumed
	if total != 3 {
		t.Errorf("expected 3 events across drains, got %d", total)
	}

	last := first.Progress
	if second.HasProgress {
		if second.Progress.Processed < last.Processed {
			t.Errorf("progress went backwards: %d after %d", second.Progress.Processed, last.Processed)
		}
		last = second.Progress
	}
	if last.Processed != 3 {
		t.Errorf("latest progress = %d, want 3", last.Processed)
	}

	st := ch.Stats()
	if st.Sent != 3 || st.Drained != 3 || st.Pending != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestSend_ContextCancelledWhileBlocked(t *testing.T) {
	ch := newTestChannel(t, 1)
	ch.Send(context.Background(), Progress(1, 10))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := ch.Send(ctx, Done(nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	// The undelivered Done can be retried
	ch.Drain()
	if err := ch.Send(context.Background(), Done(nil)); err != nil {
		t.Errorf("retry of Done failed: %v", err)
	}
}

// TestDrain_CoalescesProgressKeepsDone verifies the consumer contract.
func TestDrain_CoalescesProgressKeepsDone(t *testing.T) {
	ch := newTestChannel(t, DefaultCapacity)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if err := ch.Send(ctx, Progress(i, 5)); err != nil {
			t.Fatalf("Send(%d) failed: %v", i, err)
		}
	}
	ch.Send(ctx, Done(nil))

	u := ch.Drain()
	if u.Consumed != 6 {
		t.Errorf("expected 6 events consumed, got %d", u.Consumed)
	}
	if !u.HasProgress || u.Progress.Fraction != 1 {
		t.Errorf("expected latest progress 1.0, got %+v", u.Progress)
	}
	if !u.HasDone || !u.Done.Succeeded() {
		t.Errorf("expected successful Done, got %+v", u.Done)
	}

	stats := ch.Stats()
	if stats.Coalesced != 4 {
		t.Errorf("expected 4 coalesced events, got %d", stats.Coalesced)
	}
	if stats.Sent != 6 || stats.Drained != 6 || stats.Pending != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDrain_EmptyNeverBlocks(t *testing.T) {
	ch := newTestChannel(t, DefaultCapacity)

	done := make(chan Update, 1)
	go func() { done <- ch.Drain() }()

	select {
	case u := <-done:
		if u.Consumed != 0 || u.HasProgress || u.HasDone {
			t.Errorf("expected empty update, got %+v", u)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Drain blocked on an empty channel")
	}
}

// TestConcurrentProducerConsumer verifies ordering and that exactly one
// Done is observed, always last, under a slow ticking consumer.
func TestConcurrentProducerConsumer(t *testing.T) {
	ch := newTestChannel(t, DefaultCapacity)
	ctx := context.Background()
	const total = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= total; i++ {
			if err := ch.Send(ctx, Progress(i, total)); err != nil {
				t.Errorf("Send(%d) failed: %v", i, err)
				return
			}
		}
		ch.Send(ctx, Done(nil))
	}()

	last := -1.0
	dones := 0
	deadline := time.After(5 * time.Second)
	for dones == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for Done")
		default:
		}

		u := ch.Drain()
		if u.HasProgress {
			if u.Progress.Fraction < last {
				t.Fatalf("fraction decreased: %v after %v", u.Progress.Fraction, last)
			}
			last = u.Progress.Fraction
		}
		if u.HasDone {
			dones++
		}
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	if extra := ch.Drain(); extra.Consumed != 0 {
		t.Errorf("events after Done: %+v", extra)
	}
	if last != 1 {
		t.Errorf("last progress before Done = %v, want 1", last)
	}
	if stats := ch.Stats(); stats.Sent != total+1 {
		t.Errorf("expected %d events sent, got %d", total+1, stats.Sent)
	}
}

func TestEvent_String(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Progress(42, 100), "progress 42% (42/100)"},
		{Done(nil), "done: success"},
		{Done(errors.New("boom")), "done: failed: boom"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		fraction float64
		want     int
	}{
		{0, 0},
		{0.29, 29},
		{0.999, 99},
		{1, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.fraction); got != tt.want {
			t.Errorf("Percent(%v) = %d, want %d", tt.fraction, got, tt.want)
		}
	}
}
