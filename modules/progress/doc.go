// Package progress carries run progress from a blocking worker to a
// non-blocking control surface.
//
// The worker sends Progress events followed by exactly one Done event over a
// bounded Channel (default capacity 10). When the buffer is full the worker
// blocks: back-pressure, never loss. The control surface calls Drain on each
// of its ticks; Drain returns immediately with the latest Progress (earlier
// ones are coalesced) and the Done event if it has arrived.
//
// # Example
//
//	ch, _ := progress.NewChannel(progress.DefaultCapacity)
//
//	go func() {
//	    for i := int64(1); i <= total; i++ {
//	        // ... process frame i ...
//	        ch.Send(ctx, progress.Progress(i, total))
//	    }
//	    ch.Send(context.WithoutCancel(ctx), progress.Done(nil))
//	}()
//
//	ticker := time.NewTicker(100 * time.Millisecond)
//	for range ticker.C {
//	    u := ch.Drain()
//	    if u.HasProgress {
//	        render(u.Progress.Fraction)
//	    }
//	    if u.HasDone {
//	        break
//	    }
//	}
package progress
