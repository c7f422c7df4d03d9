// Package controller is the control surface boundary of the annotator.
//
// It owns the selected paths and the displayed progress, launches one
// pipeline run at a time on its own goroutine and polls that run's progress
// channel from a non-blocking tick loop:
//
//	c, _ := controller.New(runner)
//	if err := c.Start(ctx, "in.mp4", "out.mp4"); err != nil {
//	    // *ValidationError: missing path, input not found or run active
//	}
//	for range ticker.C {
//	    st := c.Tick()
//	    render(st.Fraction, st.Message)
//	    if !st.Active() {
//	        break
//	    }
//	}
package controller
