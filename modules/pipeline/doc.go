// Package pipeline runs one input video through detection and annotation
// into an output video.
//
// A Run moves Idle -> Running -> Completed | Failed. Runner.Execute owns the
// source, sink and detector for the whole pass and executes on the calling
// goroutine:
//
//	for each decoded frame:
//	    boxes := detector.Detect(frame)
//	    annotator.Draw(frame, boxes)
//	    sink.Write(frame)
//	    events <- Progress(processed/total)   // only when total is known
//	events <- Done(err)                       // exactly once, always last
//
// Any error aborts the run without retries. Output written so far stays on
// disk. Failures are reported as *RunError; use errors.Is with ErrOpen,
// ErrDecode, ErrDetect or ErrEncode to classify them.
package pipeline
