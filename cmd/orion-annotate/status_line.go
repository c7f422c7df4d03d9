package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/e7canasta/orion-annotate/internal/snapshot"
	"github.com/e7canasta/orion-annotate/modules/controller"
	"github.com/e7canasta/orion-annotate/modules/pipeline"
	"github.com/e7canasta/orion-annotate/modules/progress"
)

const barWidth = 30

// statusLine redraws a single progress line in place.
type statusLine struct {
	w    io.Writer
	last string
}

func newStatusLine(w io.Writer) *statusLine {
	return &statusLine{w: w}
}

// Render redraws the line if it changed.
func (l *statusLine) Render(st controller.Status) {
	if st.State == pipeline.StateIdle {
		return
	}
	line := formatStatus(st)
	if line == l.last {
		return
	}
	l.last = line
	fmt.Fprintf(l.w, "\r\033[K%s", line)
}

// Finish prints the final state and ends the line.
func (l *statusLine) Finish(st controller.Status) {
	if st.State == pipeline.StateIdle {
		return
	}
	fmt.Fprintf(l.w, "\r\033[K%s\n", formatStatus(st))
	l.last = ""
}

func formatStatus(st controller.Status) string {
	filled := int(st.Fraction * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("[%s] %3d%%  %s", bar, progress.Percent(st.Fraction), st.Message)
}

// printSummary prints the statistics of a finished run
func printSummary(w io.Writer, stats pipeline.Stats, saver *snapshot.FrameSaver) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╭─────────────────────────────────────────────────────────────────╮")
	fmt.Fprintf(w, "│ Run %s (%s)\n", stats.ID, stats.State)
	fmt.Fprintln(w, "├─────────────────────────────────────────────────────────────────┤")
	fmt.Fprintf(w, "│   Frames Processed:   %6d frames\n", stats.Frames)
	if stats.Total > 0 {
		fmt.Fprintf(w, "│   Frames Expected:    %6d frames\n", stats.Total)
	}
	fmt.Fprintf(w, "│   Detections:         %6d boxes\n", stats.Detections)
	fmt.Fprintf(w, "│   Elapsed:            %6v\n", stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "│   Throughput:         %6.2f fps\n", stats.FPS)

	if saver != nil {
		saved, dropped := saver.Stats()
		fmt.Fprintln(w, "│ Snapshots:")
		fmt.Fprintf(w, "│   Saved:              %6d\n", saved)
		fmt.Fprintf(w, "│   Dropped:            %6d\n", dropped)
	}
	fmt.Fprintln(w, "╰─────────────────────────────────────────────────────────────────╯")
}
