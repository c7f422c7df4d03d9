package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/e7canasta/orion-annotate/modules/detector"
	"github.com/e7canasta/orion-annotate/modules/pipeline"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// Recorder exports pipeline activity as Prometheus metrics.
// It is a pipeline.Observer.
type Recorder struct {
	registry *prometheus.Registry

	framesProcessed prometheus.Counter
	detections      prometheus.Counter
	stageDuration   *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	runProgress     prometheus.Gauge
	activeRuns      prometheus.Gauge
}

var _ pipeline.Observer = (*Recorder)(nil)

// NewRecorder registers the annotator metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		framesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "annotate_frames_processed_total",
			Help: "Total number of frames decoded, annotated and encoded",
		}),
		detections: factory.NewCounter(prometheus.CounterOpts{
			Name: "annotate_detections_total",
			Help: "Total number of bounding boxes drawn",
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "annotate_stage_duration_seconds",
			Help:    "Per-frame latency of each pipeline stage",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"stage"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "annotate_runs_total",
			Help: "Total number of runs finished, by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "annotate_run_duration_seconds",
			Help:    "Wall-clock duration of finished runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		runProgress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "annotate_run_progress_ratio",
			Help: "Fraction of the active run processed (0 when unknown)",
		}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "annotate_active_runs",
			Help: "Number of runs currently executing",
		}),
	}
}

// Registry returns the registry holding the annotator metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RunStarted implements pipeline.Observer.
func (r *Recorder) RunStarted(run *pipeline.Run) {
	r.activeRuns.Inc()
	r.runProgress.Set(0)
}

// FrameProcessed implements pipeline.Observer.
func (r *Recorder) FrameProcessed(run *pipeline.Run, frame *videoio.Frame, boxes []detector.BoundingBox, timing pipeline.Timing) {
	r.framesProcessed.Inc()
	r.detections.Add(float64(len(boxes)))

	r.stageDuration.WithLabelValues("decode").Observe(timing.Decode.Seconds())
	r.stageDuration.WithLabelValues("detect").Observe(timing.Detect.Seconds())
	r.stageDuration.WithLabelValues("annotate").Observe(timing.Annotate.Seconds())
	r.stageDuration.WithLabelValues("encode").Observe(timing.Encode.Seconds())

	if s := run.Stats(); s.Total > 0 {
		r.runProgress.Set(min(float64(s.Frames)/float64(s.Total), 1))
	}
}

// RunFinished implements pipeline.Observer.
func (r *Recorder) RunFinished(run *pipeline.Run, err error) {
	s := run.Stats()
	r.activeRuns.Dec()
	r.runsTotal.WithLabelValues(Outcome(err)).Inc()
	r.runDuration.Observe(s.Elapsed.Seconds())
	r.runProgress.Set(0)
}

// Outcome maps a run error to the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, pipeline.ErrOpen):
		return "open_error"
	case errors.Is(err, pipeline.ErrDecode):
		return "decode_error"
	case errors.Is(err, pipeline.ErrDetect):
		return "detect_error"
	case errors.Is(err, pipeline.ErrEncode):
		return "encode_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "failed"
	}
}
