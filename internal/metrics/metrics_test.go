package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/e7canasta/orion-annotate/modules/detector"
	"github.com/e7canasta/orion-annotate/modules/pipeline"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "completed"},
		{&pipeline.RunError{Stage: pipeline.StageOpen, Frame: -1, Err: videoio.ErrOpen}, "open_error"},
		{&pipeline.RunError{Stage: pipeline.StageDecode, Err: videoio.ErrDecode}, "decode_error"},
		{&pipeline.RunError{Stage: pipeline.StageDetect, Err: detector.ErrDetect}, "detect_error"},
		{&pipeline.RunError{Stage: pipeline.StageEncode, Err: videoio.ErrEncode}, "encode_error"},
		{&pipeline.RunError{Stage: pipeline.StageCanceled, Err: context.Canceled}, "canceled"},
		{errors.New("other"), "failed"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecorder_Observer(t *testing.T) {
	rec := NewRecorder()
	run := pipeline.NewRun("in.mp4", "out.mp4")
	boxes := []detector.BoundingBox{{X: 1, Y: 1, Width: 4, Height: 8}, {X: 9, Y: 1, Width: 4, Height: 8}}
	frame := &videoio.Frame{Width: 16, Height: 16}

	rec.RunStarted(run)
	if got := testutil.ToFloat64(rec.activeRuns); got != 1 {
		t.Errorf("active runs = %v, want 1", got)
	}

	for i := 0; i < 3; i++ {
		rec.FrameProcessed(run, frame, boxes, pipeline.Timing{Detect: 10 * time.Millisecond})
	}
	rec.RunFinished(run, nil)

	if got := testutil.ToFloat64(rec.framesProcessed); got != 3 {
		t.Errorf("frames = %v, want 3", got)
	}
	if got := testutil.ToFloat64(rec.detections); got != 6 {
		t.Errorf("detections = %v, want 6", got)
	}
	if got := testutil.ToFloat64(rec.runsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.activeRuns); got != 0 {
		t.Errorf("active runs = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(rec.stageDuration); n != 4 {
		t.Errorf("expected 4 stage series, got %d", n)
	}
}

func TestServer_Endpoints(t *testing.T) {
	rec := NewRecorder()
	rec.RunStarted(pipeline.NewRun("a", "b"))

	srv := NewServer(":0", rec, func() HealthStatus {
		return HealthStatus{Status: "running", State: "running", Percent: 42}
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := get("/health"); code != http.StatusOK || !strings.Contains(body, `"alive"`) {
		t.Errorf("/health = %d %s", code, body)
	}

	code, body := get("/readiness")
	if code != http.StatusOK {
		t.Errorf("/readiness status = %d", code)
	}
	var health HealthStatus
	if err := json.Unmarshal([]byte(body), &health); err != nil {
		t.Fatalf("invalid readiness JSON: %v", err)
	}
	if health.Percent != 42 || health.State != "running" {
		t.Errorf("unexpected readiness body: %+v", health)
	}

	code, body = get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, "annotate_active_runs 1") {
		t.Errorf("/metrics = %d, missing active runs gauge", code)
	}
}

func TestServer_Unhealthy(t *testing.T) {
	srv := NewServer(":0", NewRecorder(), func() HealthStatus {
		return HealthStatus{Status: "unhealthy"}
	})
	w := httptest.NewRecorder()
	srv.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
