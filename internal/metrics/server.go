package metrics

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus represents the health state of the annotator
type HealthStatus struct {
	Status        string `json:"status"` // "idle", "running", "degraded"
	UptimeSeconds int64  `json:"uptime_seconds"`
	RunID         string `json:"run_id,omitempty"`
	State         string `json:"state"`
	Percent       int    `json:"percent"`
	Message       string `json:"message,omitempty"`
	MQTTConnected *bool  `json:"mqtt_connected,omitempty"`
}

// HealthFunc reports the current health; it must not block.
type HealthFunc func() HealthStatus

// Server serves /health, /readiness and /metrics.
type Server struct {
	started time.Time
	health  HealthFunc
	srv     *http.Server
}

// NewServer creates the HTTP server; health may be nil.
func NewServer(addr string, rec *Recorder, health HealthFunc) *Server {
	s := &Server{started: time.Now(), health: health}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.LivenessHandler)
	mux.HandleFunc("/readiness", s.ReadinessHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start starts serving in a goroutine (non-blocking)
func (s *Server) Start() {
	slog.Info("metrics: starting health server",
		"addr", s.srv.Addr,
		"endpoints", []string{"/health", "/readiness", "/metrics"},
	)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics: health server failed", "error", err)
		}
	}()
}

// Close stops the server.
func (s *Server) Close() error {
	return s.srv.Close()
}

// LivenessHandler handles /health (simple liveness check)
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

// ReadinessHandler handles /readiness (detailed readiness check)
// Returns 503 only when the status is "unhealthy".
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "idle", State: "idle"}
	if s.health != nil {
		health = s.health()
	}
	health.UptimeSeconds = int64(time.Since(s.started).Seconds())

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
