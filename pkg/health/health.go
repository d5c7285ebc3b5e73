// Package health serves the HTTP status and Prometheus endpoints every
// daemon exposes: GET /health (and /) returning a JSON snapshot of
// per-WAN state, and GET /metrics exposing the live gauge exporter.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wanctl/wanctl/pkg/metrics"
)

// DirectionStatus is one direction's (download/upload) live snapshot.
type DirectionStatus struct {
	CurrentRateMbps float64 `json:"current_rate_mbps"`
	State           string  `json:"state"`
}

// WANStatus is one WAN's live snapshot.
type WANStatus struct {
	Name          string          `json:"name"`
	BaselineRTTMs float64         `json:"baseline_rtt_ms"`
	LoadRTTMs     float64         `json:"load_rtt_ms"`
	Download      DirectionStatus `json:"download"`
	Upload        DirectionStatus `json:"upload"`
}

// Snapshot is the full payload returned by GET /health.
type Snapshot struct {
	Status              string      `json:"status"`
	UptimeSeconds       float64     `json:"uptime_seconds"`
	Version             string      `json:"version"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	WANCount            int         `json:"wan_count"`
	WANs                []WANStatus `json:"wans"`
}

const maxConsecutiveFailures = 3

// Provider supplies the live snapshot data; implemented by the control
// loop and read under its own lock.
type Provider interface {
	HealthSnapshot() Snapshot
}

// Server is the health/metrics HTTP server for one daemon.
type Server struct {
	provider Provider
	version  string
	started  time.Time
	exporter *metrics.Exporter
	srv      *http.Server
}

// New builds a Server bound to addr, serving snapshots from provider
// and Prometheus gauges from exporter (nil disables /metrics).
func New(addr, version string, provider Provider, exporter *metrics.Exporter) *Server {
	s := &Server{
		provider: provider,
		version:  version,
		started:  time.Now(),
		exporter: exporter,
	}

	r := chi.NewRouter()
	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	if exporter != nil {
		r.Get("/metrics", promhttp.HandlerFor(exporter.Registry(), promhttp.HandlerOpts{}).ServeHTTP)
	}
	r.NotFound(handleNotFound)

	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

// Handler returns the underlying HTTP handler, for use in tests or
// when embedding the routes in another server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks serving the health server until it is shut down.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting up to the given deadline.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := newShutdownContext(timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.provider.HealthSnapshot()
	snap.Version = s.version
	snap.UptimeSeconds = time.Since(s.started).Seconds()

	status := http.StatusOK
	if snap.ConsecutiveFailures >= maxConsecutiveFailures {
		snap.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else if snap.Status == "" {
		snap.Status = "healthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(snap)
}

func newShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
}
