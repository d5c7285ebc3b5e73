package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter mirrors the most recent cycle's samples as live Prometheus
// gauges. This is an additional, cheap surface alongside the SQLite
// historical store — a daemon being monitored, not a thing monitoring
// others, so it is a small Prometheus target rather than a client.
type Exporter struct {
	mu     sync.Mutex
	gauges map[string]*prometheus.GaugeVec
	reg    *prometheus.Registry
}

// NewExporter builds an Exporter with one GaugeVec per fixed metric
// name, labeled by wan, registered against a fresh registry.
func NewExporter() *Exporter {
	e := &Exporter{
		gauges: make(map[string]*prometheus.GaugeVec),
		reg:    prometheus.NewRegistry(),
	}
	for _, name := range []string{
		MetricRTTMs,
		MetricRTTBaselineMs,
		MetricRTTDeltaMs,
		MetricRateDownloadMbps,
		MetricRateUploadMbps,
		MetricState,
		MetricSteeringEnabled,
	} {
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, []string{"wan"})
		e.reg.MustRegister(gv)
		e.gauges[name] = gv
	}
	return e
}

// Registry exposes the underlying registry for wiring into an HTTP
// handler (promhttp.HandlerFor).
func (e *Exporter) Registry() *prometheus.Registry {
	return e.reg
}

// Observe updates the live gauge for one sample, a no-op for metric
// names this exporter does not track (e.g. the one-shot config
// snapshot and steering transition events, which are history-only).
func (e *Exporter) Observe(s Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	gv, ok := e.gauges[s.Metric]
	if !ok {
		return
	}
	gv.WithLabelValues(s.WAN).Set(s.Value)
}

// ObserveBatch updates gauges for every sample in a cycle's batch.
func (e *Exporter) ObserveBatch(samples []Sample) {
	for _, s := range samples {
		e.Observe(s)
	}
}
