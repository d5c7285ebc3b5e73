// Package metrics implements the embedded SQLite metrics store: a
// single-writer, WAL-mode time series table with startup retention
// cleanup and multi-tier downsampling, plus a read-only query path and
// a live Prometheus gauge exporter.
package metrics

const schemaSQL = `
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	wan_name TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	value REAL NOT NULL,
	labels TEXT,
	granularity TEXT NOT NULL DEFAULT 'raw'
);
CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics (timestamp);
CREATE INDEX IF NOT EXISTS idx_metrics_wan_metric_ts ON metrics (wan_name, metric_name, timestamp);
CREATE INDEX IF NOT EXISTS idx_metrics_granularity_ts ON metrics (granularity, timestamp);
`

// Granularity is the closed set of storage tiers a row can live at.
type Granularity string

const (
	GranularityRaw Granularity = "raw"
	Granularity1m  Granularity = "1m"
	Granularity5m  Granularity = "5m"
	Granularity1h  Granularity = "1h"
)

// Fixed metric names, per the external metric surface.
const (
	MetricRTTMs              = "wanctl_rtt_ms"
	MetricRTTBaselineMs      = "wanctl_rtt_baseline_ms"
	MetricRTTDeltaMs         = "wanctl_rtt_delta_ms"
	MetricRateDownloadMbps   = "wanctl_rate_download_mbps"
	MetricRateUploadMbps     = "wanctl_rate_upload_mbps"
	MetricState              = "wanctl_state"
	MetricSteeringEnabled    = "wanctl_steering_enabled"
	MetricSteeringTransition = "wanctl_steering_transition"
	MetricConfigSnapshot     = "wanctl_config_snapshot"
)

// stateMetrics use MODE (most frequent value) instead of AVG when
// downsampled, since they are boolean/enum-valued rather than continuous.
var stateMetrics = map[string]bool{
	MetricState:           true,
	MetricSteeringEnabled: true,
}

// Row is one stored metric observation.
type Row struct {
	ID          int64       `db:"id"`
	Timestamp   int64       `db:"timestamp"`
	WANName     string      `db:"wan_name"`
	MetricName  string      `db:"metric_name"`
	Value       float64     `db:"value"`
	Labels      *string     `db:"labels"`
	Granularity Granularity `db:"granularity"`
}
