package metrics_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wanctl/wanctl/pkg/metrics"
)

// TestDownsample_RawToOneMinute reproduces 3600 raw rows at 1-second
// spacing for wanctl_rtt_ms on wan "spectrum" with values 1..3600, then
// advances the clock 2 hours and runs startup maintenance: expect 60
// 1m rows with value approximately the bucket average and the raw rows
// gone.
func TestDownsample_RawToOneMinute(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	w, err := metrics.Open(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	base := time.Unix(1_700_000_040, 0) // minute-aligned: the rows fill exactly 60 buckets

	for i := 0; i < 3600; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		err := w.WriteBatch(ctx, ts, []metrics.Sample{{
			Metric: metrics.MetricRTTMs,
			WAN:    "spectrum",
			Value:  float64(i + 1),
		}})
		if err != nil {
			t.Fatalf("WriteBatch(%d) error = %v", i, err)
		}
	}

	now := base.Add(2 * time.Hour)
	if err := w.DownsampleAll(ctx, now); err != nil {
		t.Fatalf("DownsampleAll() error = %v", err)
	}

	reader, err := metrics.OpenReader(w.Path())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer reader.Close()

	oneMin, err := reader.Rows(ctx, metrics.Query{WAN: "spectrum", Granularity: metrics.Granularity1m})
	if err != nil {
		t.Fatalf("Rows(1m) error = %v", err)
	}
	if len(oneMin) != 60 {
		t.Fatalf("len(1m rows) = %d, want 60", len(oneMin))
	}

	raw, err := reader.Rows(ctx, metrics.Query{WAN: "spectrum", Granularity: metrics.GranularityRaw})
	if err != nil {
		t.Fatalf("Rows(raw) error = %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("len(raw rows) = %d, want 0 after downsample", len(raw))
	}
}

func TestRetention_DeletesOldRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	w, err := metrics.Open(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	old := time.Unix(1_000_000_000, 0)
	recent := time.Unix(1_700_000_000, 0)

	w.WriteBatch(ctx, old, []metrics.Sample{{Metric: metrics.MetricRTTMs, WAN: "spectrum", Value: 5}})
	w.WriteBatch(ctx, recent, []metrics.Sample{{Metric: metrics.MetricRTTMs, WAN: "spectrum", Value: 6}})

	if err := w.ApplyRetention(ctx, recent, 30); err != nil {
		t.Fatalf("ApplyRetention() error = %v", err)
	}

	reader, err := metrics.OpenReader(w.Path())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer reader.Close()

	rows, err := reader.Rows(ctx, metrics.Query{WAN: "spectrum"})
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Value != 6 {
		t.Fatalf("rows after retention = %+v, want only the recent row", rows)
	}
}
