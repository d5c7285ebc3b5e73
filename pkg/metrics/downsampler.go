package metrics

import (
	"context"
	"fmt"
	"time"
)

// tier describes one downsampling step: aggregate rows at `from`
// granularity older than `maxAge` into `bucketSeconds`-wide buckets at
// `to` granularity.
type tier struct {
	from, to      Granularity
	bucketSeconds int64
	maxAge        time.Duration
}

// DownsampleAll runs the three fixed downsampling tiers, intended to
// run once at daemon startup alongside retention cleanup.
func (w *Writer) DownsampleAll(ctx context.Context, now time.Time) error {
	tiers := []tier{
		{GranularityRaw, Granularity1m, 60, time.Hour},
		{Granularity1m, Granularity5m, 300, 24 * time.Hour},
		{Granularity5m, Granularity1h, 3600, 7 * 24 * time.Hour},
	}
	for _, t := range tiers {
		if err := w.downsampleTier(ctx, now, t); err != nil {
			return fmt.Errorf("metrics: downsample %s->%s: %w", t.from, t.to, err)
		}
	}
	return nil
}

type rawRow struct {
	ID        int64
	Timestamp int64
	Value     float64
}

func (w *Writer) downsampleTier(ctx context.Context, now time.Time, t tier) error {
	cutoff := now.Add(-t.maxAge).Unix()

	type pair struct{ WAN, Metric string }
	var pairs []pair
	rows, err := w.db.QueryContext(ctx,
		`SELECT DISTINCT wan_name, metric_name FROM metrics WHERE granularity = ? AND timestamp < ?`,
		t.from, cutoff)
	if err != nil {
		return err
	}
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.WAN, &p.Metric); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	rows.Close()

	for _, p := range pairs {
		if err := w.downsamplePair(ctx, p.WAN, p.Metric, cutoff, t); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) downsamplePair(ctx context.Context, wan, metric string, cutoff int64, t tier) error {
	w.mu.Lock()
	srcRows, err := w.db.QueryContext(ctx,
		`SELECT id, timestamp, value FROM metrics
		 WHERE granularity = ? AND wan_name = ? AND metric_name = ? AND timestamp < ?
		 ORDER BY timestamp ASC`,
		t.from, wan, metric, cutoff)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	buckets := make(map[int64][]rawRow)
	for srcRows.Next() {
		var r rawRow
		if err := srcRows.Scan(&r.ID, &r.Timestamp, &r.Value); err != nil {
			srcRows.Close()
			w.mu.Unlock()
			return err
		}
		bucketStart := (r.Timestamp / t.bucketSeconds) * t.bucketSeconds
		buckets[bucketStart] = append(buckets[bucketStart], r)
	}
	srcRows.Close()
	w.mu.Unlock()

	isState := stateMetrics[metric]

	for bucketStart, bucketRows := range buckets {
		// a bucket that straddles the cutoff is skipped this pass
		if bucketStart+t.bucketSeconds > cutoff {
			continue
		}

		var value float64
		if isState {
			value = mode(bucketRows)
		} else {
			value = average(bucketRows)
		}

		if err := w.replaceBucket(ctx, wan, metric, bucketStart, value, t.to, bucketRows); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) replaceBucket(ctx context.Context, wan, metric string, bucketStart int64, value float64, to Granularity, source []rawRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metrics (timestamp, wan_name, metric_name, value, granularity) VALUES (?, ?, ?, ?, ?)`,
		bucketStart, wan, metric, value, to); err != nil {
		return err
	}

	ids := make([]interface{}, len(source))
	placeholders := ""
	for i, r := range source {
		ids[i] = r.ID
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE id IN (`+placeholders+`)`, ids...); err != nil {
		return err
	}

	return tx.Commit()
}

func average(rows []rawRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += r.Value
	}
	return sum / float64(len(rows))
}

func mode(rows []rawRow) float64 {
	counts := make(map[float64]int)
	best, bestCount := 0.0, 0
	for _, r := range rows {
		counts[r.Value]++
		if counts[r.Value] > bestCount {
			best, bestCount = r.Value, counts[r.Value]
		}
	}
	return best
}
