package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Reader is a read-only connection over the metrics database, safe to
// hold alongside an open Writer: SQLite's WAL mode lets readers proceed
// without blocking the writer.
type Reader struct {
	db *sqlx.DB
}

// OpenReader opens a read-only connection to the database at path.
func OpenReader(path string) (*Reader, error) {
	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("metrics: open reader: %w", err)
	}
	return &Reader{db: db}, nil
}

// Close releases the reader's connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Query filters rows by any subset of the given fields; a zero value
// means "no filter" for that field. Results are ordered by timestamp
// descending.
type Query struct {
	StartTS     int64
	EndTS       int64
	MetricNames []string
	WAN         string
	Granularity Granularity
}

// SelectGranularity picks the storage tier to read for a given time
// range: under 6h reads raw, under 24h reads 1m, under 7d reads 5m,
// otherwise 1h.
func SelectGranularity(start, end time.Time) Granularity {
	span := end.Sub(start)
	switch {
	case span < 6*time.Hour:
		return GranularityRaw
	case span < 24*time.Hour:
		return Granularity1m
	case span < 7*24*time.Hour:
		return Granularity5m
	default:
		return Granularity1h
	}
}

// Rows executes the query and returns matching rows, newest first.
func (r *Reader) Rows(ctx context.Context, q Query) ([]Row, error) {
	query := `SELECT id, timestamp, wan_name, metric_name, value, labels, granularity FROM metrics WHERE 1=1`
	var args []interface{}

	if q.StartTS != 0 {
		query += ` AND timestamp >= ?`
		args = append(args, q.StartTS)
	}
	if q.EndTS != 0 {
		query += ` AND timestamp <= ?`
		args = append(args, q.EndTS)
	}
	if q.WAN != "" {
		query += ` AND wan_name = ?`
		args = append(args, q.WAN)
	}
	if q.Granularity != "" {
		query += ` AND granularity = ?`
		args = append(args, q.Granularity)
	}
	if len(q.MetricNames) > 0 {
		query += ` AND metric_name IN (?` + repeatPlaceholder(len(q.MetricNames)-1) + `)`
		for _, m := range q.MetricNames {
			args = append(args, m)
		}
	}
	query += ` ORDER BY timestamp DESC`

	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("metrics: query rows: %w", err)
	}
	return rows, nil
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

// Summary holds the fixed statistics computed over a list of values.
type Summary struct {
	Min, Max, Avg, P50, P95, P99 float64
}

// Summarize computes {min, max, avg, p50, p95, p99} using the
// linear-interpolation (exclusive) quantile method. A single-value list
// collapses every statistic to that value.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	if len(values) == 1 {
		v := values[0]
		return Summary{Min: v, Max: v, Avg: v, P50: v, P95: v, P99: v}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: quantileExclusive(sorted, 0.50),
		P95: quantileExclusive(sorted, 0.95),
		P99: quantileExclusive(sorted, 0.99),
	}
}

// quantileExclusive implements the exclusive linear-interpolation
// quantile (R-6 / Excel PERCENTILE.EXC family) over already-sorted data.
func quantileExclusive(sorted []float64, p float64) float64 {
	n := float64(len(sorted))
	rank := p * (n + 1)
	if rank < 1 {
		return sorted[0]
	}
	if rank >= n {
		return sorted[len(sorted)-1]
	}
	lo := int(math.Floor(rank)) - 1
	frac := rank - math.Floor(rank)
	hi := lo + 1
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
