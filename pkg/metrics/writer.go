package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Writer is the single-writer handle for a WAN's (or a shared) metrics
// database: every call is serialized behind one mutex, matching the
// source's class-level singleton-plus-lock shape, expressed here as a
// process-wide handle acquired once at startup and passed to callers
// rather than a hidden global.
type Writer struct {
	mu     sync.Mutex
	db     *sqlx.DB
	path   string
	logger zerolog.Logger
}

// Sample is one metric observation queued for the next batch write.
type Sample struct {
	Metric string
	WAN    string
	Value  float64
	Labels map[string]interface{}
}

// Open creates the database (and parent directory) if absent, applies
// the schema, and configures WAL mode with synchronous=NORMAL.
func Open(path string, logger zerolog.Logger) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("metrics: create db dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("metrics: open db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: apply schema: %w", err)
	}

	return &Writer{db: db, path: path, logger: logger.With().Str("component", "metrics").Logger()}, nil
}

// Close releases the underlying database handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db.Close()
}

// Path returns the database file path, for opening read-only Reader
// connections on the same file.
func (w *Writer) Path() string {
	return w.path
}

// WriteBatch inserts one cycle's samples in a single transaction,
// sharing one timestamp across the batch per the ordering rule that
// a cycle's rows agree on when they happened.
func (w *Writer) WriteBatch(ctx context.Context, ts time.Time, samples []Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metrics: begin tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO metrics (timestamp, wan_name, metric_name, value, labels, granularity)
		VALUES (?, ?, ?, ?, ?, 'raw')`

	unixTs := ts.Unix()
	for _, s := range samples {
		var labelsJSON *string
		if len(s.Labels) > 0 {
			b, err := json.Marshal(s.Labels)
			if err != nil {
				return fmt.Errorf("metrics: marshal labels for %s: %w", s.Metric, err)
			}
			str := string(b)
			labelsJSON = &str
		}
		if _, err := tx.ExecContext(ctx, insert, unixTs, s.WAN, s.Metric, s.Value, labelsJSON); err != nil {
			return fmt.Errorf("metrics: insert %s: %w", s.Metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metrics: commit batch: %w", err)
	}
	return nil
}

// WriteConfigSnapshot records the startup/reload config snapshot row:
// metric wanctl_config_snapshot, value is the snapshot timestamp,
// labels hold the curated config subset.
func (w *Writer) WriteConfigSnapshot(ctx context.Context, ts time.Time, wan string, curated map[string]interface{}) error {
	return w.WriteBatch(ctx, ts, []Sample{{
		Metric: MetricConfigSnapshot,
		WAN:    wan,
		Value:  float64(ts.Unix()),
		Labels: curated,
	}})
}

// exec runs a statement holding the writer's mutex, used by retention
// and downsampling maintenance which also mutate the table.
func (w *Writer) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db.ExecContext(ctx, query, args...)
}
