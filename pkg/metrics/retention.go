package metrics

import (
	"context"
	"time"
)

// vacuumThreshold is the row-deletion count at or above which retention runs
// a VACUUM to reclaim space, rather than vacuuming on every startup.
const vacuumThreshold = 1000

// ApplyRetention deletes rows older than retentionDays and VACUUMs the
// database if enough rows were removed to make it worthwhile. Intended
// to run once at daemon startup.
func (w *Writer) ApplyRetention(ctx context.Context, now time.Time, retentionDays int) error {
	cutoff := now.AddDate(0, 0, -retentionDays).Unix()

	result, err := w.exec(ctx, `DELETE FROM metrics WHERE timestamp < ?`, cutoff)
	if err != nil {
		return err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return err
	}

	w.logger.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("retention cleanup")

	if deleted >= vacuumThreshold {
		if _, err := w.exec(ctx, `VACUUM`); err != nil {
			return err
		}
		w.logger.Info().Msg("vacuum complete")
	}
	return nil
}
