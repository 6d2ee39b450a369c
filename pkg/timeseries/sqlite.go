package timeseries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/venturelens/venturelens/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS metric_samples (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_key  TEXT    NOT NULL,
	metric_name TEXT    NOT NULL,
	snapshot_id TEXT    NOT NULL,
	captured_at TEXT    NOT NULL,
	game_day    INTEGER NOT NULL,
	value       REAL    NOT NULL,
	UNIQUE(entity_key, metric_name, snapshot_id)
);
CREATE INDEX IF NOT EXISTS idx_samples_series
	ON metric_samples(entity_key, metric_name, game_day, captured_at);
CREATE INDEX IF NOT EXISTS idx_samples_snapshot
	ON metric_samples(snapshot_id);
`

// SQLStore persists the history in an embedded SQLite database. The
// UNIQUE constraint on (entity, metric, snapshot) is what makes Append
// idempotent; the log itself is append-only, never updated or deleted.
type SQLStore struct {
	db *sql.DB
	lg *zap.Logger
}

// OpenSQL opens (and migrates) the database at path. WAL mode keeps
// concurrent readers from blocking the single writer.
func OpenSQL(path string, lg *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("timeseries: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("timeseries: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("timeseries: migrate schema: %w", err)
	}
	lg.Info("time-series store opened", zap.String("path", path))
	return &SQLStore{db: db, lg: lg}, nil
}

func (s *SQLStore) Append(ctx context.Context, samples []domain.MetricSample) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("timeseries: begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO metric_samples
			(entity_key, metric_name, snapshot_id, captured_at, game_day, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("timeseries: prepare append: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, smp := range samples {
		res, err := stmt.ExecContext(ctx,
			string(smp.Entity), smp.Metric, smp.SnapshotID,
			smp.CapturedAt.UTC().Format(time.RFC3339Nano), smp.GameDay, smp.Value)
		if err != nil {
			return 0, fmt.Errorf("timeseries: append %s/%s: %w", smp.Entity, smp.Metric, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("timeseries: append result: %w", err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("timeseries: commit append: %w", err)
	}
	return inserted, nil
}

func (s *SQLStore) HasSnapshot(ctx context.Context, snapshotID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM metric_samples WHERE snapshot_id = ?)`,
		snapshotID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("timeseries: snapshot lookup: %w", err)
	}
	return exists, nil
}

func (s *SQLStore) Series(ctx context.Context, entity domain.EntityKey, metric string) ([]domain.MetricSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_key, metric_name, snapshot_id, captured_at, game_day, value
		FROM metric_samples
		WHERE entity_key = ? AND metric_name = ?
		ORDER BY game_day, captured_at`,
		string(entity), metric)
	if err != nil {
		return nil, fmt.Errorf("timeseries: series query: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricSample
	for rows.Next() {
		var smp domain.MetricSample
		var entityKey, capturedAt string
		if err := rows.Scan(&entityKey, &smp.Metric, &smp.SnapshotID, &capturedAt, &smp.GameDay, &smp.Value); err != nil {
			return nil, fmt.Errorf("timeseries: scan sample: %w", err)
		}
		smp.Entity = domain.EntityKey(entityKey)
		ts, err := time.Parse(time.RFC3339Nano, capturedAt)
		if err != nil {
			return nil, fmt.Errorf("timeseries: parse captured_at %q: %w", capturedAt, err)
		}
		smp.CapturedAt = ts
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("timeseries: series rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) LastTwo(ctx context.Context, entity domain.EntityKey, metric string) ([]domain.MetricSample, error) {
	samples, err := s.Series(ctx, entity, metric)
	if err != nil {
		return nil, err
	}
	return lastTwoOf(samples), nil
}

func (s *SQLStore) Trend(ctx context.Context, entity domain.EntityKey, metric string, windowDays int) (domain.Value, error) {
	samples, err := s.Series(ctx, entity, metric)
	if err != nil {
		return domain.Undefined(), err
	}
	return trendOf(samples, windowDays), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
