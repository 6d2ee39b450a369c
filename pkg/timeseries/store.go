// Package timeseries is the append-only metrics history. Samples are
// keyed by (entity, metric), ordered by game day, and deduplicated by
// snapshot fingerprint so re-ingesting a save is a no-op.
package timeseries

import (
	"context"

	"github.com/venturelens/venturelens/pkg/domain"
)

// Store is the persistence contract. Any backend satisfying append
// idempotence on (entity, metric, snapshot) and game-day ordering is
// conformant.
type Store interface {
	// Append inserts the samples, skipping any whose
	// (entity, metric, snapshot) key already exists. Returns the number
	// actually inserted.
	Append(ctx context.Context, samples []domain.MetricSample) (int, error)

	// HasSnapshot reports whether any sample from the snapshot has been
	// ingested before.
	HasSnapshot(ctx context.Context, snapshotID string) (bool, error)

	// Series returns all samples of one series ordered by game day,
	// then capture time.
	Series(ctx context.Context, entity domain.EntityKey, metric string) ([]domain.MetricSample, error)

	// LastTwo returns up to the two most recent samples of a series
	// from distinct snapshots, oldest first. Crossing rules need the
	// prior observation.
	LastTwo(ctx context.Context, entity domain.EntityKey, metric string) ([]domain.MetricSample, error)

	// Trend returns the signed rate of change per game day over the
	// trailing window, or the undefined sentinel with fewer than two
	// points inside it.
	Trend(ctx context.Context, entity domain.EntityKey, metric string, windowDays int) (domain.Value, error)

	Close() error
}

// trendOf computes the windowed rate of change for an ordered series.
func trendOf(samples []domain.MetricSample, windowDays int) domain.Value {
	if len(samples) < 2 {
		return domain.Undefined()
	}
	last := samples[len(samples)-1]
	cutoff := last.GameDay - windowDays

	var window []domain.MetricSample
	for _, s := range samples {
		if s.GameDay >= cutoff {
			window = append(window, s)
		}
	}
	if len(window) < 2 {
		return domain.Undefined()
	}
	first := window[0]
	span := last.GameDay - first.GameDay
	if span <= 0 {
		return domain.Undefined()
	}
	return domain.DefinedValue((last.Value - first.Value) / float64(span))
}

// lastTwoOf picks the trailing pair from distinct snapshots.
func lastTwoOf(samples []domain.MetricSample) []domain.MetricSample {
	if len(samples) == 0 {
		return nil
	}
	last := samples[len(samples)-1]
	for i := len(samples) - 2; i >= 0; i-- {
		if samples[i].SnapshotID != last.SnapshotID {
			return []domain.MetricSample{samples[i], last}
		}
	}
	return []domain.MetricSample{last}
}
