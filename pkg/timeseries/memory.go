package timeseries

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/venturelens/venturelens/pkg/domain"
)

// MemoryStore keeps the history in process memory, for tests and
// zero-config runs. Semantics match the SQL store exactly, including
// snapshot-level append idempotence.
type MemoryStore struct {
	mu        sync.Mutex
	series    map[string][]domain.MetricSample
	snapshots map[string]bool
	lg        *zap.Logger
}

func NewMemoryStore(lg *zap.Logger) *MemoryStore {
	return &MemoryStore{
		series:    make(map[string][]domain.MetricSample),
		snapshots: make(map[string]bool),
		lg:        lg,
	}
}

func seriesKey(entity domain.EntityKey, metric string) string {
	return string(entity) + "\x00" + metric
}

func (m *MemoryStore) Append(_ context.Context, samples []domain.MetricSample) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, s := range samples {
		key := seriesKey(s.Entity, s.Metric)
		if m.hasSample(key, s.SnapshotID) {
			continue
		}
		series := append(m.series[key], s)
		// Out-of-order insertion happens when the player reloads an
		// older save; ordering is always by game day, never wall clock.
		sort.SliceStable(series, func(i, j int) bool {
			if series[i].GameDay != series[j].GameDay {
				return series[i].GameDay < series[j].GameDay
			}
			return series[i].CapturedAt.Before(series[j].CapturedAt)
		})
		m.series[key] = series
		m.snapshots[s.SnapshotID] = true
		inserted++
	}
	if inserted < len(samples) {
		m.lg.Debug("duplicate samples skipped",
			zap.Int("requested", len(samples)), zap.Int("inserted", inserted))
	}
	return inserted, nil
}

func (m *MemoryStore) hasSample(key, snapshotID string) bool {
	for _, s := range m.series[key] {
		if s.SnapshotID == snapshotID {
			return true
		}
	}
	return false
}

func (m *MemoryStore) HasSnapshot(_ context.Context, snapshotID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[snapshotID], nil
}

func (m *MemoryStore) Series(_ context.Context, entity domain.EntityKey, metric string) ([]domain.MetricSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.series[seriesKey(entity, metric)]
	out := make([]domain.MetricSample, len(src))
	copy(out, src)
	return out, nil
}

func (m *MemoryStore) LastTwo(ctx context.Context, entity domain.EntityKey, metric string) ([]domain.MetricSample, error) {
	samples, err := m.Series(ctx, entity, metric)
	if err != nil {
		return nil, err
	}
	return lastTwoOf(samples), nil
}

func (m *MemoryStore) Trend(ctx context.Context, entity domain.EntityKey, metric string, windowDays int) (domain.Value, error) {
	samples, err := m.Series(ctx, entity, metric)
	if err != nil {
		return domain.Undefined(), err
	}
	return trendOf(samples, windowDays), nil
}

func (m *MemoryStore) Close() error { return nil }
