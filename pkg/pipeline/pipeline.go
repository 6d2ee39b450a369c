// Package pipeline composes the normalizer, calculator, store, rule
// engine, and assembler into the single ingest-and-evaluate operation
// the CLI exposes.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/venturelens/venturelens/pkg/domain"
	"github.com/venturelens/venturelens/pkg/metrics"
	"github.com/venturelens/venturelens/pkg/normalize"
	"github.com/venturelens/venturelens/pkg/report"
	"github.com/venturelens/venturelens/pkg/rules"
	"github.com/venturelens/venturelens/pkg/timeseries"
)

type Pipeline struct {
	normalizer *normalize.Normalizer
	calculator *metrics.Calculator
	store      timeseries.Store
	engine     *rules.Engine
	assembler  *report.Assembler
	lg         *zap.Logger
	now        func() time.Time
}

func New(store timeseries.Store, ruleSet *rules.RuleSet, opts metrics.Options, lg *zap.Logger) *Pipeline {
	return &Pipeline{
		normalizer: normalize.New(lg),
		calculator: metrics.NewCalculator(opts),
		store:      store,
		engine:     rules.NewEngine(ruleSet, store, lg),
		assembler:  report.NewAssembler(lg),
		lg:         lg,
		now:        time.Now,
	}
}

// Run ingests one raw save document and produces the evaluation report.
// Re-running the same document marks the report as duplicate and appends
// nothing new, but still evaluates, so a re-run yields the same alerts.
func (p *Pipeline) Run(ctx context.Context, raw []byte) (*domain.Report, error) {
	capturedAt := p.now().UTC()

	snap, err := p.normalizer.Normalize(raw, capturedAt)
	if err != nil {
		return nil, err
	}

	duplicate, err := p.store.HasSnapshot(ctx, snap.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: duplicate check: %w", err)
	}

	history, err := p.balanceHistory(ctx, snap.SnapshotID)
	if err != nil {
		return nil, err
	}

	set := p.calculator.Compute(snap, history)

	inserted, err := p.store.Append(ctx, samplesOf(snap, set))
	if err != nil {
		return nil, fmt.Errorf("pipeline: append samples: %w", err)
	}

	alerts, recs, err := p.engine.Evaluate(ctx, snap, set)
	if err != nil {
		return nil, err
	}

	p.lg.Info("snapshot processed",
		zap.String("snapshot_id", snap.SnapshotID),
		zap.Int("game_day", snap.GameDay),
		zap.Int("samples_inserted", inserted),
		zap.Bool("duplicate", duplicate))

	return p.assembler.Assemble(snap, set, alerts, recs, duplicate), nil
}

// BackfillResult summarizes a bulk ingest.
type BackfillResult struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
}

// Backfill ingests a batch of raw save documents. Documents are ordered
// by game day before processing so trend and runway windows see history
// in the order it happened, regardless of file order. Duplicates count
// as skipped.
func (p *Pipeline) Backfill(ctx context.Context, docs [][]byte) (*BackfillResult, []*domain.Report, error) {
	type staged struct {
		raw  []byte
		snap *domain.NormalizedSnapshot
	}
	capturedAt := p.now().UTC()

	batch := make([]staged, 0, len(docs))
	for i, raw := range docs {
		snap, err := p.normalizer.Normalize(raw, capturedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: backfill document %d: %w", i, err)
		}
		batch = append(batch, staged{raw: raw, snap: snap})
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].snap.GameDay < batch[j].snap.GameDay
	})

	res := &BackfillResult{}
	reports := make([]*domain.Report, 0, len(batch))
	for _, s := range batch {
		rpt, err := p.Run(ctx, s.raw)
		if err != nil {
			return nil, nil, err
		}
		if rpt.Duplicate {
			res.Skipped++
		} else {
			res.Ingested++
		}
		reports = append(reports, rpt)
	}

	p.lg.Info("backfill complete",
		zap.Int("ingested", res.Ingested),
		zap.Int("skipped", res.Skipped))
	return res, reports, nil
}

// balanceHistory loads prior company balance observations, excluding
// points produced by the snapshot being processed so a re-ingest does
// not see itself as history.
func (p *Pipeline) balanceHistory(ctx context.Context, snapshotID string) ([]metrics.BalancePoint, error) {
	samples, err := p.store.Series(ctx, domain.KeyCompany, metrics.MetricBalance)
	if err != nil {
		return nil, fmt.Errorf("pipeline: balance history: %w", err)
	}
	points := make([]metrics.BalancePoint, 0, len(samples))
	for _, s := range samples {
		if s.SnapshotID == snapshotID {
			continue
		}
		points = append(points, metrics.BalancePoint{GameDay: s.GameDay, Balance: s.Value})
	}
	return points, nil
}

// samplesOf flattens the defined points of a metric set into store
// samples. Undefined values are never persisted.
func samplesOf(snap *domain.NormalizedSnapshot, set *domain.MetricSet) []domain.MetricSample {
	points := set.Points()
	out := make([]domain.MetricSample, 0, len(points))
	for _, pt := range points {
		if !pt.Value.IsDefined() {
			continue
		}
		out = append(out, domain.MetricSample{
			Entity:     pt.Entity,
			Metric:     pt.Metric,
			SnapshotID: snap.SnapshotID,
			CapturedAt: snap.CapturedAt,
			GameDay:    snap.GameDay,
			Value:      pt.Value.Float(),
		})
	}
	return out
}
