package rules

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/venturelens/venturelens/pkg/domain"
	"github.com/venturelens/venturelens/pkg/metrics"
	"github.com/venturelens/venturelens/pkg/timeseries"
)

func testSnapshot(id string, day int) *domain.NormalizedSnapshot {
	return &domain.NormalizedSnapshot{
		SnapshotID: id,
		GameDay:    day,
		Known: domain.KnownFields{
			Finances: domain.Finances{Balance: 10012},
		},
	}
}

func satisfactionRules() *RuleSet {
	return &RuleSet{Rules: []Rule{
		{
			ID: "satisfaction-low", Metric: metrics.MetricSatisfaction,
			Scope: ScopeCompany, Comparator: CmpLess, Threshold: 60,
			Severity: domain.SeverityHigh,
			Command:  CommandTemplate{Action: "ASSIGN_BUG_FIXES_AND_IMPROVEMENTS"},
		},
		{
			ID: "satisfaction-critical", Metric: metrics.MetricSatisfaction,
			Scope: ScopeCompany, Comparator: CmpLess, Threshold: 50,
			Severity: domain.SeverityCritical,
			Command:  CommandTemplate{Action: "ASSIGN_BUG_FIXES_AND_IMPROVEMENTS"},
		},
	}}
}

func newTestEngine(t *testing.T, rs *RuleSet) (*Engine, timeseries.Store) {
	lg := zaptest.NewLogger(t)
	store := timeseries.NewMemoryStore(lg)
	return NewEngine(rs, store, lg), store
}

func TestStrictComparatorBoundary(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{{
		ID: "satisfaction-low", Metric: metrics.MetricSatisfaction,
		Scope: ScopeCompany, Comparator: CmpLess, Threshold: 60,
		Severity: domain.SeverityHigh,
		Command:  CommandTemplate{Action: "ASSIGN_BUG_FIXES_AND_IMPROVEMENTS"},
	}}}
	engine, _ := newTestEngine(t, rs)
	snap := testSnapshot("snap-1", 10)

	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(60))
	alerts, _, err := engine.Evaluate(context.Background(), snap, set)
	require.NoError(t, err)
	assert.Empty(t, alerts, "satisfaction == 60 must not fire a strict < 60 rule")

	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(59.999))
	alerts, _, err = engine.Evaluate(context.Background(), snap, set)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 59.999, alerts[0].Observed)
}

func TestAllMatchingRulesFire(t *testing.T) {
	// Satisfaction 42 violates both the <60 HIGH and <50 CRITICAL
	// rules; no first-match suppression.
	engine, _ := newTestEngine(t, satisfactionRules())
	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(42))

	alerts, recs, err := engine.Evaluate(context.Background(), testSnapshot("snap-1", 10), set)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, domain.SeverityCritical, alerts[1].Severity)
	assert.Len(t, recs, 2)
}

func TestUndefinedValueSuppressesRule(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{{
		ID: "runway-critical", Metric: metrics.MetricRunwayDays,
		Scope: ScopeCompany, Comparator: CmpLess, Threshold: 30,
		Severity: domain.SeverityCritical,
		Command:  CommandTemplate{Action: "REDUCE_EXPENSES_OR_INCREASE_REVENUE"},
	}}}
	engine, _ := newTestEngine(t, rs)

	// Runway is undefined on a first snapshot even with a dire balance.
	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricRunwayDays, domain.Undefined())

	alerts, recs, err := engine.Evaluate(context.Background(), testSnapshot("snap-1", 10), set)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, recs)
}

func TestPerEntityScopeResolution(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{{
		ID: "quality-gap-wide", Metric: metrics.MetricQualityGap,
		Scope: ScopeFeature, Comparator: CmpGreater, Threshold: 20,
		Severity: domain.SeverityMedium,
		Command:  CommandTemplate{Action: "UPGRADE_FEATURE_QUALITY"},
	}}}
	engine, _ := newTestEngine(t, rs)

	set := domain.NewMetricSet()
	set.Set(domain.FeatureKey("Landing Page"), metrics.MetricQualityGap, domain.DefinedValue(50))
	set.Set(domain.FeatureKey("Login System"), metrics.MetricQualityGap, domain.DefinedValue(5))
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(42))

	alerts, _, err := engine.Evaluate(context.Background(), testSnapshot("snap-1", 10), set)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.FeatureKey("Landing Page"), alerts[0].Entity)
}

func TestCrossingRules(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{{
		ID: "satisfaction-crossed", Metric: metrics.MetricSatisfaction,
		Scope: ScopeCompany, Comparator: CmpCrossesBelow, Threshold: 60,
		Severity: domain.SeverityHigh,
		Command:  CommandTemplate{Action: "ASSIGN_BUG_FIXES_AND_IMPROVEMENTS"},
	}}}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	appendSat := func(snapshot string, day int, v float64) {
		_, err := store.Append(ctx, []domain.MetricSample{{
			Entity: domain.KeyCompany, Metric: metrics.MetricSatisfaction,
			SnapshotID: snapshot, CapturedAt: time.Now().UTC(), GameDay: day, Value: v,
		}})
		require.NoError(t, err)
	}

	// First observation: below threshold but no prior sample, cannot fire.
	appendSat("snap-1", 1, 55)
	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(55))
	alerts, _, err := engine.Evaluate(ctx, testSnapshot("snap-1", 1), set)
	require.NoError(t, err)
	assert.Empty(t, alerts, "a crossing rule cannot fire on the first observation")

	// Recovers above, then crosses below: fires exactly once.
	appendSat("snap-2", 2, 65)
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(65))
	alerts, _, err = engine.Evaluate(ctx, testSnapshot("snap-2", 2), set)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	appendSat("snap-3", 3, 58)
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(58))
	alerts, _, err = engine.Evaluate(ctx, testSnapshot("snap-3", 3), set)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "crossed below")

	// Still below on the next pass: no new crossing.
	appendSat("snap-4", 4, 57)
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(57))
	alerts, _, err = engine.Evaluate(ctx, testSnapshot("snap-4", 4), set)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestTrendSourcedRule(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{{
		ID: "satisfaction-declining", Metric: metrics.MetricSatisfaction,
		Scope: ScopeCompany, Comparator: CmpLess, Threshold: -1,
		Severity: domain.SeverityMedium, Source: SourceTrend, WindowDays: 7,
		Command: CommandTemplate{Action: "INVESTIGATE_SATISFACTION_DROP"},
	}}}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	for day, v := range map[int]float64{1: 70, 3: 64, 5: 58} {
		_, err := store.Append(ctx, []domain.MetricSample{{
			Entity: domain.KeyCompany, Metric: metrics.MetricSatisfaction,
			SnapshotID: string(rune('a' + day)), CapturedAt: time.Now().UTC(),
			GameDay: day, Value: v,
		}})
		require.NoError(t, err)
	}

	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(58))

	alerts, _, err := engine.Evaluate(ctx, testSnapshot("snap-x", 5), set)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.InDelta(t, -3.0, alerts[0].Observed, 1e-9)
}

func TestEvaluationDeterminism(t *testing.T) {
	engine, _ := newTestEngine(t, satisfactionRules())
	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricSatisfaction, domain.DefinedValue(42))
	snap := testSnapshot("snap-1", 10)

	alertsA, recsA, err := engine.Evaluate(context.Background(), snap, set)
	require.NoError(t, err)
	alertsB, recsB, err := engine.Evaluate(context.Background(), snap, set)
	require.NoError(t, err)

	jsonA, err := json.Marshal(struct {
		A []domain.Alert
		R []domain.ActionRecommendation
	}{alertsA, recsA})
	require.NoError(t, err)
	jsonB, err := json.Marshal(struct {
		A []domain.Alert
		R []domain.ActionRecommendation
	}{alertsB, recsB})
	require.NoError(t, err)
	assert.Equal(t, string(jsonA), string(jsonB))
}

func TestRecommendationTemplating(t *testing.T) {
	cost := 2500.0
	rs := &RuleSet{Rules: []Rule{{
		ID: "runway-critical", Metric: metrics.MetricRunwayDays,
		Scope: ScopeCompany, Comparator: CmpLess, Threshold: 30,
		Severity: domain.SeverityCritical,
		Command: CommandTemplate{
			Action:      "REDUCE_EXPENSES_OR_INCREASE_REVENUE",
			Expected:    "extend runway from {observed} to above {threshold} days",
			CostPerUnit: &cost,
		},
	}}}
	engine, _ := newTestEngine(t, rs)

	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, metrics.MetricRunwayDays, domain.DefinedValue(4.04))

	_, recs, err := engine.Evaluate(context.Background(), testSnapshot("snap-1", 10), set)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "extend runway from 4.04 to above 30.00 days", rec.ExpectedResult)
	assert.Equal(t, "4.04", rec.Parameters["observed"])
	assert.Equal(t, "10012.00", rec.Parameters["balance"])
	require.NotNil(t, rec.CostEstimate)
	assert.InDelta(t, 2500*(30-4.04), *rec.CostEstimate, 1e-6)
}
