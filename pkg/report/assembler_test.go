package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/venturelens/venturelens/pkg/domain"
)

func rec(cmd string, target domain.EntityKey, sev domain.Severity, observed, threshold float64) domain.ActionRecommendation {
	return domain.ActionRecommendation{
		Command:   cmd,
		Target:    target,
		Severity:  sev,
		Observed:  observed,
		Threshold: threshold,
	}
}

func testSnap() *domain.NormalizedSnapshot {
	return &domain.NormalizedSnapshot{SnapshotID: "snap-1", GameDay: 12}
}

func TestDedupeKeepsHighestSeverity(t *testing.T) {
	// Both satisfaction rules recommend the same fix; only the critical
	// one survives.
	a := NewAssembler(zaptest.NewLogger(t))
	recs := []domain.ActionRecommendation{
		rec("ASSIGN_BUG_FIXES_AND_IMPROVEMENTS", domain.KeyCompany, domain.SeverityHigh, 42, 60),
		rec("ASSIGN_BUG_FIXES_AND_IMPROVEMENTS", domain.KeyCompany, domain.SeverityCritical, 42, 50),
	}

	rpt := a.Assemble(testSnap(), domain.NewMetricSet(), nil, recs, false)
	require.Len(t, rpt.Recommendations, 1)
	assert.Equal(t, domain.SeverityCritical, rpt.Recommendations[0].Severity)
	assert.Equal(t, 1, rpt.Recommendations[0].Priority)
}

func TestDedupeSeverityTieKeepsLargerExcess(t *testing.T) {
	a := NewAssembler(zaptest.NewLogger(t))
	recs := []domain.ActionRecommendation{
		rec("UPGRADE_FEATURE_QUALITY", domain.FeatureKey("Landing Page"), domain.SeverityMedium, 25, 20),
		rec("UPGRADE_FEATURE_QUALITY", domain.FeatureKey("Landing Page"), domain.SeverityMedium, 48, 20),
	}

	rpt := a.Assemble(testSnap(), domain.NewMetricSet(), nil, recs, false)
	require.Len(t, rpt.Recommendations, 1)
	assert.Equal(t, 48.0, rpt.Recommendations[0].Observed)
}

func TestDistinctTargetsSurviveDedupe(t *testing.T) {
	a := NewAssembler(zaptest.NewLogger(t))
	recs := []domain.ActionRecommendation{
		rec("UPGRADE_FEATURE_QUALITY", domain.FeatureKey("Landing Page"), domain.SeverityMedium, 48, 20),
		rec("UPGRADE_FEATURE_QUALITY", domain.FeatureKey("Login System"), domain.SeverityMedium, 30, 20),
	}

	rpt := a.Assemble(testSnap(), domain.NewMetricSet(), nil, recs, false)
	assert.Len(t, rpt.Recommendations, 2)
}

func TestRankingOrderAndPriorities(t *testing.T) {
	a := NewAssembler(zaptest.NewLogger(t))
	recs := []domain.ActionRecommendation{
		rec("ASSIGN_ADDITIONAL_TASKS", domain.KeyCompany, domain.SeverityMedium, 35, 40),
		rec("REDUCE_EXPENSES_OR_INCREASE_REVENUE", domain.KeyCompany, domain.SeverityCritical, 4, 30),
		rec("HIRE_ADDITIONAL_STAFF", domain.KeyCompany, domain.SeverityHigh, 95, 90),
		rec("UPGRADE_SERVER_CAPACITY", domain.KeyCompany, domain.SeverityCritical, 98, 90),
	}

	rpt := a.Assemble(testSnap(), domain.NewMetricSet(), nil, recs, false)
	require.Len(t, rpt.Recommendations, 4)

	// Critical first; within critical, runway is 26 past its threshold
	// while CU is only 8 past.
	assert.Equal(t, "REDUCE_EXPENSES_OR_INCREASE_REVENUE", rpt.Recommendations[0].Command)
	assert.Equal(t, "UPGRADE_SERVER_CAPACITY", rpt.Recommendations[1].Command)
	assert.Equal(t, "HIRE_ADDITIONAL_STAFF", rpt.Recommendations[2].Command)
	assert.Equal(t, "ASSIGN_ADDITIONAL_TASKS", rpt.Recommendations[3].Command)

	for i, r := range rpt.Recommendations {
		assert.Equal(t, i+1, r.Priority)
	}
}

func TestAlertsCarriedUntouched(t *testing.T) {
	a := NewAssembler(zaptest.NewLogger(t))
	alerts := []domain.Alert{
		{ID: "satisfaction-low:company:snap-1", Severity: domain.SeverityHigh},
		{ID: "satisfaction-critical:company:snap-1", Severity: domain.SeverityCritical},
	}
	recs := []domain.ActionRecommendation{
		rec("ASSIGN_BUG_FIXES_AND_IMPROVEMENTS", domain.KeyCompany, domain.SeverityHigh, 42, 60),
		rec("ASSIGN_BUG_FIXES_AND_IMPROVEMENTS", domain.KeyCompany, domain.SeverityCritical, 42, 50),
	}

	rpt := a.Assemble(testSnap(), domain.NewMetricSet(), alerts, recs, false)
	// Dedupe applies to recommendations only; both alerts remain, in
	// evaluation order.
	require.Len(t, rpt.Alerts, 2)
	assert.Equal(t, "satisfaction-low:company:snap-1", rpt.Alerts[0].ID)
}

func TestEmptyPassProducesEmptyReport(t *testing.T) {
	a := NewAssembler(zaptest.NewLogger(t))
	set := domain.NewMetricSet()
	set.Set(domain.KeyCompany, "balance", domain.DefinedValue(10012.5))

	rpt := a.Assemble(testSnap(), set, nil, nil, false)
	assert.NotEmpty(t, rpt.ReportID)
	assert.Equal(t, "snap-1", rpt.SnapshotID)
	assert.Empty(t, rpt.Alerts)
	assert.NotNil(t, rpt.Alerts)
	assert.Empty(t, rpt.Recommendations)
	assert.NotNil(t, rpt.Recommendations)
	assert.Contains(t, rpt.Metrics, "company:balance")
}

func TestDuplicateFlagPropagates(t *testing.T) {
	a := NewAssembler(zaptest.NewLogger(t))
	rpt := a.Assemble(testSnap(), domain.NewMetricSet(), nil, nil, true)
	assert.True(t, rpt.Duplicate)
}
