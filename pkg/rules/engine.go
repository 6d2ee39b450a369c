package rules

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/venturelens/venturelens/pkg/domain"
	"github.com/venturelens/venturelens/pkg/timeseries"
)

// Engine runs one evaluation pass over a snapshot's metrics. It keeps no
// state between passes; every pass recomputes alerts from scratch, and a
// rule whose condition still holds fires again. Noise suppression is the
// presentation layer's concern.
type Engine struct {
	rules *RuleSet
	store timeseries.Store
	lg    *zap.Logger
}

func NewEngine(rs *RuleSet, store timeseries.Store, lg *zap.Logger) *Engine {
	return &Engine{rules: rs, store: store, lg: lg}
}

// Evaluate applies every rule in declaration order. All matching rules
// fire independently; severity ordering happens at presentation time.
func (e *Engine) Evaluate(ctx context.Context, snap *domain.NormalizedSnapshot, set *domain.MetricSet) ([]domain.Alert, []domain.ActionRecommendation, error) {
	var alerts []domain.Alert
	var recs []domain.ActionRecommendation

	for _, rule := range e.rules.Rules {
		for _, entity := range e.resolveScope(rule, set) {
			observed, err := e.observe(ctx, rule, entity, set)
			if err != nil {
				return nil, nil, fmt.Errorf("rules: evaluate %s for %s: %w", rule.ID, entity, err)
			}
			if !observed.IsDefined() {
				// Undefined never satisfies nor violates a threshold.
				continue
			}

			var prior *float64
			if rule.Comparator.NeedsPrior() {
				p, err := e.priorSample(ctx, rule, entity, snap.SnapshotID)
				if err != nil {
					return nil, nil, fmt.Errorf("rules: prior sample for %s: %w", rule.ID, err)
				}
				if p == nil {
					// A crossing cannot fire on the first observation.
					continue
				}
				prior = p
			}

			if !rule.Comparator.Holds(observed.Float(), rule.Threshold, prior) {
				continue
			}

			alert, rec := e.fire(rule, entity, observed.Float(), snap)
			alerts = append(alerts, alert)
			recs = append(recs, rec)
		}
	}

	e.lg.Debug("evaluation pass complete",
		zap.String("snapshot_id", snap.SnapshotID),
		zap.Int("rules", len(e.rules.Rules)),
		zap.Int("alerts", len(alerts)))
	return alerts, recs, nil
}

// resolveScope maps a rule's scope onto the concrete entities present
// in this pass. Global rules resolve to the single synthetic company
// key; per-entity rules resolve to every matching entity.
func (e *Engine) resolveScope(rule Rule, set *domain.MetricSet) []domain.EntityKey {
	if rule.Scope == ScopeCompany {
		return []domain.EntityKey{domain.KeyCompany}
	}
	prefix := rule.Scope.entityPrefix()
	var out []domain.EntityKey
	for _, entity := range set.Entities(rule.Metric) {
		if strings.HasPrefix(string(entity), prefix) {
			out = append(out, entity)
		}
	}
	return out
}

func (e *Engine) observe(ctx context.Context, rule Rule, entity domain.EntityKey, set *domain.MetricSet) (domain.Value, error) {
	if rule.Source == SourceTrend {
		return e.store.Trend(ctx, entity, rule.Metric, rule.WindowDays)
	}
	return set.Get(entity, rule.Metric), nil
}

// priorSample returns the latest stored value for the series that came
// from a different snapshot than the current one, or nil when none
// exists.
func (e *Engine) priorSample(ctx context.Context, rule Rule, entity domain.EntityKey, snapshotID string) (*float64, error) {
	pair, err := e.store.LastTwo(ctx, entity, rule.Metric)
	if err != nil {
		return nil, err
	}
	for i := len(pair) - 1; i >= 0; i-- {
		if pair[i].SnapshotID != snapshotID {
			v := pair[i].Value
			return &v, nil
		}
	}
	return nil, nil
}

func (e *Engine) fire(rule Rule, entity domain.EntityKey, observed float64, snap *domain.NormalizedSnapshot) (domain.Alert, domain.ActionRecommendation) {
	delta := observed - rule.Threshold

	alert := domain.Alert{
		// Deterministic identity: the same snapshot and rule always
		// produce the same alert.
		ID:        fmt.Sprintf("%s:%s:%s", rule.ID, entity, snap.SnapshotID),
		RuleID:    rule.ID,
		Entity:    entity,
		Metric:    rule.Metric,
		Observed:  observed,
		Threshold: rule.Threshold,
		Severity:  rule.Severity,
		Message: fmt.Sprintf("%s %s %s %s for %s",
			rule.Metric, fmtNum(observed), rule.Comparator.Phrase(), fmtNum(rule.Threshold), entity),
	}

	params := map[string]string{
		"observed":  fmtNum(observed),
		"threshold": fmtNum(rule.Threshold),
		"delta":     fmtNum(delta),
		"balance":   fmtNum(snap.Known.Finances.Balance),
	}
	if rule.Command.Summary != "" {
		params["summary"] = rule.Command.Summary
	}

	rec := domain.ActionRecommendation{
		Command:        rule.Command.Action,
		Target:         entity,
		Parameters:     params,
		ExpectedResult: expandTemplate(rule.Command.Expected, rule.Metric, entity, observed, rule.Threshold, delta),
		Severity:       rule.Severity,
		Observed:       observed,
		Threshold:      rule.Threshold,
	}
	if rule.Command.CostPerUnit != nil {
		cost := *rule.Command.CostPerUnit * abs(delta)
		rec.CostEstimate = &cost
	}
	return alert, rec
}

func expandTemplate(tmpl, metric string, entity domain.EntityKey, observed, threshold, delta float64) string {
	if tmpl == "" {
		return fmt.Sprintf("move %s from %s to %s", metric, fmtNum(observed), fmtNum(threshold))
	}
	return strings.NewReplacer(
		"{observed}", fmtNum(observed),
		"{threshold}", fmtNum(threshold),
		"{delta}", fmtNum(delta),
		"{metric}", metric,
		"{entity}", string(entity),
	).Replace(tmpl)
}

func fmtNum(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
