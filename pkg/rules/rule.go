// Package rules evaluates declarative threshold rules against the
// metrics of the latest snapshot plus recent trend data, producing
// severity-classified alerts and parameterized action recommendations.
package rules

import (
	"fmt"

	"github.com/venturelens/venturelens/pkg/domain"
)

// Comparator names the relation a rule checks between the observed
// value and its threshold. Crossing comparators additionally need the
// previous observation and can never fire on the first one.
type Comparator string

const (
	CmpLess         Comparator = "<"
	CmpLessEqual    Comparator = "<="
	CmpGreater      Comparator = ">"
	CmpGreaterEqual Comparator = ">="
	CmpEqual        Comparator = "=="
	CmpCrossesBelow Comparator = "crosses_below"
	CmpCrossesAbove Comparator = "crosses_above"
)

func (c Comparator) valid() bool {
	switch c {
	case CmpLess, CmpLessEqual, CmpGreater, CmpGreaterEqual, CmpEqual,
		CmpCrossesBelow, CmpCrossesAbove:
		return true
	}
	return false
}

// NeedsPrior reports whether the comparator requires the previous
// snapshot's sample.
func (c Comparator) NeedsPrior() bool {
	return c == CmpCrossesBelow || c == CmpCrossesAbove
}

// Holds reports whether the relation is satisfied. prior is only
// consulted by crossing comparators; passing nil makes them return
// false.
func (c Comparator) Holds(observed, threshold float64, prior *float64) bool {
	switch c {
	case CmpLess:
		return observed < threshold
	case CmpLessEqual:
		return observed <= threshold
	case CmpGreater:
		return observed > threshold
	case CmpGreaterEqual:
		return observed >= threshold
	case CmpEqual:
		return observed == threshold
	case CmpCrossesBelow:
		return prior != nil && *prior >= threshold && observed < threshold
	case CmpCrossesAbove:
		return prior != nil && *prior <= threshold && observed > threshold
	}
	return false
}

// Phrase renders the comparator for alert messages.
func (c Comparator) Phrase() string {
	switch c {
	case CmpCrossesBelow:
		return "crossed below"
	case CmpCrossesAbove:
		return "crossed above"
	default:
		return string(c)
	}
}

// Scope selects which entities a rule is evaluated for: the synthetic
// company key, or every matching sub-entity present in the snapshot.
type Scope string

const (
	ScopeCompany  Scope = "company"
	ScopeFeature  Scope = "feature"
	ScopeProduct  Scope = "product"
	ScopeRole     Scope = "role"
	ScopeEmployee Scope = "employee"
)

func (s Scope) valid() bool {
	switch s {
	case ScopeCompany, ScopeFeature, ScopeProduct, ScopeRole, ScopeEmployee:
		return true
	}
	return false
}

// entityPrefix is how scoped entity keys are recognized in a MetricSet.
func (s Scope) entityPrefix() string {
	if s == ScopeCompany {
		return string(domain.KeyCompany)
	}
	return string(s) + "/"
}

// ValueSource selects whether the rule compares the metric level from
// the current snapshot or its windowed rate of change from the store.
type ValueSource string

const (
	SourceLevel ValueSource = "level"
	SourceTrend ValueSource = "trend"
)

// CommandTemplate is the parameterized action a fired rule instantiates
// against the live snapshot.
type CommandTemplate struct {
	// Action is the game command identifier, e.g. HIRE_ADDITIONAL_STAFF.
	Action string `yaml:"action" json:"action"`
	// Summary is the human instruction shown with the recommendation.
	Summary string `yaml:"summary" json:"summary"`
	// Expected is the expected-outcome template; {observed},
	// {threshold}, {delta}, {entity} and {metric} are substituted.
	Expected string `yaml:"expected" json:"expected"`
	// CostPerUnit, when set, estimates cost as units past threshold
	// times this figure.
	CostPerUnit *float64 `yaml:"cost_per_unit,omitempty" json:"cost_per_unit,omitempty"`
}

// Rule is one static, declarative threshold record. Rules never mutate
// at runtime; evaluation order is declaration order and every matching
// rule fires independently.
type Rule struct {
	ID         string          `yaml:"id" json:"id"`
	Metric     string          `yaml:"metric" json:"metric"`
	Scope      Scope           `yaml:"scope" json:"scope"`
	Comparator Comparator      `yaml:"comparator" json:"comparator"`
	Threshold  float64         `yaml:"threshold" json:"threshold"`
	Severity   domain.Severity `yaml:"severity" json:"severity"`
	Source     ValueSource     `yaml:"source,omitempty" json:"source,omitempty"`
	WindowDays int             `yaml:"window_days,omitempty" json:"window_days,omitempty"`
	Command    CommandTemplate `yaml:"command" json:"command"`
}

// RuleSet is an ordered list of rules, already validated against the
// metric vocabulary.
type RuleSet struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func (rs *RuleSet) String() string {
	return fmt.Sprintf("rule set (%d rules)", len(rs.Rules))
}
