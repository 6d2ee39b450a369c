package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/venturelens/venturelens/pkg/domain"
	"github.com/venturelens/venturelens/pkg/metrics"
)

// LoadFile reads and validates a rule-set file. Validation happens here,
// before any evaluation pass, never mid-pass.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules: %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a YAML rule set and validates every rule against the
// metric vocabulary. All problems are reported together in one
// *domain.RuleConfigurationError.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}
	if err := Validate(&rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks rule identity, metric vocabulary, scope
// compatibility, comparator, severity, and command shape.
func Validate(rs *RuleSet) error {
	var issues []domain.RuleIssue
	add := func(ruleID, field, format string, args ...interface{}) {
		issues = append(issues, domain.RuleIssue{
			RuleID:  ruleID,
			Field:   field,
			Problem: fmt.Sprintf(format, args...),
		})
	}

	if len(rs.Rules) == 0 {
		add("", "rules", "rule set is empty")
	}

	seen := make(map[string]bool)
	for i := range rs.Rules {
		r := &rs.Rules[i]

		if r.ID == "" {
			add(r.ID, "id", "rule %d has no id", i)
		} else if seen[r.ID] {
			add(r.ID, "id", "duplicate rule id")
		}
		seen[r.ID] = true

		if !metrics.Known(r.Metric) {
			add(r.ID, "metric", "unknown metric %q", r.Metric)
		}

		if !r.Scope.valid() {
			add(r.ID, "scope", "unknown scope %q", r.Scope)
		} else if metrics.Known(r.Metric) && !scopeAllowed(r.Metric, r.Scope) {
			add(r.ID, "scope", "metric %q is not emitted for scope %q", r.Metric, r.Scope)
		}

		if !r.Comparator.valid() {
			add(r.ID, "comparator", "malformed comparator %q", r.Comparator)
		}

		if _, err := domain.ParseSeverity(string(r.Severity)); err != nil {
			add(r.ID, "severity", "%v", err)
		}

		switch r.Source {
		case "":
			r.Source = SourceLevel
		case SourceLevel:
		case SourceTrend:
			if r.WindowDays <= 0 {
				add(r.ID, "window_days", "trend rules need a positive window")
			}
		default:
			add(r.ID, "source", "unknown value source %q", r.Source)
		}

		if r.Command.Action == "" {
			add(r.ID, "command.action", "command has no action")
		}
	}

	if len(issues) > 0 {
		return &domain.RuleConfigurationError{Issues: issues}
	}
	return nil
}

func scopeAllowed(metric string, scope Scope) bool {
	for _, class := range metrics.Scopes(metric) {
		if string(class) == string(scope) {
			return true
		}
	}
	return false
}
