package domain

import (
	"fmt"
	"strings"
)

// FieldIssue describes one required top-level field that was missing or
// carried the wrong primitive type.
type FieldIssue struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

func (i FieldIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Problem)
}

// SchemaValidationError rejects a snapshot whose required top-level shape
// is broken. Ingestion of that snapshot stops; prior history is untouched.
type SchemaValidationError struct {
	Issues []FieldIssue `json:"issues"`
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return "snapshot schema validation failed: " + strings.Join(parts, "; ")
}

// RuleIssue describes one invalid rule in a loaded rule set.
type RuleIssue struct {
	RuleID  string `json:"rule_id"`
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

func (i RuleIssue) String() string {
	return fmt.Sprintf("rule %q field %q: %s", i.RuleID, i.Field, i.Problem)
}

// RuleConfigurationError is raised at configuration load time, before any
// evaluation pass, when a rule references an unknown metric or carries a
// malformed comparator, severity, or scope.
type RuleConfigurationError struct {
	Issues []RuleIssue `json:"issues"`
}

func (e *RuleConfigurationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return "rule configuration invalid: " + strings.Join(parts, "; ")
}
