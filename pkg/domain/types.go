package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity classifies how urgent a fired rule is. It is intrinsic to the
// rule, never derived from how far a value sits past its threshold.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns a numeric weight for ordering, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity converts a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// EntityKey scopes a metric to the company as a whole or to a specific
// sub-object such as a feature, employee role, or product.
type EntityKey string

// KeyCompany is the synthetic entity for company-wide metrics.
const KeyCompany EntityKey = "company"

func FeatureKey(name string) EntityKey { return EntityKey("feature/" + name) }
func ProductKey(name string) EntityKey { return EntityKey("product/" + name) }
func RoleKey(role string) EntityKey    { return EntityKey("role/" + role) }
func EmployeeKey(name string) EntityKey {
	return EntityKey("employee/" + name)
}

// Value is the undefined-metric sentinel. An undefined Value means "not
// computable yet" and is distinct from zero; rules must skip it rather
// than compare against it.
type Value struct {
	defined bool
	v       float64
}

// DefinedValue wraps a computed metric value.
func DefinedValue(v float64) Value { return Value{defined: true, v: v} }

// Undefined returns the not-computable sentinel.
func Undefined() Value { return Value{} }

// IsDefined reports whether the value can be compared against thresholds.
func (v Value) IsDefined() bool { return v.defined }

// Float returns the underlying value. Only meaningful when IsDefined.
func (v Value) Float() float64 { return v.v }

// MarshalJSON renders undefined values as null so a report consumer can
// never mistake them for a real zero.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.defined {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts null as undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = DefinedValue(f)
	return nil
}

// MetricSample is one immutable point in a time series.
type MetricSample struct {
	Entity     EntityKey `json:"entity"`
	Metric     string    `json:"metric"`
	SnapshotID string    `json:"snapshot_id"`
	CapturedAt time.Time `json:"captured_at"`
	GameDay    int       `json:"game_day"`
	Value      float64   `json:"value"`
}

// Alert records one rule firing for one entity during an evaluation pass.
type Alert struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"rule_id"`
	Entity    EntityKey `json:"entity"`
	Metric    string    `json:"metric"`
	Observed  float64   `json:"observed"`
	Threshold float64   `json:"threshold"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// ActionRecommendation is a concrete, parameterized game action derived
// from a fired rule plus the live snapshot state.
type ActionRecommendation struct {
	Command        string            `json:"command"`
	Target         EntityKey         `json:"target"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	ExpectedResult string            `json:"expected_result"`
	Severity       Severity          `json:"severity"`
	Priority       int               `json:"priority"`
	Observed       float64           `json:"observed"`
	Threshold      float64           `json:"threshold"`
	CostEstimate   *float64          `json:"cost_estimate,omitempty"`
}

// Magnitude is how far the observed value sits past the threshold, used
// for presentation ordering only.
func (r ActionRecommendation) Magnitude() float64 {
	d := r.Observed - r.Threshold
	if d < 0 {
		return -d
	}
	return d
}

// Report is the full output of one evaluation pass. It is recomputed
// wholesale per pass and holds no references into store internals.
type Report struct {
	ReportID        string                 `json:"report_id"`
	SnapshotID      string                 `json:"snapshot_id"`
	GameDay         int                    `json:"game_day"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Duplicate       bool                   `json:"duplicate,omitempty"`
	Metrics         map[string]Value       `json:"metrics"`
	Alerts          []Alert                `json:"alerts"`
	Recommendations []ActionRecommendation `json:"recommendations"`
}
