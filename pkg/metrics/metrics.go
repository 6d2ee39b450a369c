// Package metrics derives computed metrics (ratios, rates, runway,
// utilization) from a normalized snapshot. Every division guards its
// denominator by returning the undefined sentinel, never NaN or zero.
package metrics

// Metric names form the vocabulary rule configuration is validated
// against at load time.
const (
	MetricBalance       = "balance"
	MetricRunwayDays    = "cash_runway_days"
	MetricMonthlyBurn   = "monthly_burn_rate"
	MetricDailyBurn     = "daily_burn_rate"
	MetricSatisfaction  = "user_satisfaction"
	MetricUsers         = "total_users"
	MetricUtilization   = "team_utilization"
	MetricCUUtilization = "cu_utilization"
	MetricThroughput    = "component_throughput"
	MetricQualityGap    = "quality_gap"
	MetricEfficiencyGap = "efficiency_gap"
	MetricMood          = "employee_mood"
)

// ScopeClass names the kind of entity a metric is computed for.
type ScopeClass string

const (
	ScopeCompany  ScopeClass = "company"
	ScopeFeature  ScopeClass = "feature"
	ScopeProduct  ScopeClass = "product"
	ScopeRole     ScopeClass = "role"
	ScopeEmployee ScopeClass = "employee"
)

// metricScopes maps each metric to the scope classes it is emitted for.
var metricScopes = map[string][]ScopeClass{
	MetricBalance:       {ScopeCompany},
	MetricRunwayDays:    {ScopeCompany},
	MetricMonthlyBurn:   {ScopeCompany},
	MetricDailyBurn:     {ScopeCompany},
	MetricSatisfaction:  {ScopeCompany, ScopeProduct},
	MetricUsers:         {ScopeCompany, ScopeProduct},
	MetricUtilization:   {ScopeCompany},
	MetricCUUtilization: {ScopeCompany},
	MetricThroughput:    {ScopeRole},
	MetricQualityGap:    {ScopeFeature},
	MetricEfficiencyGap: {ScopeFeature},
	MetricMood:          {ScopeEmployee},
}

// Known reports whether a metric name is part of the vocabulary.
func Known(metric string) bool {
	_, ok := metricScopes[metric]
	return ok
}

// Scopes returns the scope classes a metric is emitted for, nil for an
// unknown metric.
func Scopes(metric string) []ScopeClass {
	return metricScopes[metric]
}

// Names returns the full metric vocabulary.
func Names() []string {
	out := make([]string, 0, len(metricScopes))
	for name := range metricScopes {
		out = append(out, name)
	}
	return out
}
