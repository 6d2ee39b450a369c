package rules

import (
	"github.com/venturelens/venturelens/pkg/domain"
	"github.com/venturelens/venturelens/pkg/metrics"
)

// DefaultRules is the built-in threshold table, used when no rule file
// is configured. Declaration order is evaluation order.
func DefaultRules() *RuleSet {
	return &RuleSet{Rules: []Rule{
		{
			ID:         "runway-critical",
			Metric:     metrics.MetricRunwayDays,
			Scope:      ScopeCompany,
			Comparator: CmpLess,
			Threshold:  30,
			Severity:   domain.SeverityCritical,
			Command: CommandTemplate{
				Action:   "REDUCE_EXPENSES_OR_INCREASE_REVENUE",
				Summary:  "Immediate cost reduction or revenue generation",
				Expected: "extend runway from {observed} to above {threshold} days",
			},
		},
		{
			ID:         "satisfaction-low",
			Metric:     metrics.MetricSatisfaction,
			Scope:      ScopeCompany,
			Comparator: CmpLess,
			Threshold:  60,
			Severity:   domain.SeverityHigh,
			Command: CommandTemplate{
				Action:   "ASSIGN_BUG_FIXES_AND_IMPROVEMENTS",
				Summary:  "Prioritize quality and bug fix tasks over new features",
				Expected: "raise satisfaction from {observed}% to above {threshold}%",
			},
		},
		{
			ID:         "satisfaction-critical",
			Metric:     metrics.MetricSatisfaction,
			Scope:      ScopeCompany,
			Comparator: CmpLess,
			Threshold:  50,
			Severity:   domain.SeverityCritical,
			Command: CommandTemplate{
				Action:   "ASSIGN_BUG_FIXES_AND_IMPROVEMENTS",
				Summary:  "Drop everything and repair user satisfaction",
				Expected: "raise satisfaction from {observed}% to above {threshold}%",
			},
		},
		{
			ID:         "utilization-overload",
			Metric:     metrics.MetricUtilization,
			Scope:      ScopeCompany,
			Comparator: CmpGreater,
			Threshold:  90,
			Severity:   domain.SeverityHigh,
			Command: CommandTemplate{
				Action:   "HIRE_ADDITIONAL_STAFF",
				Summary:  "Hire 1-2 additional producers and assign them to component work",
				Expected: "reduce utilization from {observed}% to below {threshold}%",
			},
		},
		{
			ID:         "utilization-slack",
			Metric:     metrics.MetricUtilization,
			Scope:      ScopeCompany,
			Comparator: CmpLess,
			Threshold:  40,
			Severity:   domain.SeverityMedium,
			Command: CommandTemplate{
				Action:   "ASSIGN_ADDITIONAL_TASKS",
				Summary:  "Add production tasks to underutilized work queues",
				Expected: "raise utilization from {observed}% to above {threshold}%",
			},
		},
		{
			ID:         "cu-critical",
			Metric:     metrics.MetricCUUtilization,
			Scope:      ScopeCompany,
			Comparator: CmpGreater,
			Threshold:  90,
			Severity:   domain.SeverityCritical,
			Command: CommandTemplate{
				Action:   "UPGRADE_SERVER_CAPACITY",
				Summary:  "Add server capacity before users are lost",
				Expected: "reduce CU utilization from {observed}% to below {threshold}%",
			},
		},
		{
			ID:         "cu-warning",
			Metric:     metrics.MetricCUUtilization,
			Scope:      ScopeCompany,
			Comparator: CmpGreater,
			Threshold:  75,
			Severity:   domain.SeverityMedium,
			Command: CommandTemplate{
				Action:   "UPGRADE_SERVER_CAPACITY",
				Summary:  "Plan additional server capacity",
				Expected: "reduce CU utilization from {observed}% to below {threshold}%",
			},
		},
		{
			ID:         "component-rate-low",
			Metric:     metrics.MetricThroughput,
			Scope:      ScopeRole,
			Comparator: CmpLess,
			Threshold:  0.4,
			Severity:   domain.SeverityHigh,
			Command: CommandTemplate{
				Action:   "INCREASE_COMPONENT_PRODUCTION",
				Summary:  "Add component tasks to this role's work queues",
				Expected: "increase production from {observed} to at least {threshold} components per hour",
			},
		},
		{
			ID:         "quality-gap-severe",
			Metric:     metrics.MetricQualityGap,
			Scope:      ScopeFeature,
			Comparator: CmpGreater,
			Threshold:  50,
			Severity:   domain.SeverityHigh,
			Command: CommandTemplate{
				Action:   "UPGRADE_FEATURE_QUALITY",
				Summary:  "Queue quality upgrades for this feature",
				Expected: "close the quality gap of {observed} points to below {threshold}",
			},
		},
		{
			ID:         "quality-gap-wide",
			Metric:     metrics.MetricQualityGap,
			Scope:      ScopeFeature,
			Comparator: CmpGreater,
			Threshold:  20,
			Severity:   domain.SeverityMedium,
			Command: CommandTemplate{
				Action:   "UPGRADE_FEATURE_QUALITY",
				Summary:  "Schedule quality upgrades for this feature",
				Expected: "close the quality gap of {observed} points to below {threshold}",
			},
		},
		{
			ID:         "efficiency-gap-severe",
			Metric:     metrics.MetricEfficiencyGap,
			Scope:      ScopeFeature,
			Comparator: CmpGreater,
			Threshold:  50,
			Severity:   domain.SeverityHigh,
			Command: CommandTemplate{
				Action:   "UPGRADE_FEATURE_EFFICIENCY",
				Summary:  "Queue efficiency upgrades for this feature",
				Expected: "close the efficiency gap of {observed} points to below {threshold}",
			},
		},
		{
			ID:         "efficiency-gap-wide",
			Metric:     metrics.MetricEfficiencyGap,
			Scope:      ScopeFeature,
			Comparator: CmpGreater,
			Threshold:  20,
			Severity:   domain.SeverityMedium,
			Command: CommandTemplate{
				Action:   "UPGRADE_FEATURE_EFFICIENCY",
				Summary:  "Schedule efficiency upgrades for this feature",
				Expected: "close the efficiency gap of {observed} points to below {threshold}",
			},
		},
		{
			ID:         "satisfaction-declining",
			Metric:     metrics.MetricSatisfaction,
			Scope:      ScopeCompany,
			Comparator: CmpLess,
			Threshold:  -1,
			Severity:   domain.SeverityMedium,
			Source:     SourceTrend,
			WindowDays: 7,
			Command: CommandTemplate{
				Action:   "INVESTIGATE_SATISFACTION_DROP",
				Summary:  "Satisfaction is eroding day over day; review recent feature changes",
				Expected: "stop the decline of {observed} points per day",
			},
		},
	}}
}
