package metrics

import (
	"fmt"
	"sort"

	"github.com/venturelens/venturelens/pkg/domain"
)

// BalancePoint is one historical balance observation, supplied by the
// caller from the time-series store so Compute stays a pure function.
type BalancePoint struct {
	GameDay int
	Balance float64
}

// Options tune the derived-metric formulas. Zero values fall back to the
// defaults the original advisor used.
type Options struct {
	// BurnWindowDays bounds the trailing window the net burn rate is
	// averaged over.
	BurnWindowDays int
	// WorkHoursPerDay is the assumed productive hours per employee day.
	WorkHoursPerDay float64
	// OfficeCostPerSeat is the estimated monthly overhead per occupied
	// workstation, added on top of salaries.
	OfficeCostPerSeat float64
}

const (
	defaultBurnWindowDays    = 5
	defaultWorkHoursPerDay   = 8
	defaultOfficeCostPerSeat = 100
	daysPerMonth             = 30
)

// producerRoles are the employee types that produce components; team
// utilization and throughput are computed over these.
var producerRoles = map[string]bool{
	"Developer":     true,
	"LeadDeveloper": true,
	"Designer":      true,
	"SysAdmin":      true,
}

// componentRole attributes inventory items to the role that produces
// them, for throughput-per-role.
var componentRole = map[string]string{
	"UiComponent":        "Developer",
	"BackendComponent":   "Developer",
	"BlueprintComponent": "Designer",
	"GraphicsComponent":  "Designer",
	"UiElement":          "Developer",
	"BackendModule":      "Developer",
	"FrontendModule":     "Developer",
	"NetworkComponent":   "SysAdmin",
	"ServerComponent":    "SysAdmin",
	"VirtualHardware":    "SysAdmin",
}

// Calculator derives a MetricSet from one snapshot.
type Calculator struct {
	opts Options
}

func NewCalculator(opts Options) *Calculator {
	if opts.BurnWindowDays <= 0 {
		opts.BurnWindowDays = defaultBurnWindowDays
	}
	if opts.WorkHoursPerDay <= 0 {
		opts.WorkHoursPerDay = defaultWorkHoursPerDay
	}
	if opts.OfficeCostPerSeat <= 0 {
		opts.OfficeCostPerSeat = defaultOfficeCostPerSeat
	}
	return &Calculator{opts: opts}
}

// Compute derives all metrics for one snapshot. history holds prior
// balance observations; runway stays undefined until at least one prior
// point exists inside the burn window.
func (c *Calculator) Compute(snap *domain.NormalizedSnapshot, history []BalancePoint) *domain.MetricSet {
	set := domain.NewMetricSet()
	kf := snap.Known

	set.Set(domain.KeyCompany, MetricBalance, domain.DefinedValue(kf.Finances.Balance))
	set.Set(domain.KeyCompany, MetricMonthlyBurn, domain.DefinedValue(c.monthlyBurn(kf)))

	daily, runway := c.runway(snap, history)
	set.Set(domain.KeyCompany, MetricDailyBurn, daily)
	set.Set(domain.KeyCompany, MetricRunwayDays, runway)

	c.productMetrics(set, kf)
	c.workforceMetrics(set, kf)
	c.featureMetrics(set, kf)
	c.infraMetrics(set, kf)

	return set
}

func (c *Calculator) monthlyBurn(kf domain.KnownFields) float64 {
	total := 0.0
	for _, e := range kf.Workforce.Employees {
		total += e.Salary
	}
	total += float64(len(kf.Workforce.Employees)) * c.opts.OfficeCostPerSeat
	return total
}

// runway returns the observed daily net burn and the cash runway in
// days. Both stay undefined without at least two balance observations
// with distinct game days inside the trailing window, and runway is
// additionally undefined when the company is not burning cash.
func (c *Calculator) runway(snap *domain.NormalizedSnapshot, history []BalancePoint) (daily, runway domain.Value) {
	points := make([]BalancePoint, 0, len(history)+1)
	points = append(points, history...)
	points = append(points, BalancePoint{GameDay: snap.GameDay, Balance: snap.Known.Finances.Balance})

	sort.SliceStable(points, func(i, j int) bool { return points[i].GameDay < points[j].GameDay })

	// Keep the most recent observation per game day.
	deduped := points[:0]
	for _, p := range points {
		if len(deduped) > 0 && deduped[len(deduped)-1].GameDay == p.GameDay {
			deduped[len(deduped)-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	last := deduped[len(deduped)-1]
	cutoff := last.GameDay - c.opts.BurnWindowDays
	windowed := deduped[:0]
	for _, p := range deduped {
		if p.GameDay >= cutoff {
			windowed = append(windowed, p)
		}
	}

	if len(windowed) < 2 {
		return domain.Undefined(), domain.Undefined()
	}
	first := windowed[0]
	span := last.GameDay - first.GameDay
	if span <= 0 {
		return domain.Undefined(), domain.Undefined()
	}

	burn := (first.Balance - last.Balance) / float64(span)
	daily = domain.DefinedValue(burn)
	if burn <= 0 {
		// Cash-positive: runway is not a meaningful number, and it must
		// not alert.
		return daily, domain.Undefined()
	}
	return daily, domain.DefinedValue(last.Balance / burn)
}

func (c *Calculator) productMetrics(set *domain.MetricSet, kf domain.KnownFields) {
	for _, p := range kf.Products {
		key := domain.ProductKey(productName(p))
		if p.Satisfaction != nil {
			set.Set(key, MetricSatisfaction, domain.DefinedValue(*p.Satisfaction))
		}
		if p.Users != nil {
			set.Set(key, MetricUsers, domain.DefinedValue(*p.Users))
		}
	}
	// Company-level user metrics mirror the flagship product, the first
	// one in declaration order.
	if len(kf.Products) > 0 {
		p := kf.Products[0]
		if p.Satisfaction != nil {
			set.Set(domain.KeyCompany, MetricSatisfaction, domain.DefinedValue(*p.Satisfaction))
		}
		if p.Users != nil {
			set.Set(domain.KeyCompany, MetricUsers, domain.DefinedValue(*p.Users))
		}
	}
}

func (c *Calculator) workforceMetrics(set *domain.MetricSet, kf domain.KnownFields) {
	producers := 0
	busy := 0
	roleCount := map[string]int{}
	for _, e := range kf.Workforce.Employees {
		if e.Mood != nil {
			set.Set(domain.EmployeeKey(employeeName(e)), MetricMood, domain.DefinedValue(*e.Mood))
		}
		if !producerRoles[e.Role] {
			continue
		}
		producers++
		roleCount[e.Role]++
		if !e.Idle() {
			busy++
		}
	}

	if producers == 0 {
		set.Set(domain.KeyCompany, MetricUtilization, domain.Undefined())
	} else {
		set.Set(domain.KeyCompany, MetricUtilization,
			domain.DefinedValue(float64(busy)/float64(producers)*100))
	}

	// Component throughput per producing role: stocked components
	// attributed to the role, over that role's work hours per day.
	roleComponents := map[string]float64{}
	for _, it := range kf.Inventory {
		if role, ok := componentRole[it.Name]; ok {
			roleComponents[role] += it.Amount
		}
	}
	for role, count := range roleCount {
		hours := float64(count) * c.opts.WorkHoursPerDay
		if hours <= 0 {
			set.Set(domain.RoleKey(role), MetricThroughput, domain.Undefined())
			continue
		}
		set.Set(domain.RoleKey(role), MetricThroughput,
			domain.DefinedValue(roleComponents[role]/hours))
	}
}

func (c *Calculator) featureMetrics(set *domain.MetricSet, kf domain.KnownFields) {
	for _, f := range kf.Features {
		key := domain.FeatureKey(featureName(f))
		set.Set(key, MetricQualityGap, domain.DefinedValue(f.Quality.Gap()))
		set.Set(key, MetricEfficiencyGap, domain.DefinedValue(f.Efficiency.Gap()))
	}
}

func (c *Calculator) infraMetrics(set *domain.MetricSet, kf domain.KnownFields) {
	r := kf.Research
	if r.CUCurrent == nil || r.CUMax == nil || *r.CUMax <= 0 {
		set.Set(domain.KeyCompany, MetricCUUtilization, domain.Undefined())
		return
	}
	set.Set(domain.KeyCompany, MetricCUUtilization,
		domain.DefinedValue(*r.CUCurrent / *r.CUMax*100))
}

func productName(p domain.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("%d", p.Index)
}

func featureName(f domain.Feature) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("%d", f.Index)
}

func employeeName(e domain.Employee) string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("%d", e.Index)
}
