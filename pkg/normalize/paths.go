package normalize

import (
	"strconv"
	"strings"
)

// valueKind declares the primitive type a recognized field coerces to.
type valueKind int

const (
	kindNumber valueKind = iota
	kindString
	kindBool
	kindAny
)

// fieldValue carries a coerced leaf value into an assign func.
type fieldValue struct {
	num float64
	str string
	b   bool
}

// captures holds the wildcard bindings of a matched path: one index per
// "[*]" segment and one key per "*" segment, in pattern order.
type captures struct {
	indices []int
	keys    []string
}

// fieldSpec is one entry of the recognized-path table. The pattern uses
// "[*]" for any array index and "*" for any object key.
type fieldSpec struct {
	pattern string
	kind    valueKind
	assign  func(b *builder, c captures, v fieldValue)

	toks []patternTok
}

type patternTok struct {
	key      string // "*" matches any key
	indexed  bool   // segment carries an array index
}

// pathSeg is one segment of a concrete document path.
type pathSeg struct {
	key    string
	idx    int
	hasIdx bool
}

func compilePattern(p string) []patternTok {
	parts := strings.Split(p, ".")
	toks := make([]patternTok, 0, len(parts))
	for _, part := range parts {
		if strings.HasSuffix(part, "[*]") {
			toks = append(toks, patternTok{key: strings.TrimSuffix(part, "[*]"), indexed: true})
			continue
		}
		toks = append(toks, patternTok{key: part})
	}
	return toks
}

func (s *fieldSpec) match(segs []pathSeg) (captures, bool) {
	if len(segs) != len(s.toks) {
		return captures{}, false
	}
	var c captures
	for i, tok := range s.toks {
		seg := segs[i]
		if tok.indexed != seg.hasIdx {
			return captures{}, false
		}
		if tok.key == "*" {
			c.keys = append(c.keys, seg.key)
		} else if tok.key != seg.key {
			return captures{}, false
		}
		if tok.indexed {
			c.indices = append(c.indices, seg.idx)
		}
	}
	return c, true
}

// pathString renders segments in the canonical bracket form used for
// known-path accounting and unknown-field keys, e.g.
// "office.workstations[3].employee.salary".
func pathString(segs []pathSeg) string {
	var sb strings.Builder
	for i, s := range segs {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.key)
		if s.hasIdx {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(s.idx))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// recognizedPaths is the static mapping table from structural paths in
// the raw save document to the typed snapshot model. Anything not listed
// here is preserved under unknown fields rather than dropped.
func recognizedPaths() []fieldSpec {
	specs := []fieldSpec{
		// Identity and simulation clock.
		{pattern: "id", kind: kindString, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Identity.GameID = v.str
		}},
		{pattern: "companyName", kind: kindString, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Identity.CompanyName = v.str
		}},
		{pattern: "saveGameName", kind: kindString, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Identity.SaveGameName = v.str
		}},
		{pattern: "date", kind: kindString, assign: func(b *builder, _ captures, v fieldValue) {
			b.gameDate = v.str
		}},
		{pattern: "started", kind: kindString, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Identity.Started = v.str
		}},

		// Finances.
		{pattern: "balance", kind: kindNumber, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Finances.Balance = v.num
		}},
		{pattern: "lastPricePerHour", kind: kindNumber, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Finances.LastPricePerHour = ptr(v.num)
		}},

		// Research and infrastructure capacity.
		{pattern: "xp", kind: kindNumber, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Research.XP = ptr(v.num)
		}},
		{pattern: "researchPoints", kind: kindNumber, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Research.ResearchPoints = ptr(v.num)
		}},
		{pattern: "cu.current", kind: kindNumber, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Research.CUCurrent = ptr(v.num)
		}},
		{pattern: "cu.max", kind: kindNumber, assign: func(b *builder, _ captures, v fieldValue) {
			b.kf.Research.CUMax = ptr(v.num)
		}},

		// Workforce: one employee per occupied workstation.
		{pattern: "office.workstations[*].employee.name", kind: kindString, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).Name = v.str
		}},
		{pattern: "office.workstations[*].employee.employeeTypeName", kind: kindString, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).Role = v.str
		}},
		{pattern: "office.workstations[*].employee.salary", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).Salary = v.num
		}},
		{pattern: "office.workstations[*].employee.level", kind: kindString, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).Level = v.str
		}},
		{pattern: "office.workstations[*].employee.mood", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).Mood = ptr(v.num)
		}},
		{pattern: "office.workstations[*].employee.speed", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).Speed = ptr(v.num)
		}},
		{pattern: "office.workstations[*].employee.idleMinutes", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.employee(c.indices[0]).IdleMinutes = ptr(v.num)
		}},
		{pattern: "office.workstations[*].employee.currentAssignment", kind: kindString, assign: func(b *builder, c captures, v fieldValue) {
			s := v.str
			b.employee(c.indices[0]).Assignment = &s
		}},
		{pattern: "office.workstations[*].employee.workQueue[*].*", kind: kindAny, assign: func(b *builder, c captures, _ fieldValue) {
			b.queueItem(c.indices[0], c.indices[1])
		}},

		// Features.
		{pattern: "featureInstances[*].featureName", kind: kindString, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Name = v.str
		}},
		{pattern: "featureInstances[*].activated", kind: kindBool, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Activated = ptr(v.b)
		}},
		{pattern: "featureInstances[*].level", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Level = ptr(int(v.num))
		}},
		{pattern: "featureInstances[*].quality.current", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Quality.Current = v.num
		}},
		{pattern: "featureInstances[*].quality.max", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Quality.Max = v.num
		}},
		{pattern: "featureInstances[*].efficiency.current", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Efficiency.Current = v.num
		}},
		{pattern: "featureInstances[*].efficiency.max", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.feature(c.indices[0]).Efficiency.Max = v.num
		}},

		// Products and their user base.
		{pattern: "progress.products[*].name", kind: kindString, assign: func(b *builder, c captures, v fieldValue) {
			b.product(c.indices[0]).Name = v.str
		}},
		{pattern: "progress.products[*].users.total", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.product(c.indices[0]).Users = ptr(v.num)
		}},
		{pattern: "progress.products[*].users.satisfaction", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.product(c.indices[0]).Satisfaction = ptr(v.num)
		}},

		// Inventory, both the flat {"UiComponent": 5} and the nested
		// {"UiComponent": {"amount": 5}} encodings seen across versions.
		{pattern: "inventory.*", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.item(c.keys[0]).Amount = v.num
		}},
		{pattern: "inventory.*.amount", kind: kindNumber, assign: func(b *builder, c captures, v fieldValue) {
			b.item(c.keys[0]).Amount = v.num
		}},
	}

	for i := range specs {
		specs[i].toks = compilePattern(specs[i].pattern)
	}
	return specs
}

func ptr[T any](v T) *T { return &v }
