// Package normalize maps raw save-state documents into the typed
// snapshot model. Recognized structural paths are coerced into known
// fields; everything else is preserved verbatim under unknown fields so
// schema drift in the source game never loses data.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/venturelens/venturelens/pkg/domain"
)

const hoursPerGameDay = 24

// Normalizer turns one raw JSON document into a NormalizedSnapshot.
type Normalizer struct {
	lg    *zap.Logger
	table []fieldSpec
}

func New(lg *zap.Logger) *Normalizer {
	return &Normalizer{lg: lg, table: recognizedPaths()}
}

// Normalize parses, validates, and walks the document. It returns a
// *domain.SchemaValidationError when a required top-level field is
// missing or mistyped; prior history is never touched by a rejection.
func (n *Normalizer) Normalize(raw []byte, capturedAt time.Time) (*domain.NormalizedSnapshot, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("normalize: document is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, fmt.Errorf("normalize: document root must be an object")
	}

	if err := validateRequired(doc); err != nil {
		return nil, err
	}

	fingerprint, err := domain.Fingerprint(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	b := newBuilder()
	n.walk(doc, nil, b)

	snap := &domain.NormalizedSnapshot{
		SnapshotID: fingerprint,
		CapturedAt: capturedAt.UTC(),
		GameDate:   b.gameDate,
		Known:      b.finish(),
		KnownPaths: b.knownPaths,
		Unknown:    b.unknown,
	}
	snap.GameDay = gameDay(b.gameDate, snap.Known.Identity.Started)

	n.lg.Debug("snapshot normalized",
		zap.String("snapshot_id", snap.SnapshotID),
		zap.Int("game_day", snap.GameDay),
		zap.Int("known_paths", len(snap.KnownPaths)),
		zap.Int("unknown_fields", len(snap.Unknown)))
	return snap, nil
}

// validateRequired checks the small fixed set of top-level fields every
// save must carry: a date, an identity, a numeric balance, and at least
// one product or feature collection.
func validateRequired(doc gjson.Result) error {
	var issues []domain.FieldIssue

	checkString := func(field string) {
		v := doc.Get(field)
		switch {
		case !v.Exists():
			issues = append(issues, domain.FieldIssue{Field: field, Problem: "missing"})
		case v.Type != gjson.String:
			issues = append(issues, domain.FieldIssue{Field: field, Problem: fmt.Sprintf("expected string, got %s", v.Type)})
		}
	}
	checkString("date")
	checkString("companyName")

	bal := doc.Get("balance")
	switch {
	case !bal.Exists():
		issues = append(issues, domain.FieldIssue{Field: "balance", Problem: "missing"})
	case bal.Type != gjson.Number:
		if _, err := strconv.ParseFloat(strings.TrimSpace(bal.String()), 64); bal.Type != gjson.String || err != nil {
			issues = append(issues, domain.FieldIssue{Field: "balance", Problem: fmt.Sprintf("expected number, got %s", bal.Type)})
		}
	}

	features := doc.Get("featureInstances")
	products := doc.Get("progress.products")
	if !(features.IsArray() && len(features.Array()) > 0) &&
		!(products.IsArray() && len(products.Array()) > 0) {
		issues = append(issues, domain.FieldIssue{
			Field:   "featureInstances",
			Problem: "no non-empty product or feature collection present",
		})
	}

	if len(issues) > 0 {
		return &domain.SchemaValidationError{Issues: issues}
	}
	return nil
}

// walk visits the document depth-first in document order. Leaves are
// matched against the recognized-path table; containers recurse.
func (n *Normalizer) walk(res gjson.Result, segs []pathSeg, b *builder) {
	switch {
	case res.IsObject():
		empty := true
		res.ForEach(func(key, value gjson.Result) bool {
			empty = false
			n.walk(value, append(segs, pathSeg{key: key.String()}), b)
			return true
		})
		if empty && len(segs) > 0 {
			b.addUnknown(pathString(segs), json.RawMessage(res.Raw))
		}
	case res.IsArray():
		arr := res.Array()
		if len(arr) == 0 {
			if len(segs) > 0 {
				b.addUnknown(pathString(segs), json.RawMessage(res.Raw))
			}
			return
		}
		// The array index folds into the parent segment so entity keys
		// read as products[2] rather than as a metric dimension.
		last := segs[len(segs)-1]
		for i, elem := range arr {
			indexed := last
			if indexed.hasIdx {
				// Nested array: fold the outer index into the key so
				// paths like grid[1][2] stay unambiguous.
				indexed.key = fmt.Sprintf("%s[%d]", indexed.key, indexed.idx)
			}
			indexed.idx = i
			indexed.hasIdx = true
			n.walk(elem, append(segs[:len(segs)-1:len(segs)-1], indexed), b)
		}
	default:
		n.leaf(res, segs, b)
	}
}

func (n *Normalizer) leaf(res gjson.Result, segs []pathSeg, b *builder) {
	path := pathString(segs)

	for i := range n.table {
		spec := &n.table[i]
		cap, ok := spec.match(segs)
		if !ok {
			continue
		}
		// Explicit null on a recognized path means "intentionally
		// unset", recorded as a known null rather than an unknown blob.
		if res.Type == gjson.Null {
			b.addKnown(path, true)
			return
		}
		v, ok := coerce(res, spec.kind)
		if !ok {
			n.lg.Debug("recognized path failed coercion, preserving raw",
				zap.String("path", path), zap.String("value", res.Raw))
			break
		}
		spec.assign(b, cap, v)
		b.addKnown(path, false)
		return
	}

	b.addUnknown(path, json.RawMessage(res.Raw))
}

// coerce converts a scalar to the declared kind. String-encoded numbers
// are parsed explicitly; a failed parse falls back to unknown-field
// preservation, never to a truthy zero.
func coerce(res gjson.Result, kind valueKind) (fieldValue, bool) {
	switch kind {
	case kindNumber:
		switch res.Type {
		case gjson.Number:
			return fieldValue{num: res.Float()}, true
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(res.String()), 64)
			if err != nil {
				return fieldValue{}, false
			}
			return fieldValue{num: f}, true
		}
		return fieldValue{}, false
	case kindString:
		switch res.Type {
		case gjson.String, gjson.Number:
			return fieldValue{str: res.String()}, true
		}
		return fieldValue{}, false
	case kindBool:
		switch res.Type {
		case gjson.True:
			return fieldValue{b: true}, true
		case gjson.False:
			return fieldValue{b: false}, true
		}
		return fieldValue{}, false
	case kindAny:
		return fieldValue{str: res.String()}, true
	}
	return fieldValue{}, false
}

// gameDay derives the in-simulation day number. With a parseable start
// date it is the whole days elapsed since founding; otherwise it falls
// back to epoch days of the save date, which still orders correctly.
func gameDay(date, started string) int {
	d, okDate := parseGameDate(date)
	if !okDate {
		return 0
	}
	if s, ok := parseGameDate(started); ok {
		return int(d.Sub(s).Hours() / hoursPerGameDay)
	}
	return int(d.Unix() / (hoursPerGameDay * 3600))
}

func parseGameDate(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// builder accumulates typed fields during the walk. Array entities are
// gathered into index-keyed maps and sorted on finish so the result does
// not depend on traversal details.
type builder struct {
	kf       domain.KnownFields
	gameDate string

	employees map[int]*domain.Employee
	features  map[int]*domain.Feature
	products  map[int]*domain.Product
	items     map[string]*domain.InventoryItem
	itemOrder []string
	queueSeen map[int]map[int]bool

	knownPaths []domain.KnownPath
	unknown    []domain.UnknownField
}

func newBuilder() *builder {
	return &builder{
		employees: make(map[int]*domain.Employee),
		features:  make(map[int]*domain.Feature),
		products:  make(map[int]*domain.Product),
		items:     make(map[string]*domain.InventoryItem),
		queueSeen: make(map[int]map[int]bool),
	}
}

func (b *builder) addKnown(path string, null bool) {
	b.knownPaths = append(b.knownPaths, domain.KnownPath{Path: path, Null: null})
}

func (b *builder) addUnknown(path string, raw json.RawMessage) {
	b.unknown = append(b.unknown, domain.UnknownField{Path: path, Raw: raw})
}

func (b *builder) employee(idx int) *domain.Employee {
	if e, ok := b.employees[idx]; ok {
		return e
	}
	e := &domain.Employee{Index: idx}
	b.employees[idx] = e
	return e
}

func (b *builder) queueItem(workstation, slot int) {
	seen, ok := b.queueSeen[workstation]
	if !ok {
		seen = make(map[int]bool)
		b.queueSeen[workstation] = seen
	}
	if !seen[slot] {
		seen[slot] = true
		b.employee(workstation).QueueLength++
	}
}

func (b *builder) feature(idx int) *domain.Feature {
	if f, ok := b.features[idx]; ok {
		return f
	}
	f := &domain.Feature{Index: idx}
	b.features[idx] = f
	return f
}

func (b *builder) product(idx int) *domain.Product {
	if p, ok := b.products[idx]; ok {
		return p
	}
	p := &domain.Product{Index: idx}
	b.products[idx] = p
	return p
}

func (b *builder) item(name string) *domain.InventoryItem {
	if it, ok := b.items[name]; ok {
		return it
	}
	it := &domain.InventoryItem{Name: name}
	b.items[name] = it
	b.itemOrder = append(b.itemOrder, name)
	return it
}

func (b *builder) finish() domain.KnownFields {
	kf := b.kf

	for _, idx := range sortedKeys(b.employees) {
		kf.Workforce.Employees = append(kf.Workforce.Employees, *b.employees[idx])
	}
	for _, idx := range sortedKeys(b.features) {
		kf.Features = append(kf.Features, *b.features[idx])
	}
	for _, idx := range sortedKeys(b.products) {
		kf.Products = append(kf.Products, *b.products[idx])
	}
	for _, name := range b.itemOrder {
		kf.Inventory = append(kf.Inventory, *b.items[name])
	}
	return kf
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
