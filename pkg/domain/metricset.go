package domain

import (
	"encoding/json"
	"sort"
)

// MetricSet holds the metrics derived from one snapshot, keyed by
// (entity, metric). Insertion order is preserved so evaluation passes
// stay deterministic.
type MetricSet struct {
	points []MetricPoint
	index  map[string]int
}

// MetricPoint is one (entity, metric) -> value binding.
type MetricPoint struct {
	Entity EntityKey
	Metric string
	Value  Value
}

func NewMetricSet() *MetricSet {
	return &MetricSet{index: make(map[string]int)}
}

func setKey(entity EntityKey, metric string) string {
	return string(entity) + "\x00" + metric
}

// Set records a value, overwriting any previous binding for the pair.
func (s *MetricSet) Set(entity EntityKey, metric string, v Value) {
	k := setKey(entity, metric)
	if i, ok := s.index[k]; ok {
		s.points[i].Value = v
		return
	}
	s.index[k] = len(s.points)
	s.points = append(s.points, MetricPoint{Entity: entity, Metric: metric, Value: v})
}

// Get returns the value for the pair, or the undefined sentinel when the
// pair was never computed.
func (s *MetricSet) Get(entity EntityKey, metric string) Value {
	if i, ok := s.index[setKey(entity, metric)]; ok {
		return s.points[i].Value
	}
	return Undefined()
}

// Points returns all bindings in insertion order.
func (s *MetricSet) Points() []MetricPoint {
	out := make([]MetricPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Entities returns every entity that carries the given metric, sorted for
// deterministic scope resolution.
func (s *MetricSet) Entities(metric string) []EntityKey {
	var keys []EntityKey
	for _, p := range s.points {
		if p.Metric == metric {
			keys = append(keys, p.Entity)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Flatten renders the set as a flat map of "entity:metric" -> value,
// undefined values included as null.
func (s *MetricSet) Flatten() map[string]Value {
	out := make(map[string]Value, len(s.points))
	for _, p := range s.points {
		out[string(p.Entity)+":"+p.Metric] = p.Value
	}
	return out
}

// MarshalJSON renders the flattened form. Map keys marshal in sorted
// order, which keeps report output byte-stable.
func (s *MetricSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flatten())
}
