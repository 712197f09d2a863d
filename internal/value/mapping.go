package value

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Mapping is an insertion-ordered association of unique text keys to values.
// Mappings are built once and then only read; merge returns a new mapping.
type Mapping struct {
	entries *orderedmap.OrderedMap[string, Value]
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{entries: orderedmap.New[string, Value]()}
}

// MappingOf builds a mapping from alternating key/value pairs. It is meant for
// literals and tests.
func MappingOf(pairs ...any) *Mapping {
	m := NewMapping()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		m.Set(key, Adapt(pairs[i+1]))
	}
	return m
}

// Set stores a value under key. An existing key keeps its position.
// Set is only used while a mapping is being constructed.
func (m *Mapping) Set(key string, v Value) {
	m.entries.Set(key, v)
}

// Get looks up key.
func (m *Mapping) Get(key string) (Value, bool) {
	return m.entries.Get(key)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return m.entries.Len()
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *Mapping) Each(fn func(key string, v Value) bool) {
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a shallow copy preserving order.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	m.Each(func(key string, v Value) bool {
		out.Set(key, v)
		return true
	})
	return out
}

// Merge returns the key union of m and other. Keys of m keep their order;
// colliding keys take other's value; other's new keys are appended.
func (m *Mapping) Merge(other *Mapping) *Mapping {
	out := m.Clone()
	other.Each(func(key string, v Value) bool {
		out.Set(key, v)
		return true
	})
	return out
}

// String renders the debug listing, e.g. "{one=1, two=2}".
func (m *Mapping) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	m.Each(func(key string, v Value) bool {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(v.String())
		return true
	})
	b.WriteByte('}')
	return b.String()
}
