// Package value implements the canonical data model every filter, function
// and test operates on.
//
// A Value is a closed variant over Null, Bool, Int, Float, Text, Sequence,
// Mapping and Opaque. Host data enters through Adapt and never reaches an
// extension body in its host form, except behind Opaque.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindSequence
	KindMapping
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged datum. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  *Sequence
	m    *Mapping
	host any
}

// Null returns the Null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating-point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// FromSequence wraps a sequence. A nil sequence yields Null.
func FromSequence(seq *Sequence) Value {
	if seq == nil {
		return Null()
	}
	return Value{kind: KindSequence, seq: seq}
}

// FromMapping wraps a mapping. A nil mapping yields Null.
func FromMapping(m *Mapping) Value {
	if m == nil {
		return Null()
	}
	return Value{kind: KindMapping, m: m}
}

// List builds a list-category sequence value from items.
func List(items ...Value) Value {
	return FromSequence(NewList(items...))
}

// Opaque wraps a host object the model has no variant for.
func Opaque(host any) Value {
	if host == nil {
		return Null()
	}
	return Value{kind: KindOpaque, host: host}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload. Floats are not converted.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the numeric payload as a float64 for both Int and Float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// AsText returns the string payload of a Text value.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsSequence returns the sequence payload.
func (v Value) AsSequence() (*Sequence, bool) { return v.seq, v.kind == KindSequence }

// AsMapping returns the mapping payload.
func (v Value) AsMapping() (*Mapping, bool) { return v.m, v.kind == KindMapping }

// Host returns the wrapped host object of an Opaque value.
func (v Value) Host() (any, bool) { return v.host, v.kind == KindOpaque }

// String is the textual coercion used for output and text-expecting filters.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindText:
		return v.s
	case KindSequence:
		return v.seq.String()
	case KindMapping:
		return v.m.String()
	case KindOpaque:
		return describeHost(v.host)
	default:
		return ""
	}
}

// FormatFloat renders a float in its locale-invariant canonical form. Integral
// values keep a trailing ".0" so they stay distinguishable from integers.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func describeHost(host any) string {
	switch h := host.(type) {
	case time.Time:
		return h.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return h.String()
	case error:
		return h.Error()
	default:
		return fmt.Sprint(h)
	}
}
