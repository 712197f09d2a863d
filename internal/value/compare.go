package value

import (
	"cmp"
	"strings"

	"github.com/rendis/stencil/pkg/schema"
)

// Compare orders two values by their natural ordering: numbers numerically
// (Int and Float mix), text by code point, false before true. Values of
// other or mismatched kinds are not comparable and yield a TypeError.
func Compare(a, b Value) (int, error) {
	switch {
	case a.IsNumber() && b.IsNumber():
		if a.kind == KindInt && b.kind == KindInt {
			return cmp.Compare(a.i, b.i), nil
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return cmp.Compare(af, bf), nil
	case a.kind == KindText && b.kind == KindText:
		return strings.Compare(a.s, b.s), nil
	case a.kind == KindBool && b.kind == KindBool:
		switch {
		case a.b == b.b:
			return 0, nil
		case !a.b:
			return -1, nil
		default:
			return 1, nil
		}
	}
	return 0, schema.NewErrorf(schema.ErrCodeType, "cannot compare %s with %s", a.kind, b.kind).
		WithDetails(map[string]any{"left": a.String(), "right": b.String()})
}

// IsEmpty reports whether v is Null, blank text, or an empty aggregate.
// Falsy scalars such as 0 and false are not empty.
func IsEmpty(v Value) bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.s) == ""
	case KindSequence:
		return v.seq.Count() == 0
	case KindMapping:
		return v.m.Len() == 0
	default:
		return false
	}
}
