package value

import (
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rendis/stencil/pkg/schema"
)

// Category is the aggregate family a sequence was adapted from. Merge and
// slice preserve it.
type Category int

const (
	// CategoryList covers ordered collections, iterators and literal lists.
	CategoryList Category = iota
	// CategoryArray covers host slices and arrays with a concrete element kind.
	CategoryArray
)

func (c Category) String() string {
	if c == CategoryArray {
		return "array"
	}
	return "list"
}

// Sequence is an ordered, read-only view over an adapted aggregate.
//
// Finite sequences expose their length and indexed access. Iterator-backed
// sequences report an unknown length until they are consumed; consumption
// happens at most once and the drained elements are kept, so the sequence
// stays usable afterwards. A Sequence is safe for concurrent use.
type Sequence struct {
	category Category
	elem     string

	n  int
	at func(int) Value

	src     iter.Seq[Value]
	once    sync.Once
	drained atomic.Bool
}

// NewList builds a list sequence over items.
func NewList(items ...Value) *Sequence {
	return newFinite(CategoryList, "", items)
}

// NewArray builds an array sequence whose elements share the given kind name
// (e.g. "int32", "string").
func NewArray(elem string, items []Value) *Sequence {
	return newFinite(CategoryArray, elem, items)
}

// NewIterator builds a sequence of unknown length over src. src is ranged
// over at most once.
func NewIterator(src iter.Seq[Value]) *Sequence {
	return &Sequence{category: CategoryList, src: src}
}

func newFinite(category Category, elem string, items []Value) *Sequence {
	cp := make([]Value, len(items))
	copy(cp, items)
	return &Sequence{
		category: category,
		elem:     elem,
		n:        len(cp),
		at:       func(i int) Value { return cp[i] },
	}
}

// newLazy builds a finite sequence whose elements are adapted on access.
func newLazy(category Category, elem string, n int, at func(int) Value) *Sequence {
	return &Sequence{category: category, elem: elem, n: n, at: at}
}

// Category returns the aggregate family.
func (s *Sequence) Category() Category { return s.category }

// ElemKind returns the element kind name of an array sequence, or "".
func (s *Sequence) ElemKind() string { return s.elem }

// Len returns the length and whether it is known without consuming anything.
func (s *Sequence) Len() (int, bool) {
	if s.src != nil && !s.drained.Load() {
		return 0, false
	}
	return s.n, true
}

// Count returns the number of elements, consuming a pending iterator.
func (s *Sequence) Count() int {
	s.drain()
	return s.n
}

// Get returns the element at i. A pending iterator is consumed first.
func (s *Sequence) Get(i int) (Value, bool) {
	s.drain()
	if i < 0 || i >= s.n {
		return Null(), false
	}
	return s.at(i), true
}

// All iterates the elements in order.
func (s *Sequence) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		s.drain()
		for i := 0; i < s.n; i++ {
			if !yield(s.at(i)) {
				return
			}
		}
	}
}

// Items returns a fresh slice holding every element.
func (s *Sequence) Items() []Value {
	s.drain()
	out := make([]Value, s.n)
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

// Slice returns the half-open range [from, to) as a new sequence of the same
// category. Out-of-bounds requests are RangeErrors, never clamped.
func (s *Sequence) Slice(from, to int) (*Sequence, error) {
	n := s.Count()
	if err := CheckBounds(from, to, n); err != nil {
		return nil, err
	}
	items := make([]Value, 0, to-from)
	for i := from; i < to; i++ {
		items = append(items, s.at(i))
	}
	return newFinite(s.category, s.elem, items), nil
}

// Reverse returns a new sequence with the elements in reverse order.
func (s *Sequence) Reverse() *Sequence {
	items := s.Items()
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return newFinite(s.category, s.elem, items)
}

// Compatible reports whether two sequences come from the same aggregate
// family: list with list, or arrays of identical element kind.
func (s *Sequence) Compatible(other *Sequence) bool {
	if s.category != other.category {
		return false
	}
	return s.category == CategoryList || s.elem == other.elem
}

// Concat appends other's elements after s's, keeping s's category.
func (s *Sequence) Concat(other *Sequence) *Sequence {
	items := append(s.Items(), other.Items()...)
	return newFinite(s.category, s.elem, items)
}

// String renders the debug listing, e.g. "[Bob, Sarah, Mary]".
func (s *Sequence) String() string {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for item := range s.All() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(item.String())
	}
	b.WriteByte(']')
	return b.String()
}

// drain consumes a pending iterator once. src is never reset; drained marks
// n and at as final for readers that skip the once.
func (s *Sequence) drain() {
	if s.src == nil {
		return
	}
	s.once.Do(func() {
		var items []Value
		for v := range s.src {
			items = append(items, v)
		}
		s.n = len(items)
		s.at = func(i int) Value { return items[i] }
		s.drained.Store(true)
	})
}

// CheckBounds validates a half-open [from, to) range against length n.
func CheckBounds(from, to, n int) error {
	switch {
	case from < 0:
		return schema.NewErrorf(schema.ErrCodeRange, "from index %d must not be negative", from).
			WithDetails(map[string]any{"from": from, "to": to, "length": n})
	case to < 0:
		return schema.NewErrorf(schema.ErrCodeRange, "to index %d must not be negative", to).
			WithDetails(map[string]any{"from": from, "to": to, "length": n})
	case to > n:
		return schema.NewErrorf(schema.ErrCodeRange, "to index %d exceeds length %d", to, n).
			WithDetails(map[string]any{"from": from, "to": to, "length": n})
	case from > to:
		return schema.NewErrorf(schema.ErrCodeRange, "from index %d is greater than to index %d", from, to).
			WithDetails(map[string]any{"from": from, "to": to, "length": n})
	}
	return nil
}
