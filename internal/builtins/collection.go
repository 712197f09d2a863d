package builtins

import (
	"slices"
	"strings"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerCollections(b *registry.Builder) error {
	return installFilters(b,
		filterDef{"default", binding.Params("default").With("default", value.Text("")), defaultFilter,
			"substitutes a fallback for null, undefined, blank or empty values"},
		filterDef{"first", nil, firstFilter, "first element or character"},
		filterDef{"last", nil, lastFilter, "last element or character"},
		filterDef{"join", binding.Params("glue").With("glue", value.Text("")), joinFilter,
			"concatenates elements with glue between them"},
		filterDef{"length", nil, lengthFilter, "number of characters, elements or entries"},
		filterDef{"slice", binding.Params("from", "to").With("from", value.Int(0)), sliceFilter,
			"the half-open range [from, to) of text or a sequence"},
		filterDef{"merge", binding.Params("other"), mergeFilter, "combines two compatible aggregates"},
		filterDef{"sort", nil, sortFilter, "stable ascending order"},
		filterDef{"rsort", nil, rsortFilter, "stable descending order"},
		filterDef{"reverse", nil, reverseFilter, "reverses a sequence or text"},
	)
}

func defaultFilter(env registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if env.Undefined() || value.IsEmpty(target) {
		return args.Get("default"), nil
	}
	return target, nil
}

func firstFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	return edge("first", target, true)
}

func lastFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	return edge("last", target, false)
}

// edge returns the first or last character of text or element of a
// sequence. Null and empty inputs yield Null.
func edge(filter string, target value.Value, first bool) (value.Value, error) {
	switch target.Kind() {
	case value.KindNull:
		return value.Null(), nil
	case value.KindText:
		runes := []rune(target.String())
		if len(runes) == 0 {
			return value.Null(), nil
		}
		if first {
			return value.Text(string(runes[0])), nil
		}
		return value.Text(string(runes[len(runes)-1])), nil
	case value.KindSequence:
		seq, _ := target.AsSequence()
		n := seq.Count()
		if n == 0 {
			return value.Null(), nil
		}
		i := 0
		if !first {
			i = n - 1
		}
		v, _ := seq.Get(i)
		return v, nil
	default:
		return value.Null(), typeError(filter, target)
	}
}

func joinFilter(_ registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	glue := args.Text("glue")
	seq, ok := target.AsSequence()
	if !ok {
		if target.Kind() == value.KindMapping {
			return value.Null(), typeError("join", target)
		}
		return value.Text(target.String()), nil
	}
	parts := make([]string, 0, seq.Count())
	for item := range seq.All() {
		parts = append(parts, item.String())
	}
	return value.Text(strings.Join(parts, glue)), nil
}

func lengthFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	switch target.Kind() {
	case value.KindText:
		s, _ := target.AsText()
		return value.Int(int64(len([]rune(s)))), nil
	case value.KindSequence:
		seq, _ := target.AsSequence()
		return value.Int(int64(seq.Count())), nil
	case value.KindMapping:
		m, _ := target.AsMapping()
		return value.Int(int64(m.Len())), nil
	default:
		return value.Int(0), nil
	}
}

func sliceFilter(_ registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Null(), nil
	}
	from, err := args.Int("from")
	if err != nil {
		return value.Null(), err
	}

	switch target.Kind() {
	case value.KindText:
		runes := []rune(target.String())
		to, err := sliceEnd(args, len(runes))
		if err != nil {
			return value.Null(), err
		}
		if err := value.CheckBounds(from, to, len(runes)); err != nil {
			return value.Null(), err
		}
		return value.Text(string(runes[from:to])), nil
	case value.KindSequence:
		seq, _ := target.AsSequence()
		to, err := sliceEnd(args, seq.Count())
		if err != nil {
			return value.Null(), err
		}
		out, err := seq.Slice(from, to)
		if err != nil {
			return value.Null(), err
		}
		return value.FromSequence(out), nil
	default:
		return value.Null(), typeError("slice", target)
	}
}

// sliceEnd returns the bound "to" argument, or n when it was omitted.
func sliceEnd(args binding.Args, n int) (int, error) {
	if args.Get("to").IsNull() {
		return n, nil
	}
	return args.Int("to")
}

// mergeFilter combines target with other:
//
//   - mapping + mapping: key union, other wins on collisions
//   - mapping + sequence: every element becomes a key mapped to itself
//   - list + sequence: concatenation
//   - list + mapping: every entry is appended as {key, value}
//   - array + array: concatenation when the element kinds match
func mergeFilter(_ registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	other := args.Get("other")
	switch {
	case target.IsNull():
		return other, nil
	case other.IsNull():
		return target, nil
	}

	if m, ok := target.AsMapping(); ok {
		switch other.Kind() {
		case value.KindMapping:
			om, _ := other.AsMapping()
			return value.FromMapping(m.Merge(om)), nil
		case value.KindSequence:
			seq, _ := other.AsSequence()
			out := m.Clone()
			for item := range seq.All() {
				out.Set(item.String(), item)
			}
			return value.FromMapping(out), nil
		}
		return value.Null(), mergeError(target, other)
	}

	seq, ok := target.AsSequence()
	if !ok {
		return value.Null(), mergeError(target, other)
	}
	if seq.Category() == value.CategoryArray {
		os, ok := other.AsSequence()
		if !ok || !seq.Compatible(os) {
			return value.Null(), mergeError(target, other)
		}
		return value.FromSequence(seq.Concat(os)), nil
	}

	switch other.Kind() {
	case value.KindSequence:
		os, _ := other.AsSequence()
		return value.FromSequence(seq.Concat(os)), nil
	case value.KindMapping:
		om, _ := other.AsMapping()
		items := seq.Items()
		om.Each(func(key string, v value.Value) bool {
			entry := value.NewMapping()
			entry.Set("key", value.Text(key))
			entry.Set("value", v)
			items = append(items, value.FromMapping(entry))
			return true
		})
		return value.List(items...), nil
	}
	return value.Null(), mergeError(target, other)
}

func mergeError(target, other value.Value) error {
	return schema.NewErrorf(schema.ErrCodeType, "cannot merge %s with %s", describe(target), describe(other))
}

// describe names a value's kind, with the category of sequences.
func describe(v value.Value) string {
	seq, ok := v.AsSequence()
	if !ok {
		return v.Kind().String()
	}
	if seq.Category() == value.CategoryArray {
		return "array of " + seq.ElemKind()
	}
	return seq.Category().String()
}

func sortFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	return sorted("sort", target, false)
}

func rsortFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	return sorted("rsort", target, true)
}

func sorted(filter string, target value.Value, descending bool) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	seq, ok := target.AsSequence()
	if !ok {
		return value.Null(), typeError(filter, target)
	}

	items := seq.Items()
	var cmpErr error
	slices.SortStableFunc(items, func(a, b value.Value) int {
		c, err := value.Compare(a, b)
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		if descending {
			return -c
		}
		return c
	})
	if cmpErr != nil {
		return value.Null(), cmpErr
	}
	return value.FromSequence(like(seq, items)), nil
}

func reverseFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	switch target.Kind() {
	case value.KindNull:
		return value.Text(""), nil
	case value.KindText:
		runes := []rune(target.String())
		slices.Reverse(runes)
		return value.Text(string(runes)), nil
	case value.KindSequence:
		seq, _ := target.AsSequence()
		return value.FromSequence(seq.Reverse()), nil
	default:
		return value.Null(), typeError("reverse", target)
	}
}

// like builds a sequence of the same category as seq over items.
func like(seq *value.Sequence, items []value.Value) *value.Sequence {
	if seq.Category() == value.CategoryArray {
		return value.NewArray(seq.ElemKind(), items)
	}
	return value.NewList(items...)
}
