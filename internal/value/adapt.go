package value

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Iterator is a pull-style host iterator. Adapt turns it into a sequence of
// unknown length.
type Iterator interface {
	Next() (any, bool)
}

// Adapt converts any host value into the canonical model.
//
//   - nil and nil pointers become Null.
//   - Numbers, booleans and strings become their scalar kinds; json.Number
//     becomes Int when integral, Float otherwise.
//   - []any and iterators become list sequences; slices and arrays with a
//     concrete element type become array sequences whose elements are
//     adapted one by one (a byte is an Int holding its numeric value).
//   - Maps become mappings. Ordered maps keep their order, Go maps are
//     iterated in sorted key order so output stays deterministic.
//   - Everything else, including time.Time and structs, becomes Opaque.
func Adapt(host any) Value {
	switch h := host.(type) {
	case nil:
		return Null()
	case Value:
		return h
	case *Sequence:
		return FromSequence(h)
	case *Mapping:
		return FromMapping(h)
	case bool:
		return Bool(h)
	case int:
		return Int(int64(h))
	case int64:
		return Int(h)
	case int32:
		return Int(int64(h))
	case float64:
		return Float(h)
	case float32:
		return Float(widenFloat32(h))
	case string:
		return Text(h)
	case json.Number:
		if i, err := h.Int64(); err == nil {
			return Int(i)
		}
		if f, err := h.Float64(); err == nil {
			return Float(f)
		}
		return Text(h.String())
	case []any:
		items := make([]Value, len(h))
		for i, item := range h {
			items[i] = Adapt(item)
		}
		return FromSequence(NewList(items...))
	case []Value:
		return FromSequence(NewList(h...))
	case *orderedmap.OrderedMap[string, any]:
		m := NewMapping()
		for pair := h.Oldest(); pair != nil; pair = pair.Next() {
			m.Set(pair.Key, Adapt(pair.Value))
		}
		return FromMapping(m)
	case iter.Seq[any]:
		return FromSequence(NewIterator(func(yield func(Value) bool) {
			for v := range h {
				if !yield(Adapt(v)) {
					return
				}
			}
		}))
	case Iterator:
		return FromSequence(NewIterator(func(yield func(Value) bool) {
			for {
				v, ok := h.Next()
				if !ok || !yield(Adapt(v)) {
					return
				}
			}
		}))
	case time.Time, LocalDateTime, LocalDate, LocalTime:
		return Opaque(h)
	}
	return adaptReflect(reflect.ValueOf(host))
}

func adaptReflect(rv reflect.Value) Value {
	if !rv.IsValid() {
		return Null()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Float(float64(u))
		}
		return Int(int64(u))
	case reflect.Float32:
		return Float(widenFloat32(float32(rv.Float())))
	case reflect.Float64:
		return Float(rv.Float())
	case reflect.String:
		return Text(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return Null()
		}
		return adaptIndexable(rv)
	case reflect.Array:
		return adaptIndexable(rv)
	case reflect.Map:
		if rv.IsNil() {
			return Null()
		}
		return adaptMap(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct {
			return Opaque(rv.Interface())
		}
		return Adapt(rv.Elem().Interface())
	case reflect.Func:
		if seq, ok := adaptSeqFunc(rv); ok {
			return seq
		}
	}
	if rv.CanInterface() {
		return Opaque(rv.Interface())
	}
	return Null()
}

// adaptIndexable adapts slices and arrays. Elements are converted lazily on
// access; interface-typed element slices are lists, concrete ones arrays.
func adaptIndexable(rv reflect.Value) Value {
	elemType := rv.Type().Elem()
	at := func(i int) Value { return adaptElement(rv.Index(i)) }
	if elemType.Kind() == reflect.Interface {
		return FromSequence(newLazy(CategoryList, "", rv.Len(), at))
	}
	return FromSequence(newLazy(CategoryArray, elemType.String(), rv.Len(), at))
}

func adaptElement(rv reflect.Value) Value {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null()
		}
		return Adapt(rv.Elem().Interface())
	}
	if rv.CanInterface() {
		return Adapt(rv.Interface())
	}
	return adaptReflect(rv)
}

func adaptMap(rv reflect.Value) Value {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		k := it.Key()
		var key string
		if k.Kind() == reflect.String {
			key = k.String()
		} else {
			key = Adapt(k.Interface()).String()
		}
		entries = append(entries, entry{key: key, val: it.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	m := NewMapping()
	for _, e := range entries {
		m.Set(e.key, adaptElement(e.val))
	}
	return FromMapping(m)
}

// adaptSeqFunc recognises range-over-func iterators of any element type,
// i.e. func(yield func(T) bool).
func adaptSeqFunc(rv reflect.Value) (Value, bool) {
	t := rv.Type()
	if rv.IsNil() || t.NumIn() != 1 || t.NumOut() != 0 {
		return Null(), false
	}
	yieldType := t.In(0)
	if yieldType.Kind() != reflect.Func || yieldType.NumIn() != 1 || yieldType.NumOut() != 1 ||
		yieldType.Out(0).Kind() != reflect.Bool {
		return Null(), false
	}

	seq := func(yield func(any) bool) {
		fn := reflect.MakeFunc(yieldType, func(args []reflect.Value) []reflect.Value {
			return []reflect.Value{reflect.ValueOf(yield(args[0].Interface()))}
		})
		rv.Call([]reflect.Value{fn})
	}
	return Adapt(iter.Seq[any](seq)), true
}

// widenFloat32 converts through the shortest decimal representation so that
// float32(0.1) becomes 0.1 rather than 0.10000000149011612.
func widenFloat32(f float32) float64 {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	out, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return float64(f)
	}
	return out
}

// ToNative converts a Value back into plain Go data: nil, bool, int64,
// float64, string, []any, map[string]any, or the Opaque host object.
func ToNative(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindSequence:
		items := v.seq.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = ToNative(item)
		}
		return out
	case KindMapping:
		out := make(map[string]any, v.m.Len())
		v.m.Each(func(key string, item Value) bool {
			out[key] = ToNative(item)
			return true
		})
		return out
	case KindOpaque:
		return v.host
	default:
		panic(fmt.Sprintf("value: unknown kind %d", v.kind))
	}
}
