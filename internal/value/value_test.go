package value

import (
	"encoding/json"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/rendis/stencil/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want string
	}{
		{"null", Null(), ""},
		{"true", Bool(true), "true"},
		{"int", Int(-5), "-5"},
		{"float", Float(5.2), "5.2"},
		{"integral float", Float(2), "2.0"},
		{"nan", Float(nanValue()), "NaN"},
		{"text", Text("héllo"), "héllo"},
		{"list", List(Text("Bob"), Text("Sarah")), "[Bob, Sarah]"},
		{"mapping", FromMapping(MappingOf("one", 1, "two", 2)), "{one=1, two=2}"},
		{"opaque stringer", Opaque(LocalDate{Year: 2017, Month: time.June, Day: 30}), "2017-06-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.val.String())
		})
	}
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestAdapt_Scalars(t *testing.T) {
	assert.Equal(t, KindNull, Adapt(nil).Kind())
	assert.Equal(t, Int(3), Adapt(int8(3)))
	assert.Equal(t, Int(7), Adapt(uint16(7)))
	assert.Equal(t, Float(0.1), Adapt(float32(0.1)))
	assert.Equal(t, Text("x"), Adapt("x"))
	assert.Equal(t, Int(12), Adapt(json.Number("12")))
	assert.Equal(t, Float(1.5), Adapt(json.Number("1.5")))

	var nilPtr *int
	assert.True(t, Adapt(nilPtr).IsNull())
	n := 9
	assert.Equal(t, Int(9), Adapt(&n))
}

func TestAdapt_PrimitiveArrays(t *testing.T) {
	tests := []struct {
		name string
		host any
		elem string
		at2  string
	}{
		{"bool", []bool{true, false, true}, "bool", "true"},
		{"byte", []byte{0, 1, 2}, "uint8", "2"},
		{"int16", []int16{0, 1, 2}, "int16", "2"},
		{"int", []int{0, 1, 2}, "int", "2"},
		{"int64", []int64{0, 1, 2}, "int64", "2"},
		{"float32", []float32{0, 1, 2}, "float32", "2.0"},
		{"float64", [3]float64{0, 1, 2}, "float64", "2.0"},
		{"string", []string{"a", "b", "c"}, "string", "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Adapt(tt.host)
			seq, ok := v.AsSequence()
			require.True(t, ok)
			assert.Equal(t, CategoryArray, seq.Category())
			assert.Equal(t, tt.elem, seq.ElemKind())
			n, known := seq.Len()
			assert.True(t, known)
			assert.Equal(t, 3, n)
			got, ok := seq.Get(2)
			require.True(t, ok)
			assert.Equal(t, tt.at2, got.String())
		})
	}
}

func TestAdapt_ByteIsNumeric(t *testing.T) {
	seq, _ := Adapt([]byte("A")).AsSequence()
	got, _ := seq.Get(0)
	assert.Equal(t, Int(65), got)
}

func TestAdapt_AnySliceIsList(t *testing.T) {
	seq, ok := Adapt([]any{"a", 1, nil}).AsSequence()
	require.True(t, ok)
	assert.Equal(t, CategoryList, seq.Category())
	assert.Equal(t, "[a, 1, ]", seq.String())
}

func TestAdapt_GoMapSortedKeys(t *testing.T) {
	m, ok := Adapt(map[string]int{"b": 2, "a": 1, "c": 3}).AsMapping()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}

func TestAdapt_OrderedMapKeepsOrder(t *testing.T) {
	om := orderedmap.New[string, any]()
	om.Set("zeta", 1)
	om.Set("alpha", 2)
	m, ok := Adapt(om).AsMapping()
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha"}, m.Keys())
}

type countdown struct{ n int }

func (c *countdown) Next() (any, bool) {
	if c.n == 0 {
		return nil, false
	}
	c.n--
	return c.n, true
}

func TestAdapt_Iterators(t *testing.T) {
	seq, ok := Adapt(&countdown{n: 3}).AsSequence()
	require.True(t, ok)
	_, known := seq.Len()
	assert.False(t, known)
	assert.Equal(t, 3, seq.Count())
	n, known := seq.Len()
	assert.True(t, known)
	assert.Equal(t, 3, n)
	assert.Equal(t, "[2, 1, 0]", seq.String())

	var pushed iter.Seq[string] = func(yield func(string) bool) {
		for _, s := range []string{"x", "y"} {
			if !yield(s) {
				return
			}
		}
	}
	seq, ok = Adapt(pushed).AsSequence()
	require.True(t, ok)
	assert.Equal(t, []Value{Text("x"), Text("y")}, seq.Items())
}

func TestSequence_ConcurrentDrain(t *testing.T) {
	calls := 0
	var src iter.Seq[Value] = func(yield func(Value) bool) {
		calls++
		for i := range 5 {
			if !yield(Int(int64(i))) {
				return
			}
		}
	}
	seq := NewIterator(src)

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for i := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				counts[i] = seq.Count()
				return
			}
			counts[i] = len(Adapt(seq).String())
		}()
	}
	wg.Wait()

	for i, c := range counts {
		if i%2 == 0 {
			assert.Equal(t, 5, c)
		} else {
			assert.Equal(t, len("[0, 1, 2, 3, 4]"), c)
		}
	}
	assert.Equal(t, 1, calls)
	n, known := seq.Len()
	assert.True(t, known)
	assert.Equal(t, 5, n)
}

type user struct{ Name string }

func TestAdapt_StructIsOpaque(t *testing.T) {
	v := Adapt(&user{Name: "ann"})
	assert.Equal(t, KindOpaque, v.Kind())
	assert.Equal(t, KindOpaque, Adapt(time.Unix(0, 0)).Kind())
}

func TestSequence_Slice(t *testing.T) {
	seq, _ := Adapt([]int32{0, 1, 2, 3, 4}).AsSequence()

	got, err := seq.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, CategoryArray, got.Category())
	assert.Equal(t, "int32", got.ElemKind())
	assert.Equal(t, "[1, 2]", got.String())

	again, err := got.Slice(0, got.Count())
	require.NoError(t, err)
	assert.Equal(t, got.Items(), again.Items())

	_, err = seq.Slice(-1, 2)
	assert.True(t, schema.IsCode(err, schema.ErrCodeRange))
	_, err = seq.Slice(0, 6)
	assert.True(t, schema.IsCode(err, schema.ErrCodeRange))
	_, err = seq.Slice(3, 2)
	assert.True(t, schema.IsCode(err, schema.ErrCodeRange))
}

func TestSequence_Compatible(t *testing.T) {
	ints, _ := Adapt([]int{1}).AsSequence()
	moreInts, _ := Adapt([]int{2}).AsSequence()
	strs, _ := Adapt([]string{"2"}).AsSequence()
	list := NewList(Int(1))

	assert.True(t, ints.Compatible(moreInts))
	assert.False(t, ints.Compatible(strs))
	assert.False(t, ints.Compatible(list))
	assert.True(t, list.Compatible(NewList()))
	assert.Equal(t, "[1, 2]", ints.Concat(moreInts).String())
}

func TestMapping_Merge(t *testing.T) {
	a := MappingOf("one", 1, "two", 2)
	b := MappingOf("two", 20, "three", 3)

	merged := a.Merge(b)
	assert.Equal(t, []string{"one", "two", "three"}, merged.Keys())
	two, _ := merged.Get("two")
	assert.Equal(t, Int(20), two)

	// Inputs are untouched.
	assert.Equal(t, 2, a.Len())
	orig, _ := a.Get("two")
	assert.Equal(t, Int(2), orig)
}

func TestCompare(t *testing.T) {
	c, err := Compare(Int(1), Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(Text("apple"), Text("Apple"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(Bool(false), Bool(true))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = Compare(Text("1"), Int(1))
	assert.True(t, schema.IsCode(err, schema.ErrCodeType))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(Null()))
	assert.True(t, IsEmpty(Text("  ")))
	assert.True(t, IsEmpty(List()))
	assert.True(t, IsEmpty(FromMapping(NewMapping())))
	assert.False(t, IsEmpty(Int(0)))
	assert.False(t, IsEmpty(Bool(false)))
	assert.False(t, IsEmpty(Text("x")))
}

func TestToNative(t *testing.T) {
	v := FromMapping(MappingOf("list", []any{1, "a"}, "n", nil))
	assert.Equal(t, map[string]any{"list": []any{int64(1), "a"}, "n": nil}, ToNative(v))
}
