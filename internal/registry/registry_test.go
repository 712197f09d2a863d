package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func identity(_ Env, target value.Value, _ binding.Args) (value.Value, error) {
	return target, nil
}

func always(_ Env, _ value.Value, _ binding.Args) (bool, error) {
	return true, nil
}

func nothing(_ Env, _ binding.Args) (value.Value, error) {
	return value.Null(), nil
}

func TestBuilder_RegisterFilter_Success(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterFilter("same", nil, identity, WithDescription("returns its target")))
	reg := b.Build()

	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Has(KindFilter, "same"))
	f, err := reg.Filter("same")
	require.NoError(t, err)
	assert.Equal(t, "returns its target", f.Description)
}

func TestBuilder_Register_Duplicate(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterFilter("dup", nil, identity))

	err := b.RegisterFilter("dup", nil, identity)
	require.Error(t, err)

	var engErr *schema.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, schema.ErrCodeConflict, engErr.Code)
}

func TestBuilder_Register_SeparateNamespaces(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterFilter("empty", nil, identity))
	require.NoError(t, b.RegisterTest("empty", nil, always))
	require.NoError(t, b.RegisterFunction("empty", nil, nothing))

	reg := b.Build()
	assert.Equal(t, 3, reg.Count())
	assert.True(t, reg.Has(KindTest, "empty"))
	assert.True(t, reg.Has(KindFunction, "empty"))
}

func TestBuilder_Register_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		register func(b *Builder) error
	}{
		{"empty name", func(b *Builder) error { return b.RegisterFilter("", nil, identity) }},
		{"nil implementation", func(b *Builder) error { return b.RegisterTest("t", nil, nil) }},
		{"duplicate parameter", func(b *Builder) error {
			return b.RegisterFunction("f", binding.Params("a", "a"), nothing)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.register(NewBuilder())
			assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
		})
	}
}

func TestBuilder_Register_AfterBuild(t *testing.T) {
	b := NewBuilder()
	reg := b.Build()

	err := b.RegisterFilter("late", nil, identity)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
	assert.False(t, reg.Has(KindFilter, "late"))
}

func TestBuilder_Install(t *testing.T) {
	b := NewBuilder()
	err := b.Install(
		func(b *Builder) error { return b.RegisterFilter("a", nil, identity) },
		func(b *Builder) error { return b.RegisterFilter("a", nil, identity) },
		func(b *Builder) error { return b.RegisterFilter("never", nil, identity) },
	)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
	assert.False(t, b.Build().Has(KindFilter, "never"))
}

func TestRegistry_Get_NotFound(t *testing.T) {
	reg := NewBuilder().Build()

	_, err := reg.Filter("nope")
	var engErr *schema.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, schema.ErrCodeUnknownExtension, engErr.Code)
	assert.Equal(t, "nope", engErr.Extension)

	_, err = reg.Function("nope")
	assert.Equal(t, schema.ErrCodeUnknownExtension, schema.CodeOf(err))
	_, err = reg.Test("nope")
	assert.Equal(t, schema.ErrCodeUnknownExtension, schema.CodeOf(err))
}

func TestRegistry_List_Sorted(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterFilter("zeta", binding.Params("x"), identity))
	require.NoError(t, b.RegisterFilter("alpha", nil, identity))
	require.NoError(t, b.RegisterTest("odd", nil, always))
	require.NoError(t, b.RegisterFunction("range", binding.Params("start", "end").With("step", value.Int(1)), nothing))
	reg := b.Build()

	all := reg.List("")
	require.Len(t, all, 4)
	assert.Equal(t, KindFilter, all[0].Kind)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[1].Name)
	assert.Equal(t, []string{"x"}, all[1].Params)
	assert.Equal(t, KindFunction, all[2].Kind)
	assert.Equal(t, []string{"start", "end", "step"}, all[2].Params)
	assert.Equal(t, KindTest, all[3].Kind)

	tests := reg.List(KindTest)
	require.Len(t, tests, 1)
	assert.Equal(t, "odd", tests[0].Name)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterFilter("same", nil, identity))
	reg := b.Build()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := reg.Filter("same")
			assert.NoError(t, err)
			assert.Equal(t, "same", f.Name)
			_ = reg.List("")
		}()
	}
	wg.Wait()
}
