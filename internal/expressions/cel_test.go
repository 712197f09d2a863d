package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stencil/pkg/schema"
)

func TestNewCELEngine(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	assert.NotNil(t, e)
	assert.Equal(t, "cel", e.Name())
}

func TestCELEngine_ImplementsEngine(t *testing.T) {
	var _ Engine = (*CELEngine)(nil)
}

func TestCEL_Literals(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	out, err := e.Evaluate(context.Background(), "1 + 2", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	out, err = e.Evaluate(context.Background(), `"hello" + " " + "world"`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestCEL_ItAndVars(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	data := map[string]any{
		"it":   int64(7),
		"vars": map[string]any{"limit": int64(5), "user": map[string]any{"role": "admin"}},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"it > vars.limit", true},
		{"it % 2 == 0", false},
		{`vars.user.role == "admin"`, true},
		{`"limit" in vars`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tt.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCEL_NullIt(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	out, err := e.Evaluate(context.Background(), "it == null", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestCEL_Errors(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	tests := []struct {
		name  string
		expr  string
		input any
		code  string
	}{
		{"empty", "", nil, schema.ErrCodeValidation},
		{"syntax", "it >", nil, schema.ErrCodeValidation},
		{"undeclared", "missing == 1", nil, schema.ErrCodeValidation},
		{"runtime", "vars.nope == 1", map[string]any{}, schema.ErrCodeExecution},
		{"bad input", "true", "not a map", schema.ErrCodeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), tt.expr, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, schema.CodeOf(err))
		})
	}
}

func TestCEL_CacheReuse(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := e.Evaluate(context.Background(), "it == 1", map[string]any{"it": int64(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.programs.size())
}

func TestCEL_ConcurrentEvaluation(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			out, err := e.Evaluate(context.Background(), "it * 2", map[string]any{"it": n})
			assert.NoError(t, err)
			assert.Equal(t, n*2, out)
		}(int64(i))
	}
	wg.Wait()
}
