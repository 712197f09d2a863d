package builtins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func TestBuiltinTests(t *testing.T) {
	e := newTestEngine(t)
	data := map[string]any{"present": "x", "blank": " ", "n": 4, "list": []int{1}, "obj": map[string]any{}}

	tests := []struct {
		name string
		node tree.Node
		want bool
	}{
		{"null literal", tree.Is(tree.Lit(nil), "null"), true},
		{"null missing variable", tree.Is(tree.Var("missing"), "null"), true},
		{"null text", tree.Is(tree.Var("present"), "null"), false},
		{"defined present", tree.Is(tree.Var("present"), "defined"), true},
		{"defined missing", tree.Is(tree.Var("missing.deep"), "defined"), false},
		{"defined literal null", tree.Is(tree.Lit(nil), "defined"), true},
		{"empty blank", tree.Is(tree.Var("blank"), "empty"), true},
		{"empty map", tree.Is(tree.Var("obj"), "empty"), true},
		{"empty number", tree.Is(tree.Lit(0), "empty"), false},
		{"even", tree.Is(tree.Var("n"), "even"), true},
		{"odd", tree.Is(tree.Var("n"), "odd"), false},
		{"odd negative", tree.Is(tree.Lit(-3), "odd"), true},
		{"iterable list", tree.Is(tree.Var("list"), "iterable"), true},
		{"iterable text", tree.Is(tree.Var("present"), "iterable"), false},
		{"map", tree.Is(tree.Var("obj"), "map"), true},
		{"map list", tree.Is(tree.Var("list"), "map"), false},
		{"negated", &tree.Test{Name: "even", Target: tree.Lit(3), Negated: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Evaluate(context.Background(), tt.node, data)
			require.NoError(t, err)
			assert.Equal(t, value.Bool(tt.want), v)
		})
	}
}

func TestBuiltinTests_ParityNeedsIntegers(t *testing.T) {
	e := newTestEngine(t)
	for _, name := range []string{"even", "odd"} {
		for _, target := range []any{2.0, "2", nil} {
			_, err := e.Evaluate(context.Background(), tree.Is(tree.Lit(target), name), nil)
			assert.Equal(t, schema.ErrCodeType, schema.CodeOf(err), "%s %v", name, target)
		}
	}
}

func TestExtensionsThroughRegistry(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	data := map[string]any{"order": map[string]any{"id": "A-17", "total": 12.5}}

	v, err := e.Evaluate(ctx, tree.Is(tree.Lit(4), "schema", arg(`{"type": "integer", "maximum": 10}`)), nil)
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)

	v, err = e.Evaluate(ctx, tree.Is(tree.Var("order.total"), "cel", arg("it > 10.0")), data)
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)

	v, err = e.Evaluate(ctx, tree.Invoke("expr", arg("order.total * 2")), data)
	require.NoError(t, err)
	assert.Equal(t, value.Float(25), v)

	out, err := e.RenderString(ctx, tree.Print(tree.Apply(tree.Var("order"), "jq", arg(".id"))), data)
	require.NoError(t, err)
	assert.Equal(t, "A-17", out)

	out, err = e.RenderString(ctx, tree.Print(tree.Apply(tree.Lit("Order ${{ order.id }}"), "interpolate")), data)
	require.NoError(t, err)
	assert.Equal(t, "Order A-17", out)
}
