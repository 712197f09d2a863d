package expressions

import (
	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Extensions holds the engines behind the query-language extensions.
type Extensions struct {
	CEL  *CELEngine
	JQ   *GoJQEngine
	Expr *ExprEngine
}

// NewExtensions creates all three engines.
func NewExtensions() (*Extensions, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Extensions{CEL: celEngine, JQ: NewGoJQEngine(), Expr: NewExprEngine()}, nil
}

// Register adds the jq and interpolate filters, the cel test and the expr
// function. It satisfies registry.Module.
func (x *Extensions) Register(b *registry.Builder) error {
	return b.Install(
		func(b *registry.Builder) error {
			return b.RegisterFilter("jq", binding.Params("query"), x.jqFilter,
				registry.WithDescription("runs a jq query over the target"))
		},
		func(b *registry.Builder) error {
			return b.RegisterFilter("interpolate", nil, interpolateFilter,
				registry.WithDescription("replaces ${{ path }} references with visible variables"))
		},
		func(b *registry.Builder) error {
			return b.RegisterTest("cel", binding.Params("expression"), x.celTest,
				registry.WithDescription("evaluates a CEL predicate with `it` bound to the target"))
		},
		func(b *registry.Builder) error {
			return b.RegisterFunction("expr", binding.Params("expression"), x.exprFunction,
				registry.WithDescription("evaluates an expr-lang expression over the visible variables"))
		},
	)
}

func (x *Extensions) jqFilter(env registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	query, err := args.RequireText("query")
	if err != nil {
		return value.Null(), err
	}
	out, err := x.JQ.Evaluate(env.Context(), query, value.ToNative(target))
	if err != nil {
		return value.Null(), err
	}
	return value.Adapt(out), nil
}

func interpolateFilter(env registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	out, err := Interpolate(env, target.String())
	if err != nil {
		return value.Null(), err
	}
	return value.Text(out), nil
}

func (x *Extensions) celTest(env registry.Env, target value.Value, args binding.Args) (bool, error) {
	expression, err := args.RequireText("expression")
	if err != nil {
		return false, err
	}
	out, err := x.CEL.Evaluate(env.Context(), expression, map[string]any{
		"it":   value.ToNative(target),
		"vars": env.Variables(),
	})
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeType,
			"CEL expression %q must yield a bool, got %T", expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return b, nil
}

func (x *Extensions) exprFunction(env registry.Env, args binding.Args) (value.Value, error) {
	expression, err := args.RequireText("expression")
	if err != nil {
		return value.Null(), err
	}
	out, err := x.Expr.Evaluate(env.Context(), expression, env.Variables())
	if err != nil {
		return value.Null(), err
	}
	return value.Adapt(out), nil
}
