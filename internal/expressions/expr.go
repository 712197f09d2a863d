package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/stencil/pkg/schema"
)

// ExprEngine runs expr-lang/expr programs for the `expr` function. The
// visible variables are the program's environment, so let bindings, array
// builtins (filter, map, sum, ...), nil coalescing (??) and optional
// chaining (?.) all work against template data.
type ExprEngine struct {
	programs *programCache[*vm.Program]
}

// NewExprEngine creates a new Expr expression engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{programs: newProgramCache[*vm.Program]()}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string { return "expr" }

// Evaluate runs expression with the keys of input as top-level variables.
// input must be a map[string]any or nil.
func (e *ExprEngine) Evaluate(_ context.Context, expression string, input any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}
	vars, ok := input.(map[string]any)
	if input != nil && !ok {
		return nil, schema.NewErrorf(schema.ErrCodeType, "expr input must be a map, got %T", input)
	}
	if vars == nil {
		vars = map[string]any{}
	}

	prg, err := e.programs.get(expression, compileExpr)
	if err != nil {
		return nil, err
	}
	out, err := vm.Run(prg, vars)
	if err != nil {
		return nil, runtimeError("expr", expression, err)
	}
	return out, nil
}

// compileExpr checks against an untyped map environment so one program
// serves every render regardless of the variables' types.
func compileExpr(expression string) (*vm.Program, error) {
	prg, err := expr.Compile(expression, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, compileError("expr", expression, err)
	}
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
