package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rendis/stencil/pkg/schema"
)

// CELEngine evaluates the Common Expression Language predicates behind the
// `cel` test. Its environment declares two variables:
//   - it:   dyn, the value under test
//   - vars: map(string, dyn), the variables visible at the call site
type CELEngine struct {
	env      *cel.Env
	programs *programCache[cel.Program]
}

// NewCELEngine creates the CEL environment.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("it", cel.DynType),
		cel.Variable("vars", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, programs: newProgramCache[cel.Program]()}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string { return "cel" }

// Evaluate runs expression over input, a map carrying "it" and "vars".
// A missing "it" is null and missing "vars" is an empty map.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, input any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty CEL expression")
	}
	data, ok := input.(map[string]any)
	if input != nil && !ok {
		return nil, schema.NewErrorf(schema.ErrCodeType, "CEL input must be a map, got %T", input)
	}

	prg, err := e.programs.get(expression, e.compile)
	if err != nil {
		return nil, err
	}

	activation := map[string]any{"it": nil, "vars": map[string]any{}}
	if it, ok := data["it"]; ok {
		activation["it"] = it
	}
	if vars, ok := data["vars"]; ok && vars != nil {
		activation["vars"] = vars
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return nil, runtimeError("CEL", expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError("CEL", expression, issues.Err())
	}
	// Interrupt checks let a canceled render stop long comprehensions.
	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, compileError("CEL", expression, err)
	}
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
