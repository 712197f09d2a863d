package expressions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/itchyny/gojq"

	"github.com/rendis/stencil/pkg/schema"
)

// GoJQEngine runs jq queries for the `jq` filter. Queries cannot read the
// process environment: $ENV is always empty.
type GoJQEngine struct {
	programs *programCache[*gojq.Code]
}

// NewGoJQEngine creates a new GoJQ expression engine.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{programs: newProgramCache[*gojq.Code]()}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string { return "jq" }

// Evaluate runs expression over input. A query yielding one output returns
// it directly, several outputs come back as []any, and no output is nil.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, input any) (any, error) {
	outs, err := e.EvaluateAll(ctx, expression, input)
	if err != nil {
		return nil, err
	}
	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outs[0], nil
	default:
		return outs, nil
	}
}

// EvaluateAll is Evaluate that always collects the outputs into a slice.
func (e *GoJQEngine) EvaluateAll(ctx context.Context, expression string, input any) ([]any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty jq expression")
	}
	code, err := e.programs.get(expression, compileJQ)
	if err != nil {
		return nil, err
	}

	var outs []any
	iter := code.RunWithContext(ctx, toJQ(input))
	for {
		v, ok := iter.Next()
		if !ok {
			return outs, nil
		}
		if err, isErr := v.(error); isErr {
			return nil, runtimeError("jq", expression, err)
		}
		outs = append(outs, fromJQ(v))
	}
}

func compileJQ(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, compileError("jq", expression, err)
	}
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, compileError("jq", expression, err)
	}
	return code, nil
}

// toJQ converts host values to the types gojq accepts: nil, bool, int,
// float64, *big.Int, string, []any and map[string]any. Other values are
// passed as their text form.
func toJQ(v any) any {
	switch val := v.(type) {
	case nil, bool, int, float64, string, *big.Int:
		return val
	case int64:
		return int(val)
	case int32:
		return int(val)
	case float32:
		return float64(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJQ(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJQ(item)
		}
		return out
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// fromJQ narrows big integers in jq output to int64 when they fit and to
// float64 otherwise.
func fromJQ(v any) any {
	switch val := v.(type) {
	case *big.Int:
		if val.IsInt64() {
			return val.Int64()
		}
		f, _ := new(big.Float).SetInt(val).Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = fromJQ(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = fromJQ(item)
		}
		return val
	default:
		return v
	}
}

var _ Engine = (*GoJQEngine)(nil)
