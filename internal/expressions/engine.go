// Package expressions wraps embedded query languages (CEL, jq, expr) and
// placeholder interpolation, and exposes them as template extensions.
package expressions

import "context"

// Engine evaluates an expression against input data.
// Three implementations: CEL (predicates), GoJQ (queries), Expr (computations).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, input any) (any, error)
}
