package engine

import (
	"errors"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// eval evaluates a node to a value.
func (rc *renderContext) eval(n tree.Node) (value.Value, error) {
	if !rc.life.Active() {
		return value.Null(), schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"render %s is no longer active", rc.life.renderID)
	}

	switch n := n.(type) {
	case *tree.Literal:
		return n.Value, nil
	case *tree.Variable:
		v, _, err := rc.resolve(n)
		return v, err
	case *tree.Filter:
		return rc.applyFilter(n)
	case *tree.Call:
		return rc.callFunction(n)
	case *tree.Test:
		return rc.applyTest(n)
	case *tree.List:
		items := make([]value.Value, len(n.Items))
		for i, item := range n.Items {
			v, err := rc.eval(item)
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		return value.List(items...), nil
	case *tree.Map:
		m := value.NewMapping()
		for _, entry := range n.Entries {
			v, err := rc.eval(entry.Value)
			if err != nil {
				return value.Null(), err
			}
			m.Set(entry.Key, v)
		}
		return value.FromMapping(m), nil
	case *tree.Let:
		return rc.evalLet(n)
	case nil:
		return value.Null(), schema.NewError(schema.ErrCodeValidation, "node is nil")
	default:
		pos := n.Position()
		return value.Null(), schema.NewErrorf(schema.ErrCodeValidation, "unsupported node %T", n).
			WithPosition(pos.Line, pos.Col)
	}
}

// evalTarget evaluates a filter or test target and reports whether it was a
// variable that did not resolve.
func (rc *renderContext) evalTarget(n tree.Node) (value.Value, bool, error) {
	if v, ok := n.(*tree.Variable); ok {
		return rc.resolve(v)
	}
	val, err := rc.eval(n)
	return val, false, err
}

func (rc *renderContext) evalLet(n *tree.Let) (value.Value, error) {
	frame := rc.scope.push()
	defer rc.scope.pop()

	for _, b := range n.Bindings {
		v, err := rc.eval(b.Value)
		if err != nil {
			return value.Null(), err
		}
		frame[b.Key] = v
	}
	return rc.eval(n.Body)
}

func (rc *renderContext) applyFilter(n *tree.Filter) (value.Value, error) {
	f, err := rc.reg.Filter(n.Name)
	if err != nil {
		return value.Null(), decorate(err, n.Name, n.Pos)
	}
	target, undefined, err := rc.evalTarget(n.Target)
	if err != nil {
		return value.Null(), err
	}
	args, err := rc.bindArgs(n.Name, n.Pos, f.Signature, n.Args)
	if err != nil {
		return value.Null(), err
	}
	out, err := f.Fn(rc.env(undefined), target, args)
	if err != nil {
		return value.Null(), decorate(err, n.Name, n.Pos)
	}
	return out, nil
}

func (rc *renderContext) callFunction(n *tree.Call) (value.Value, error) {
	f, err := rc.reg.Function(n.Name)
	if err != nil {
		return value.Null(), decorate(err, n.Name, n.Pos)
	}
	args, err := rc.bindArgs(n.Name, n.Pos, f.Signature, n.Args)
	if err != nil {
		return value.Null(), err
	}
	out, err := f.Fn(rc.env(false), args)
	if err != nil {
		return value.Null(), decorate(err, n.Name, n.Pos)
	}
	return out, nil
}

func (rc *renderContext) applyTest(n *tree.Test) (value.Value, error) {
	t, err := rc.reg.Test(n.Name)
	if err != nil {
		return value.Null(), decorate(err, n.Name, n.Pos)
	}
	target, undefined, err := rc.evalTarget(n.Target)
	if err != nil {
		return value.Null(), err
	}
	args, err := rc.bindArgs(n.Name, n.Pos, t.Signature, n.Args)
	if err != nil {
		return value.Null(), err
	}
	ok, err := t.Fn(rc.env(undefined), target, args)
	if err != nil {
		return value.Null(), decorate(err, n.Name, n.Pos)
	}
	return value.Bool(ok != n.Negated), nil
}

// bindArgs evaluates argument expressions left to right and binds them
// against the signature of the named extension.
func (rc *renderContext) bindArgs(name string, pos tree.Pos, sig binding.Signature, exprs []tree.Arg) (binding.Args, error) {
	args := make([]binding.Arg, len(exprs))
	for i, a := range exprs {
		v, err := rc.eval(a.Value)
		if err != nil {
			return binding.Args{}, err
		}
		args[i] = binding.Arg{Name: a.Name, Value: v}
	}
	bound, err := binding.BindCall(sig, args)
	if err != nil {
		return binding.Args{}, decorate(err, name, pos)
	}
	return bound, nil
}

// decorate attaches the extension name and source position to err unless
// an inner call already did. Plain errors from extension bodies become
// execution errors.
func decorate(err error, name string, pos tree.Pos) error {
	var engErr *schema.EngineError
	if !errors.As(err, &engErr) {
		engErr = schema.NewError(schema.ErrCodeExecution, err.Error()).WithCause(err)
		err = engErr
	}
	if engErr.Extension == "" {
		engErr.WithExtension(name)
	}
	if engErr.Line == 0 && pos.Line > 0 {
		engErr.WithPosition(pos.Line, pos.Col)
	}
	return err
}
