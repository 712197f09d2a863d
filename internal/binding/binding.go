// Package binding maps call-site arguments onto an extension's declared
// parameter list.
package binding

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Param is one declared parameter. A parameter without a default binds to
// Null when the call site leaves it unfilled.
type Param struct {
	Name       string
	Default    value.Value
	HasDefault bool
}

// Signature is the ordered parameter list of an extension. Names are unique.
type Signature []Param

// Params builds a signature of parameters without defaults.
func Params(names ...string) Signature {
	sig := make(Signature, len(names))
	for i, name := range names {
		sig[i] = Param{Name: name}
	}
	return sig
}

// With returns a copy of s where name carries a default value. An existing
// parameter keeps its position; a new one is appended.
func (s Signature) With(name string, def value.Value) Signature {
	p := Param{Name: name, Default: def, HasDefault: true}
	out := slices.Clone(s)
	if i := s.index(name); i >= 0 {
		out[i] = p
		return out
	}
	return append(out, p)
}

// Names returns the parameter names in declaration order.
func (s Signature) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Validate rejects duplicate or empty parameter names.
func (s Signature) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.Name == "" {
			return schema.NewError(schema.ErrCodeValidation, "parameter name must not be empty")
		}
		if seen[p.Name] {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (s Signature) String() string {
	return "(" + strings.Join(s.Names(), ", ") + ")"
}

// Arg is one evaluated call-site argument. An empty Name marks a positional
// argument.
type Arg struct {
	Name  string
	Value value.Value
}

// Positional builds a positional argument.
func Positional(v value.Value) Arg { return Arg{Value: v} }

// Named builds a named argument.
func Named(name string, v value.Value) Arg { return Arg{Name: name, Value: v} }

// BindCall binds call-site arguments in the order they were written.
//
// A positional argument fills the next parameter not yet filled; a named
// argument fills its own parameter. Naming an unknown parameter, filling a
// parameter twice, or passing more positional arguments than there are
// parameters is a BindingError. Parameters left unfilled take their default,
// or Null.
func BindCall(sig Signature, args []Arg) (Args, error) {
	vals := make([]value.Value, len(sig))
	filled := make([]bool, len(sig))
	next := 0

	for _, arg := range args {
		if arg.Name == "" {
			for next < len(sig) && filled[next] {
				next++
			}
			if next >= len(sig) {
				return Args{}, schema.NewErrorf(schema.ErrCodeBinding,
					"too many positional arguments: expected at most %d", len(sig)).
					WithDetails(map[string]any{"signature": sig.String()})
			}
			vals[next], filled[next] = arg.Value, true
			continue
		}

		idx := sig.index(arg.Name)
		if idx < 0 {
			return Args{}, schema.NewErrorf(schema.ErrCodeBinding, "unknown argument %q", arg.Name).
				WithDetails(map[string]any{"signature": sig.String()})
		}
		if filled[idx] {
			return Args{}, schema.NewErrorf(schema.ErrCodeBinding, "argument %q bound more than once", arg.Name).
				WithDetails(map[string]any{"signature": sig.String()})
		}
		vals[idx], filled[idx] = arg.Value, true
	}

	for i, p := range sig {
		if !filled[i] && p.HasDefault {
			vals[i] = p.Default
		}
	}
	return Args{sig: sig, vals: vals}, nil
}

// Bind binds positional arguments first and named arguments after them,
// following BindCall's call-site order. A name that targets a slot already
// filled positionally is therefore a BindingError: Bind((a, b), [x], {a: 5})
// fails rather than yielding {a: 5, b: x}. Named keys are applied in sorted
// order so errors are deterministic.
func Bind(sig Signature, positional []value.Value, named map[string]value.Value) (Args, error) {
	args := make([]Arg, 0, len(positional)+len(named))
	for _, v := range positional {
		args = append(args, Positional(v))
	}
	for _, name := range slices.Sorted(maps.Keys(named)) {
		args = append(args, Named(name, named[name]))
	}
	return BindCall(sig, args)
}

func (s Signature) index(name string) int {
	for i, p := range s {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Args is a complete binding: every declared parameter has a value.
type Args struct {
	sig  Signature
	vals []value.Value
}

// Len returns the number of bound parameters.
func (a Args) Len() int { return len(a.vals) }

// Get returns the value bound to name, or Null for an undeclared name.
func (a Args) Get(name string) value.Value {
	if idx := a.sig.index(name); idx >= 0 {
		return a.vals[idx]
	}
	return value.Null()
}

// At returns the value bound to the i-th declared parameter.
func (a Args) At(i int) value.Value {
	if i < 0 || i >= len(a.vals) {
		return value.Null()
	}
	return a.vals[i]
}

// Map returns the binding keyed by parameter name.
func (a Args) Map() map[string]value.Value {
	out := make(map[string]value.Value, len(a.vals))
	for i, p := range a.sig {
		out[p.Name] = a.vals[i]
	}
	return out
}

// Int coerces the named argument to an integer. Text holding a number is
// accepted; Null and other kinds are TypeErrors.
func (a Args) Int(name string) (int, error) {
	v := a.Get(name)
	switch v.Kind() {
	case value.KindInt:
		i, _ := v.AsInt()
		return int(i), nil
	case value.KindFloat, value.KindText:
		n, err := cast.ToIntE(value.ToNative(v))
		if err != nil {
			return 0, schema.NewErrorf(schema.ErrCodeType, "argument %q must be an integer, got %q", name, v.String()).
				WithCause(err)
		}
		return n, nil
	default:
		return 0, schema.NewErrorf(schema.ErrCodeType, "argument %q must be an integer, got %s", name, v.Kind())
	}
}

// Text returns the named argument as text, or "" when it is Null.
// Non-text values are coerced through their textual form.
func (a Args) Text(name string) string {
	return a.Get(name).String()
}

// RequireText returns the named argument as text, rejecting Null.
func (a Args) RequireText(name string) (string, error) {
	v := a.Get(name)
	if v.IsNull() {
		return "", schema.NewErrorf(schema.ErrCodeType, "argument %q is required", name)
	}
	return v.String(), nil
}

func (a Args) String() string {
	parts := make([]string, len(a.vals))
	for i, p := range a.sig {
		parts[i] = fmt.Sprintf("%s=%s", p.Name, a.vals[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
