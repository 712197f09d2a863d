// Package tree defines the expression tree the evaluator walks. Trees come
// from a render document (see Decode) or are built directly by a host.
package tree

import (
	"strings"

	"github.com/rendis/stencil/internal/value"
)

// Pos is a source position. The zero Pos means unknown.
type Pos struct {
	Line int
	Col  int
}

// Position returns the node position.
func (p Pos) Position() Pos { return p }

// Node is any expression node.
type Node interface {
	Position() Pos
	node()
}

// Literal is a constant value.
type Literal struct {
	Pos
	Value value.Value
}

// Variable resolves a dotted path against the scope stack.
type Variable struct {
	Pos
	Path []string
}

// Name returns the dotted form of the path.
func (v *Variable) Name() string { return strings.Join(v.Path, ".") }

// Arg is a call-site argument expression. An empty Name marks a positional
// argument.
type Arg struct {
	Name  string
	Value Node
}

// Filter applies the named filter to Target.
type Filter struct {
	Pos
	Name   string
	Target Node
	Args   []Arg
}

// Call invokes the named function.
type Call struct {
	Pos
	Name string
	Args []Arg
}

// Test applies the named test to Target and yields a Bool.
type Test struct {
	Pos
	Name    string
	Target  Node
	Args    []Arg
	Negated bool
}

// List is a list literal.
type List struct {
	Pos
	Items []Node
}

// Entry is a key/expression pair.
type Entry struct {
	Key   string
	Value Node
}

// Map is a map literal; entries keep their order.
type Map struct {
	Pos
	Entries []Entry
}

// Let evaluates Bindings in order, pushes them as a new scope and evaluates
// Body inside it. Later bindings see earlier ones.
type Let struct {
	Pos
	Bindings []Entry
	Body     Node
}

func (*Literal) node()  {}
func (*Variable) node() {}
func (*Filter) node()   {}
func (*Call) node()     {}
func (*Test) node()     {}
func (*List) node()     {}
func (*Map) node()      {}
func (*Let) node()      {}

// Segment is one piece of template output. A nil Print means the segment is
// raw Text.
type Segment struct {
	Text  string
	Print Node
}

// Template is an ordered list of output segments.
type Template struct {
	Name     string
	Segments []Segment
}

// Lit builds a literal from any host value.
func Lit(host any) *Literal {
	return &Literal{Value: value.Adapt(host)}
}

// Var builds a variable reference from a dotted path.
func Var(path string) *Variable {
	return &Variable{Path: strings.Split(path, ".")}
}

// Positional builds a positional argument.
func Positional(n Node) Arg { return Arg{Value: n} }

// Named builds a named argument.
func Named(name string, n Node) Arg { return Arg{Name: name, Value: n} }

// Apply builds a filter node.
func Apply(target Node, name string, args ...Arg) *Filter {
	return &Filter{Name: name, Target: target, Args: args}
}

// Invoke builds a function call node.
func Invoke(name string, args ...Arg) *Call {
	return &Call{Name: name, Args: args}
}

// Is builds a test node.
func Is(target Node, name string, args ...Arg) *Test {
	return &Test{Name: name, Target: target, Args: args}
}

// Print builds a single-segment template printing n.
func Print(n Node) *Template {
	return &Template{Segments: []Segment{{Print: n}}}
}
