// Package registry holds the extension table: named filters, functions and
// tests with their declared signatures.
//
// A Builder collects registrations during engine construction. Build seals
// it into a Registry that is never mutated again, so any number of renders
// can read it concurrently without locking.
package registry

import (
	"context"
	"sort"
	"time"

	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Kind names one of the three extension namespaces.
type Kind string

const (
	KindFilter   Kind = "filter"
	KindFunction Kind = "function"
	KindTest     Kind = "test"
)

// Env is the read-only view of the render an extension runs in.
type Env interface {
	Context() context.Context
	Locale() language.Tag
	Location() *time.Location
	Strict() bool
	// Undefined reports whether the current target came from a variable
	// that did not resolve (only possible when Strict is false).
	Undefined() bool
	Lookup(name string) (value.Value, bool)
	// Variables flattens the visible scopes, innermost wins, into native Go data.
	Variables() map[string]any
}

// FilterFunc transforms a target value.
type FilterFunc func(env Env, target value.Value, args binding.Args) (value.Value, error)

// FunctionFunc produces a value from its arguments alone.
type FunctionFunc func(env Env, args binding.Args) (value.Value, error)

// TestFunc checks a predicate on a target value.
type TestFunc func(env Env, target value.Value, args binding.Args) (bool, error)

// Filter is a registered filter.
type Filter struct {
	Name        string
	Signature   binding.Signature
	Description string
	Fn          FilterFunc
}

// Function is a registered function.
type Function struct {
	Name        string
	Signature   binding.Signature
	Description string
	Fn          FunctionFunc
}

// Test is a registered test.
type Test struct {
	Name        string
	Signature   binding.Signature
	Description string
	Fn          TestFunc
}

// Info summarizes a registered extension for listing.
type Info struct {
	Kind        Kind     `json:"kind"`
	Name        string   `json:"name"`
	Params      []string `json:"params"`
	Description string   `json:"description,omitempty"`
}

// Option customizes a registration.
type Option func(*options)

type options struct {
	description string
}

// WithDescription sets the human-readable description shown in listings.
func WithDescription(desc string) Option {
	return func(o *options) { o.description = desc }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Builder collects extensions before the registry is sealed. It is not safe
// for concurrent use; registration happens once, during construction.
type Builder struct {
	filters   map[string]Filter
	functions map[string]Function
	tests     map[string]Test
	sealed    bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		filters:   make(map[string]Filter),
		functions: make(map[string]Function),
		tests:     make(map[string]Test),
	}
}

// RegisterFilter adds a filter. Returns error on duplicate name.
func (b *Builder) RegisterFilter(name string, sig binding.Signature, fn FilterFunc, opts ...Option) error {
	if err := b.check(KindFilter, name, sig, fn == nil); err != nil {
		return err
	}
	if _, exists := b.filters[name]; exists {
		return conflict(KindFilter, name)
	}
	o := applyOptions(opts)
	b.filters[name] = Filter{Name: name, Signature: sig, Description: o.description, Fn: fn}
	return nil
}

// RegisterFunction adds a function. Returns error on duplicate name.
func (b *Builder) RegisterFunction(name string, sig binding.Signature, fn FunctionFunc, opts ...Option) error {
	if err := b.check(KindFunction, name, sig, fn == nil); err != nil {
		return err
	}
	if _, exists := b.functions[name]; exists {
		return conflict(KindFunction, name)
	}
	o := applyOptions(opts)
	b.functions[name] = Function{Name: name, Signature: sig, Description: o.description, Fn: fn}
	return nil
}

// RegisterTest adds a test. Returns error on duplicate name.
func (b *Builder) RegisterTest(name string, sig binding.Signature, fn TestFunc, opts ...Option) error {
	if err := b.check(KindTest, name, sig, fn == nil); err != nil {
		return err
	}
	if _, exists := b.tests[name]; exists {
		return conflict(KindTest, name)
	}
	o := applyOptions(opts)
	b.tests[name] = Test{Name: name, Signature: sig, Description: o.description, Fn: fn}
	return nil
}

func (b *Builder) check(kind Kind, name string, sig binding.Signature, nilFn bool) error {
	if b.sealed {
		return schema.NewErrorf(schema.ErrCodeConflict, "registry is sealed, cannot register %s %q", kind, name)
	}
	if name == "" {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s name is empty", kind)
	}
	if nilFn {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s %q has no implementation", kind, name)
	}
	if err := sig.Validate(); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s %q: invalid signature", kind, name).WithCause(err)
	}
	return nil
}

func conflict(kind Kind, name string) error {
	return schema.NewErrorf(schema.ErrCodeConflict, "%s %q already registered", kind, name)
}

// Module registers a related group of extensions.
type Module func(b *Builder) error

// Install runs each module against the builder, stopping at the first error.
func (b *Builder) Install(modules ...Module) error {
	for _, m := range modules {
		if err := m(b); err != nil {
			return err
		}
	}
	return nil
}

// Build seals the builder and returns the immutable registry. Further
// registrations on the builder fail with a conflict.
func (b *Builder) Build() *Registry {
	b.sealed = true
	r := &Registry{
		filters:   make(map[string]Filter, len(b.filters)),
		functions: make(map[string]Function, len(b.functions)),
		tests:     make(map[string]Test, len(b.tests)),
	}
	for k, v := range b.filters {
		r.filters[k] = v
	}
	for k, v := range b.functions {
		r.functions[k] = v
	}
	for k, v := range b.tests {
		r.tests[k] = v
	}
	return r
}

// Registry is the sealed extension table. All methods are read-only.
type Registry struct {
	filters   map[string]Filter
	functions map[string]Function
	tests     map[string]Test
}

// Filter retrieves a filter by name.
func (r *Registry) Filter(name string) (Filter, error) {
	f, ok := r.filters[name]
	if !ok {
		return Filter{}, unknown(KindFilter, name)
	}
	return f, nil
}

// Function retrieves a function by name.
func (r *Registry) Function(name string) (Function, error) {
	f, ok := r.functions[name]
	if !ok {
		return Function{}, unknown(KindFunction, name)
	}
	return f, nil
}

// Test retrieves a test by name.
func (r *Registry) Test(name string) (Test, error) {
	t, ok := r.tests[name]
	if !ok {
		return Test{}, unknown(KindTest, name)
	}
	return t, nil
}

func unknown(kind Kind, name string) error {
	return schema.NewErrorf(schema.ErrCodeUnknownExtension, "%s %q not registered", kind, name).WithExtension(name)
}

// Has checks if an extension of the given kind is registered.
func (r *Registry) Has(kind Kind, name string) bool {
	var ok bool
	switch kind {
	case KindFilter:
		_, ok = r.filters[name]
	case KindFunction:
		_, ok = r.functions[name]
	case KindTest:
		_, ok = r.tests[name]
	}
	return ok
}

// Count returns the number of registered extensions across all kinds.
func (r *Registry) Count() int {
	return len(r.filters) + len(r.functions) + len(r.tests)
}

// List returns info for all registered extensions, sorted by kind then name.
// A non-empty kind restricts the listing to that namespace.
func (r *Registry) List(kind Kind) []Info {
	infos := make([]Info, 0, r.Count())
	if kind == "" || kind == KindFilter {
		for _, f := range r.filters {
			infos = append(infos, Info{Kind: KindFilter, Name: f.Name, Params: f.Signature.Names(), Description: f.Description})
		}
	}
	if kind == "" || kind == KindFunction {
		for _, f := range r.functions {
			infos = append(infos, Info{Kind: KindFunction, Name: f.Name, Params: f.Signature.Names(), Description: f.Description})
		}
	}
	if kind == "" || kind == KindTest {
		for _, t := range r.tests {
			infos = append(infos, Info{Kind: KindTest, Name: t.Name, Params: t.Signature.Names(), Description: t.Description})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Kind != infos[j].Kind {
			return infos[i].Kind < infos[j].Kind
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}
