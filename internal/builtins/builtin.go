// Package builtins implements the core filter library together with the
// built-in tests and functions.
package builtins

import (
	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/expressions"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/validation"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Register installs every built-in filter, test and function. It satisfies
// registry.Module.
func Register(b *registry.Builder) error {
	return b.Install(
		registerText,
		registerNumbers,
		registerDates,
		registerCollections,
		registerEncoding,
		registerSchedule,
		registerTests,
		registerFunctions,
	)
}

// NewRegistry builds the standard registry: the core library, the query
// language extensions and the schema test backed by v.
func NewRegistry(v *validation.JSONSchemaValidator) (*registry.Registry, error) {
	x, err := expressions.NewExtensions()
	if err != nil {
		return nil, err
	}
	b := registry.NewBuilder()
	if err := b.Install(Register, x.Register, validation.SchemaTest(v)); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

type filterDef struct {
	name string
	sig  binding.Signature
	fn   registry.FilterFunc
	desc string
}

type testDef struct {
	name string
	sig  binding.Signature
	fn   registry.TestFunc
	desc string
}

func installFilters(b *registry.Builder, defs ...filterDef) error {
	for _, d := range defs {
		if err := b.RegisterFilter(d.name, d.sig, d.fn, registry.WithDescription(d.desc)); err != nil {
			return err
		}
	}
	return nil
}

func installTests(b *registry.Builder, defs ...testDef) error {
	for _, d := range defs {
		if err := b.RegisterTest(d.name, d.sig, d.fn, registry.WithDescription(d.desc)); err != nil {
			return err
		}
	}
	return nil
}

// scalarText coerces a scalar or opaque value to text. Aggregates are
// rejected.
func scalarText(filter string, v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindSequence, value.KindMapping:
		return "", schema.NewErrorf(schema.ErrCodeType, "expects text, got %s", v.Kind()).
			WithExtension(filter)
	}
	return v.String(), nil
}

func typeError(filter string, v value.Value) error {
	return schema.NewErrorf(schema.ErrCodeType, "cannot be applied to %s", v.Kind()).
		WithExtension(filter).
		WithDetails(map[string]any{"target": v.String()})
}
