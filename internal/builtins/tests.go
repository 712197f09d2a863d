package builtins

import (
	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerTests(b *registry.Builder) error {
	return installTests(b,
		testDef{"null", nil, nullTest, "the value is null"},
		testDef{"defined", nil, definedTest, "the variable resolved"},
		testDef{"empty", nil, emptyTest, "null, blank text or an empty aggregate"},
		testDef{"even", nil, evenTest, "an even integer"},
		testDef{"odd", nil, oddTest, "an odd integer"},
		testDef{"iterable", nil, iterableTest, "a sequence"},
		testDef{"map", nil, mapTest, "a mapping"},
	)
}

func nullTest(_ registry.Env, target value.Value, _ binding.Args) (bool, error) {
	return target.IsNull(), nil
}

func definedTest(env registry.Env, _ value.Value, _ binding.Args) (bool, error) {
	return !env.Undefined(), nil
}

func emptyTest(_ registry.Env, target value.Value, _ binding.Args) (bool, error) {
	return value.IsEmpty(target), nil
}

func evenTest(_ registry.Env, target value.Value, _ binding.Args) (bool, error) {
	i, err := integer("even", target)
	return i%2 == 0, err
}

func oddTest(_ registry.Env, target value.Value, _ binding.Args) (bool, error) {
	i, err := integer("odd", target)
	return i%2 != 0, err
}

func integer(test string, target value.Value) (int64, error) {
	i, ok := target.AsInt()
	if !ok {
		return 0, schema.NewErrorf(schema.ErrCodeType, "expects an integer, got %s", target.Kind()).
			WithExtension(test)
	}
	return i, nil
}

func iterableTest(_ registry.Env, target value.Value, _ binding.Args) (bool, error) {
	return target.Kind() == value.KindSequence, nil
}

func mapTest(_ registry.Env, target value.Value, _ binding.Args) (bool, error) {
	return target.Kind() == value.KindMapping, nil
}
