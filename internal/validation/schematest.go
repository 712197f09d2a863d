package validation

import (
	"encoding/json"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// SchemaTest returns a registry module adding the `schema` test, which checks
// the target against a JSON Schema given as a mapping or as JSON text.
func SchemaTest(v *JSONSchemaValidator) registry.Module {
	return func(b *registry.Builder) error {
		return b.RegisterTest("schema", binding.Params("document"),
			func(_ registry.Env, target value.Value, args binding.Args) (bool, error) {
				doc, err := schemaBytes(args.Get("document"))
				if err != nil {
					return false, err
				}
				return v.Conforms(value.ToNative(target), doc)
			},
			registry.WithDescription("the target conforms to a JSON Schema document"))
	}
}

func schemaBytes(doc value.Value) ([]byte, error) {
	switch doc.Kind() {
	case value.KindText:
		s, _ := doc.AsText()
		return []byte(s), nil
	case value.KindMapping, value.KindBool:
		b, err := json.Marshal(value.ToNative(doc))
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "schema document cannot be encoded").WithCause(err)
		}
		return b, nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeType,
			"schema document must be a mapping or JSON text, got %s", doc.Kind())
	}
}
