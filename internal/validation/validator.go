package validation

import (
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/pkg/schema"
)

// Validator checks render documents before they are decoded into a tree.
// Uses JSON Schema Draft 2020-12 for structure and data checks.
type Validator interface {
	ValidateDocument(doc *schema.RenderDocument) error
	ValidateData(data any, dataSchema []byte) error
}

// ExtensionLookup reports whether an extension is registered.
// *registry.Registry satisfies it.
type ExtensionLookup interface {
	Has(kind registry.Kind, name string) bool
}
