package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/rendis/stencil/pkg/schema"
)

// DocumentValidator runs the two-stage validation pipeline for render
// documents:
// 1. Structural (JSON Schema)
// 2. Semantic (locale, time zone, extension names, let ordering)
type DocumentValidator struct {
	jsonSchema *JSONSchemaValidator
	extensions ExtensionLookup
}

// NewDocumentValidator creates a DocumentValidator.
// lookup may be nil to skip extension existence checks.
func NewDocumentValidator(lookup ExtensionLookup) (*DocumentValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &DocumentValidator{jsonSchema: jsv, extensions: lookup}, nil
}

// JSONSchema returns the underlying schema validator.
func (dv *DocumentValidator) JSONSchema() *JSONSchemaValidator { return dv.jsonSchema }

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit the semantic stage.
func (dv *DocumentValidator) Validate(doc *schema.RenderDocument) *schema.ValidationResult {
	if doc == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "render document is nil")
		return r
	}

	result := structuralResult(dv.jsonSchema.ValidateDocument(doc))
	if !result.Valid() {
		return result
	}
	result.Merge(validateSemantic(doc, dv.extensions))
	return result
}

// ValidateDocument satisfies the Validator interface.
func (dv *DocumentValidator) ValidateDocument(doc *schema.RenderDocument) error {
	return dv.Validate(doc).ToError()
}

// ValidateData delegates to the underlying JSONSchemaValidator.
func (dv *DocumentValidator) ValidateData(data any, dataSchema []byte) error {
	return dv.jsonSchema.ValidateData(data, dataSchema)
}

// Load reads a render document in JSON or YAML, validates it and decodes it.
// Numbers in data are kept as json.Number so integers stay integers.
func (dv *DocumentValidator) Load(r io.Reader) (*schema.RenderDocument, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "read render document").WithCause(err)
	}

	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "render document is neither JSON nor YAML").WithCause(err)
	}
	if tree == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "render document is empty")
	}
	canonical, err := json.Marshal(tree)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "render document cannot be represented as JSON").WithCause(err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(canonical))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "render document is not valid JSON").WithCause(err)
	}
	if result := structuralResult(dv.jsonSchema.ValidateDocumentValue(inst)); !result.Valid() {
		return nil, result.ToError()
	}

	var doc schema.RenderDocument
	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "decode render document").WithCause(err)
	}
	if err := validateSemantic(&doc, dv.extensions).ToError(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadString is Load over an in-memory document.
func (dv *DocumentValidator) LoadString(s string) (*schema.RenderDocument, error) {
	return dv.Load(strings.NewReader(s))
}

// structuralResult converts a schema validation error into a result, one
// issue per violation.
func structuralResult(err error) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if err == nil {
		return result
	}

	var engErr *schema.EngineError
	if !errors.As(err, &engErr) {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}
	if violations, ok := engErr.Details["violations"].([]string); ok {
		for _, v := range violations {
			result.AddError("/", schema.ErrCodeValidation, v)
		}
		return result
	}
	result.AddError("/", schema.ErrCodeValidation, engErr.Message)
	return result
}
