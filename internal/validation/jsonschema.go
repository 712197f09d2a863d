package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/stencil/pkg/schema"
)

const documentSchemaURL = "https://stencil.dev/schemas/render-document.json"

// documentSchemaJSON is the JSON Schema for RenderDocument validation.
// Embedded as a constant to avoid filesystem dependencies.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://stencil.dev/schemas/render-document.json",
  "type": "object",
  "required": ["template"],
  "properties": {
    "name": { "type": "string" },
    "template": {
      "type": "array",
      "items": { "$ref": "#/$defs/segment" }
    },
    "data": { "type": "object" },
    "locale": { "type": "string", "minLength": 1 },
    "timezone": { "type": "string", "minLength": 1 },
    "strict": { "type": "boolean" }
  },
  "additionalProperties": false,
  "$defs": {
    "segment": {
      "type": "object",
      "oneOf": [
        { "required": ["text"] },
        { "required": ["print"] }
      ],
      "properties": {
        "text": { "type": "string" },
        "print": { "$ref": "#/$defs/node" }
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "minProperties": 1,
      "properties": {
        "literal": {},
        "var": {
          "type": "string",
          "pattern": "^[^.]+(\\.[^.]+)*$"
        },
        "filter": { "$ref": "#/$defs/filter" },
        "call": { "$ref": "#/$defs/call" },
        "test": { "$ref": "#/$defs/test" },
        "list": {
          "type": "array",
          "items": { "$ref": "#/$defs/node" }
        },
        "map": {
          "type": "array",
          "items": { "$ref": "#/$defs/entry" }
        },
        "let": { "$ref": "#/$defs/let" },
        "line": { "type": "integer", "minimum": 0 },
        "col": { "type": "integer", "minimum": 0 }
      },
      "additionalProperties": false
    },
    "name": {
      "type": "string",
      "minLength": 1
    },
    "args": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["value"],
        "properties": {
          "name": { "type": "string" },
          "value": { "$ref": "#/$defs/node" }
        },
        "additionalProperties": false
      }
    },
    "filter": {
      "type": "object",
      "required": ["name", "target"],
      "properties": {
        "name": { "$ref": "#/$defs/name" },
        "target": { "$ref": "#/$defs/node" },
        "args": { "$ref": "#/$defs/args" }
      },
      "additionalProperties": false
    },
    "call": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "$ref": "#/$defs/name" },
        "args": { "$ref": "#/$defs/args" }
      },
      "additionalProperties": false
    },
    "test": {
      "type": "object",
      "required": ["name", "target"],
      "properties": {
        "name": { "$ref": "#/$defs/name" },
        "target": { "$ref": "#/$defs/node" },
        "args": { "$ref": "#/$defs/args" },
        "negated": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "entry": {
      "type": "object",
      "required": ["key", "value"],
      "properties": {
        "key": { "type": "string" },
        "value": { "$ref": "#/$defs/node" }
      },
      "additionalProperties": false
    },
    "let": {
      "type": "object",
      "required": ["bindings", "body"],
      "properties": {
        "bindings": {
          "type": "array",
          "items": { "$ref": "#/$defs/entry" }
        },
        "body": { "$ref": "#/$defs/node" }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator validates render documents and arbitrary data against
// JSON Schema Draft 2020-12. It is safe for concurrent use.
type JSONSchemaValidator struct {
	documentSchema *jsonschema.Schema

	// mu guards the cache of dynamically compiled data schemas.
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator creates a JSONSchemaValidator with the render
// document schema pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := newCompiler()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document schema: %w", err)
	}
	if err := c.AddResource(documentSchemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("add document schema resource: %w", err)
	}
	docSchema, err := c.Compile(documentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	return &JSONSchemaValidator{
		documentSchema: docSchema,
		cache:          make(map[string]*jsonschema.Schema),
	}, nil
}

// ValidateDocument validates a RenderDocument against the document schema.
func (v *JSONSchemaValidator) ValidateDocument(doc *schema.RenderDocument) error {
	if doc == nil {
		return schema.NewError(schema.ErrCodeValidation, "render document is nil")
	}
	inst, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize render document").WithCause(err)
	}
	return v.ValidateDocumentValue(inst)
}

// ValidateDocumentValue validates an already decoded JSON value (as produced
// by jsonschema.UnmarshalJSON) against the document schema.
func (v *JSONSchemaValidator) ValidateDocumentValue(inst any) error {
	if err := v.documentSchema.Validate(inst); err != nil {
		return toEngineError(err)
	}
	return nil
}

// ValidateData validates data against a JSON Schema provided as raw bytes.
// The schema is compiled and cached for subsequent calls with the same schema.
func (v *JSONSchemaValidator) ValidateData(data any, dataSchema []byte) error {
	if len(dataSchema) == 0 {
		return nil // no schema means no validation needed
	}
	compiled, err := v.getOrCompile(dataSchema)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid data schema").WithCause(err)
	}

	// Convert to a JSON-compatible value (json.Number for numbers).
	inst, err := toJSONValue(data)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize data").WithCause(err)
	}
	if err := compiled.Validate(inst); err != nil {
		return toEngineError(err)
	}
	return nil
}

// Conforms reports whether data satisfies the schema. Violations are a false
// result; only an unusable schema or unserializable data is an error.
func (v *JSONSchemaValidator) Conforms(data any, dataSchema []byte) (bool, error) {
	err := v.ValidateData(data, dataSchema)
	if err == nil {
		return true, nil
	}
	var engErr *schema.EngineError
	if errors.As(err, &engErr) && engErr.Details != nil {
		if _, ok := engErr.Details["violations"]; ok {
			return false, nil
		}
	}
	return false, err
}

// getOrCompile returns a cached compiled schema or compiles and caches a new one.
func (v *JSONSchemaValidator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check after acquiring write lock.
	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Each dynamic schema gets a unique URL and a fresh compiler.
	url := fmt.Sprintf("stencil://data-schema/%d", len(v.cache))
	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toEngineError converts a jsonschema.ValidationError into an EngineError
// listing every violation with its instance location.
func toEngineError(err error) *schema.EngineError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
