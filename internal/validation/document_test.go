package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stencil/pkg/schema"
)

var _ Validator = (*DocumentValidator)(nil)

const greetingJSON = `{
  "name": "greeting",
  "template": [
    {"text": "Hello, "},
    {"print": {"filter": {"name": "upper", "target": {"var": "user.name"}}}},
    {"text": "! You have "},
    {"print": {"var": "user.unread"}}
  ],
  "data": {"user": {"name": "ada", "unread": 3, "score": 4.5}},
  "locale": "en-US",
  "timezone": "UTC"
}`

const greetingYAML = `
name: greeting
template:
  - text: "Hello, "
  - print:
      filter:
        name: upper
        target: {var: user.name}
  - text: "! You have "
  - print: {var: user.unread}
data:
  user:
    name: ada
    unread: 3
    score: 4.5
locale: en-US
timezone: UTC
`

func newTestDocumentValidator(t *testing.T) *DocumentValidator {
	t.Helper()
	dv, err := NewDocumentValidator(newMockLookup("filter:upper", "function:range", "test:even"))
	require.NoError(t, err)
	return dv
}

func TestLoad_JSONAndYAMLAgree(t *testing.T) {
	dv := newTestDocumentValidator(t)

	fromJSON, err := dv.LoadString(greetingJSON)
	require.NoError(t, err)
	fromYAML, err := dv.LoadString(greetingYAML)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, "greeting", fromJSON.Name)
	require.Len(t, fromJSON.Template, 4)
	assert.Equal(t, "Hello, ", *fromJSON.Template[0].Text)
	assert.Equal(t, "upper", fromJSON.Template[1].Print.Filter.Name)
	assert.Equal(t, "user.name", fromJSON.Template[1].Print.Filter.Target.Var)
}

func TestLoad_NumbersKeepTheirKind(t *testing.T) {
	dv := newTestDocumentValidator(t)

	doc, err := dv.LoadString(greetingYAML)
	require.NoError(t, err)

	user, ok := doc.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("3"), user["unread"])
	assert.Equal(t, json.Number("4.5"), user["score"])
}

func TestLoad_StructuralErrors(t *testing.T) {
	dv := newTestDocumentValidator(t)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not a document", "[1, 2"},
		{"missing template", `{"name": "x"}`},
		{"unknown top-level key", `{"template": [], "extra": true}`},
		{"segment with both", `{"template": [{"text": "a", "print": {"var": "b"}}]}`},
		{"strict not bool", `{"template": [], "strict": "yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := dv.LoadString(tt.input)
			assert.Nil(t, doc)
			assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
		})
	}
}

func TestLoad_SemanticErrors(t *testing.T) {
	dv := newTestDocumentValidator(t)

	_, err := dv.LoadString(`{"template": [{"print": {"call": {"name": "now"}}}]}`)
	var engErr *schema.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, schema.ErrCodeUnknownExtension, engErr.Code)
	assert.Contains(t, engErr.Message, "template[0].print.call.name")

	_, err = dv.LoadString(`{"template": [], "timezone": "Atlantis/Capital"}`)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestLoad_Reader(t *testing.T) {
	dv := newTestDocumentValidator(t)
	doc, err := dv.Load(strings.NewReader(`{"template": [{"text": "plain"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "plain", *doc.Template[0].Text)
}

func TestValidate_StructuralShortCircuits(t *testing.T) {
	dv := newTestDocumentValidator(t)

	// Both a structural problem (empty node) and an unknown filter: only the
	// structural stage reports.
	doc := &schema.RenderDocument{Template: []schema.SegmentDoc{
		{Print: &schema.NodeDoc{}},
		{Print: filterNode("nope", varNode("x"))},
	}}
	result := dv.Validate(doc)
	require.False(t, result.Valid())
	for _, e := range result.Errors {
		assert.Equal(t, schema.ErrCodeValidation, e.Code)
	}
}

func TestValidate_Semantic(t *testing.T) {
	dv := newTestDocumentValidator(t)

	doc := printDoc(&schema.NodeDoc{Test: &schema.TestDoc{Name: "odd", Target: &schema.NodeDoc{Var: "n"}}})
	result := dv.Validate(doc)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.ErrCodeUnknownExtension, result.Errors[0].Code)
	assert.Equal(t, "template[0].print.test.name", result.Errors[0].Path)

	assert.Equal(t, schema.ErrCodeUnknownExtension, schema.CodeOf(dv.ValidateDocument(doc)))
}

func TestValidate_Nil(t *testing.T) {
	dv := newTestDocumentValidator(t)
	assert.False(t, dv.Validate(nil).Valid())
	assert.Error(t, dv.ValidateDocument(nil))
}

func TestDocumentValidator_ValidateData(t *testing.T) {
	dv := newTestDocumentValidator(t)
	s := []byte(`{"type": "object", "required": ["id"]}`)
	assert.NoError(t, dv.ValidateData(map[string]any{"id": 1}, s))
	assert.Error(t, dv.ValidateData(map[string]any{}, s))
	assert.Same(t, dv.JSONSchema(), dv.jsonSchema)
}
