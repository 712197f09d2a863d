package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/stencil/internal/diagram"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/pkg/schema"
)

// handleRender loads, validates and renders a document.
func (s *StencilServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.loadDocument(req)
	if err != nil {
		return errorResult(err), nil
	}

	if extra := mcp.ParseStringMap(req, "data", nil); len(extra) > 0 {
		data, normErr := normalizeNumbers(extra)
		if normErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("data cannot be encoded: %v", normErr)), nil
		}
		merged := make(map[string]any, len(doc.Data)+len(data))
		maps.Copy(merged, doc.Data)
		maps.Copy(merged, data)
		doc.Data = merged
	}

	out, err := s.engine.RenderDocumentString(ctx, doc)
	if err != nil {
		s.logger.DebugContext(ctx, "render tool failed",
			slog.String("template", doc.Name),
			slog.String("error_code", schema.CodeOf(err)))
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// validateResponse is the stencil.validate result.
type validateResponse struct {
	Valid    bool                     `json:"valid"`
	Code     string                   `json:"code,omitempty"`
	Message  string                   `json:"message,omitempty"`
	Errors   []schema.ValidationIssue `json:"errors,omitempty"`
	Warnings []schema.ValidationIssue `json:"warnings,omitempty"`
}

// handleValidate reports every problem of a document, including warnings.
func (s *StencilServer) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.loadDocument(req)
	if err != nil {
		var engErr *schema.EngineError
		if !errors.As(err, &engErr) {
			return errorResult(err), nil
		}
		resp := validateResponse{Code: engErr.Code, Message: engErr.Message}
		if issues, ok := engErr.Details["errors"].([]schema.ValidationIssue); ok {
			resp.Errors = issues
		}
		return marshalResult(resp)
	}

	result := s.documents.Validate(doc)
	return marshalResult(validateResponse{
		Valid:    result.Valid(),
		Errors:   result.Errors,
		Warnings: result.Warnings,
	})
}

// handleExtensions lists the registry, optionally restricted to one kind.
func (s *StencilServer) handleExtensions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := registry.Kind(req.GetString("kind", ""))
	switch kind {
	case "", registry.KindFilter, registry.KindFunction, registry.KindTest:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}

	infos := s.engine.Registry().List(kind)
	return marshalResult(map[string]any{
		"count":      len(infos),
		"extensions": infos,
	})
}

// handleDiagram draws a document's template, marking variables the document
// data does not bind.
func (s *StencilServer) handleDiagram(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", "mermaid")
	if format != "mermaid" && format != "ascii" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}

	doc, err := s.loadDocument(req)
	if err != nil {
		return errorResult(err), nil
	}
	tmpl, err := tree.Decode(doc)
	if err != nil {
		return errorResult(err), nil
	}
	data := doc.Data
	if data == nil {
		data = map[string]any{}
	}
	model, err := diagram.Build(tmpl, data)
	if err != nil {
		return errorResult(err), nil
	}

	if format == "ascii" {
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	}
	return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
}

// loadDocument reads the document argument, or the source text when the
// document is absent.
func (s *StencilServer) loadDocument(req mcp.CallToolRequest) (*schema.RenderDocument, error) {
	if doc := mcp.ParseStringMap(req, "document", nil); doc != nil {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "document cannot be encoded").WithCause(err)
		}
		return s.documents.Load(bytes.NewReader(raw))
	}
	source := req.GetString("source", "")
	if source == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "one of document or source is required")
	}
	return s.documents.LoadString(source)
}

// normalizeNumbers re-decodes tool arguments so integral numbers stay
// integers instead of float64.
func normalizeNumbers(in map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// errorResult reports err as a tool error. Engine errors already lead with
// their [CODE].
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// marshalResult serializes v as JSON and returns it as a text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
