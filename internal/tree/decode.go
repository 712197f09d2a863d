package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Decode converts a render document into a template. Every structural
// problem is collected and reported together, keyed by document path.
func Decode(doc *schema.RenderDocument) (*Template, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "render document is nil")
	}

	result := &schema.ValidationResult{}
	tmpl := &Template{Name: doc.Name, Segments: make([]Segment, 0, len(doc.Template))}

	for i, seg := range doc.Template {
		path := fmt.Sprintf("template[%d]", i)
		switch {
		case seg.Text != nil && seg.Print != nil:
			result.AddError(path, schema.ErrCodeValidation, "segment must set exactly one of text or print")
		case seg.Text != nil:
			tmpl.Segments = append(tmpl.Segments, Segment{Text: *seg.Text})
		case seg.Print != nil:
			n := decodeNode(seg.Print, path+".print", result)
			tmpl.Segments = append(tmpl.Segments, Segment{Print: n})
		default:
			result.AddError(path, schema.ErrCodeValidation, "segment must set exactly one of text or print")
		}
	}

	if err := result.ToError(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// DecodeNode converts a single node document.
func DecodeNode(doc *schema.NodeDoc) (Node, error) {
	result := &schema.ValidationResult{}
	n := decodeNode(doc, "node", result)
	if err := result.ToError(); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeNode(doc *schema.NodeDoc, path string, result *schema.ValidationResult) Node {
	if doc == nil {
		result.AddError(path, schema.ErrCodeValidation, "node is missing")
		return nil
	}
	pos := Pos{Line: doc.Line, Col: doc.Col}

	set := nodeFields(doc)
	if len(set) != 1 {
		msg := "node must set exactly one of literal, var, filter, call, test, list, map, let"
		if len(set) > 1 {
			msg = fmt.Sprintf("node sets more than one kind: %s", strings.Join(set, ", "))
		}
		result.AddError(path, schema.ErrCodeValidation, msg)
		return nil
	}

	switch {
	case len(doc.Literal) > 0:
		v, err := decodeLiteral(doc.Literal)
		if err != nil {
			result.AddError(path+".literal", schema.ErrCodeValidation, err.Error())
			return nil
		}
		return &Literal{Pos: pos, Value: v}

	case doc.Var != "":
		parts := strings.Split(doc.Var, ".")
		for _, p := range parts {
			if p == "" {
				result.AddError(path+".var", schema.ErrCodeValidation, fmt.Sprintf("malformed variable path %q", doc.Var))
				return nil
			}
		}
		return &Variable{Pos: pos, Path: parts}

	case doc.Filter != nil:
		f := doc.Filter
		requireName(f.Name, path+".filter.name", result)
		return &Filter{
			Pos:    pos,
			Name:   f.Name,
			Target: decodeNode(f.Target, path+".filter.target", result),
			Args:   decodeArgs(f.Args, path+".filter", result),
		}

	case doc.Call != nil:
		c := doc.Call
		requireName(c.Name, path+".call.name", result)
		return &Call{Pos: pos, Name: c.Name, Args: decodeArgs(c.Args, path+".call", result)}

	case doc.Test != nil:
		t := doc.Test
		requireName(t.Name, path+".test.name", result)
		return &Test{
			Pos:     pos,
			Name:    t.Name,
			Target:  decodeNode(t.Target, path+".test.target", result),
			Args:    decodeArgs(t.Args, path+".test", result),
			Negated: t.Negated,
		}

	case doc.List != nil:
		items := make([]Node, len(doc.List))
		for i := range doc.List {
			items[i] = decodeNode(&doc.List[i], fmt.Sprintf("%s.list[%d]", path, i), result)
		}
		return &List{Pos: pos, Items: items}

	case doc.Map != nil:
		return &Map{Pos: pos, Entries: decodeEntries(doc.Map, path+".map", result)}

	default:
		l := doc.Let
		return &Let{
			Pos:      pos,
			Bindings: decodeEntries(l.Bindings, path+".let.bindings", result),
			Body:     decodeNode(l.Body, path+".let.body", result),
		}
	}
}

func nodeFields(doc *schema.NodeDoc) []string {
	var set []string
	if len(doc.Literal) > 0 {
		set = append(set, "literal")
	}
	if doc.Var != "" {
		set = append(set, "var")
	}
	if doc.Filter != nil {
		set = append(set, "filter")
	}
	if doc.Call != nil {
		set = append(set, "call")
	}
	if doc.Test != nil {
		set = append(set, "test")
	}
	if doc.List != nil {
		set = append(set, "list")
	}
	if doc.Map != nil {
		set = append(set, "map")
	}
	if doc.Let != nil {
		set = append(set, "let")
	}
	return set
}

func decodeArgs(docs []schema.ArgDoc, path string, result *schema.ValidationResult) []Arg {
	args := make([]Arg, len(docs))
	for i := range docs {
		args[i] = Arg{
			Name:  docs[i].Name,
			Value: decodeNode(&docs[i].Value, fmt.Sprintf("%s.args[%d]", path, i), result),
		}
	}
	return args
}

func decodeEntries(docs []schema.EntryDoc, path string, result *schema.ValidationResult) []Entry {
	entries := make([]Entry, len(docs))
	seen := make(map[string]bool, len(docs))
	for i := range docs {
		p := fmt.Sprintf("%s[%d]", path, i)
		key := docs[i].Key
		requireName(key, p+".key", result)
		if seen[key] {
			result.AddError(p+".key", schema.ErrCodeValidation, fmt.Sprintf("duplicate key %q", key))
		}
		seen[key] = true
		entries[i] = Entry{Key: key, Value: decodeNode(&docs[i].Value, p+".value", result)}
	}
	return entries
}

func requireName(name, path string, result *schema.ValidationResult) {
	if name == "" {
		result.AddError(path, schema.ErrCodeValidation, "name is empty")
	}
}

// decodeLiteral keeps integral JSON numbers as Int.
func decodeLiteral(raw json.RawMessage) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var host any
	if err := dec.Decode(&host); err != nil {
		return value.Null(), fmt.Errorf("invalid literal: %w", err)
	}
	return value.Adapt(host), nil
}
