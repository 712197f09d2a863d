package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/internal/value"
)

const maxLabel = 32

// Build constructs a DiagramModel from a template. Segments form the main
// chain between virtual start and end nodes; every print segment gets its
// expression tree as a SubGraph child. When data is non-nil, variable nodes
// are marked bound or unbound against it and the enclosing let bindings.
func Build(tmpl *tree.Template, data map[string]any) (*DiagramModel, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("diagram: template is nil")
	}

	nodes := make([]*Node, 0, len(tmpl.Segments)+2)
	levels := make([][]string, 0, len(tmpl.Segments)+2)
	var edges []Edge

	nodes = append(nodes, &Node{ID: "__start__", Label: "Start", Kind: NodeKindStart})
	levels = append(levels, []string{"__start__"})
	prev := "__start__"

	for i, seg := range tmpl.Segments {
		id := fmt.Sprintf("seg%d", i)
		node := &Node{ID: id}
		if seg.Print == nil {
			node.Kind = NodeKindText
			node.Label = quoteLabel(seg.Text)
		} else {
			node.Kind = NodeKindPrint
			node.Label = "print"
			w := &walker{prefix: id, data: data}
			sg := &SubGraph{Label: "expr"}
			root := w.walk(sg, seg.Print, nil)
			sg.Edges = append([]Edge{{From: id, To: root}}, sg.Edges...)
			node.Children = append(node.Children, sg)
		}
		nodes = append(nodes, node)
		levels = append(levels, []string{id})
		edges = append(edges, Edge{From: prev, To: id})
		prev = id
	}

	nodes = append(nodes, &Node{ID: "__end__", Label: "End", Kind: NodeKindEnd})
	levels = append(levels, []string{"__end__"})
	edges = append(edges, Edge{From: prev, To: "__end__"})

	title := tmpl.Name
	if title == "" {
		title = "Template"
	}
	return &DiagramModel{Title: title, Nodes: nodes, Edges: edges, Levels: levels}, nil
}

// walker numbers expression nodes within one print segment.
type walker struct {
	prefix string
	next   int
	data   map[string]any
}

// walk adds n and its operands to sg and returns n's ID. scope lists the let
// names visible at n, innermost last.
func (w *walker) walk(sg *SubGraph, n tree.Node, scope []string) string {
	id := fmt.Sprintf("%s.n%d", w.prefix, w.next)
	w.next++
	node := &Node{ID: id}
	sg.Nodes = append(sg.Nodes, node)

	link := func(child tree.Node, label string, scope []string) {
		sg.Edges = append(sg.Edges, Edge{From: id, To: w.walk(sg, child, scope), Label: label})
	}
	args := func(list []tree.Arg) {
		for i, a := range list {
			label := a.Name
			if label == "" {
				label = fmt.Sprintf("arg%d", i)
			}
			link(a.Value, label, scope)
		}
	}

	switch n := n.(type) {
	case *tree.Literal:
		node.Kind = NodeKindLiteral
		node.Label = literalLabel(n.Value)
	case *tree.Variable:
		node.Kind = NodeKindVariable
		node.Label = n.Name()
		if w.data != nil && len(n.Path) > 0 {
			node.Status = w.bindingStatus(n.Path[0], scope)
		}
	case *tree.Filter:
		node.Kind = NodeKindFilter
		node.Label = "| " + n.Name
		link(n.Target, "target", scope)
		args(n.Args)
	case *tree.Call:
		node.Kind = NodeKindCall
		node.Label = n.Name + "()"
		args(n.Args)
	case *tree.Test:
		node.Kind = NodeKindTest
		node.Label = "is " + n.Name
		if n.Negated {
			node.Label = "is not " + n.Name
		}
		link(n.Target, "target", scope)
		args(n.Args)
	case *tree.List:
		node.Kind = NodeKindList
		node.Label = fmt.Sprintf("list[%d]", len(n.Items))
		for i, item := range n.Items {
			link(item, fmt.Sprintf("%d", i), scope)
		}
	case *tree.Map:
		node.Kind = NodeKindMap
		node.Label = fmt.Sprintf("map{%d}", len(n.Entries))
		for _, e := range n.Entries {
			link(e.Value, e.Key, scope)
		}
	case *tree.Let:
		node.Kind = NodeKindLet
		node.Label = "let"
		inner := scope
		for _, b := range n.Bindings {
			link(b.Value, b.Key, inner)
			inner = append(inner[:len(inner):len(inner)], b.Key)
		}
		if n.Body != nil {
			link(n.Body, "body", inner)
		}
	default:
		node.Kind = NodeKindLiteral
		node.Label = fmt.Sprintf("%T", n)
	}
	return id
}

func (w *walker) bindingStatus(root string, scope []string) *StatusOverlay {
	for _, name := range scope {
		if name == root {
			return &StatusOverlay{Status: StatusBound, Root: root}
		}
	}
	if _, ok := w.data[root]; ok {
		return &StatusOverlay{Status: StatusBound, Root: root}
	}
	return &StatusOverlay{Status: StatusUnbound, Root: root}
}

func literalLabel(v value.Value) string {
	if v.Kind() == value.KindText {
		return quoteLabel(v.String())
	}
	if v.IsNull() {
		return "null"
	}
	return truncate(v.String())
}

// quoteLabel shortens s, shows newlines as \n, and wraps it in single quotes.
func quoteLabel(s string) string {
	return "'" + truncate(strings.ReplaceAll(s, "\n", `\n`)) + "'"
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLabel {
		return s
	}
	r := []rune(s)
	return string(r[:maxLabel-3]) + "..."
}
