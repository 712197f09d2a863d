package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	// Title as comment.
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))

		for _, sg := range node.Children {
			b.WriteString(fmt.Sprintf("    subgraph %s[\"%s: %s\"]\n",
				mermaidSafeID(node.ID+"_"+sg.Label), node.ID, sg.Label))
			for _, subNode := range sg.Nodes {
				b.WriteString(fmt.Sprintf("        %s\n", mermaidNodeDef(subNode)))
			}
			b.WriteString("    end\n")
			for _, edge := range sg.Edges {
				b.WriteString(fmt.Sprintf("    %s\n", mermaidEdge(edge)))
			}
		}
	}

	for _, edge := range model.Edges {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidEdge(edge)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef bound fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef unbound fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")

	for _, node := range model.Nodes {
		for _, sg := range node.Children {
			for _, subNode := range sg.Nodes {
				if subNode.Status != nil {
					b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(subNode.ID), subNode.Status.Status))
				}
			}
		}
	}

	return b.String()
}

func mermaidEdge(edge Edge) string {
	label := ""
	if edge.Label != "" {
		label = fmt.Sprintf("|%s|", mermaidEscapeLabel(edge.Label))
	}
	return fmt.Sprintf("%s -->%s %s", mermaidSafeID(edge.From), label, mermaidSafeID(edge.To))
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case NodeKindTest:
		return fmt.Sprintf("%s{%q}", id, label)
	case NodeKindCall:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case NodeKindVariable:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindList, NodeKindMap, NodeKindLet:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case NodeKindLiteral:
		return fmt.Sprintf("%s>%q]", id, label)
	case NodeKindStart, NodeKindEnd:
		return fmt.Sprintf("%s((%q))", id, label)
	default: // text, print, filter
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots and dashes with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidEscapeLabel replaces characters Mermaid treats as syntax.
func mermaidEscapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "|", "#124;")
	return r.Replace(s)
}
