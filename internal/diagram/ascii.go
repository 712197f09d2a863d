package diagram

import (
	"fmt"
	"strings"
)

// statusTag returns a short ASCII indicator for a binding status.
func statusTag(status string) string {
	switch status {
	case StatusBound:
		return "[OK]"
	case StatusUnbound:
		return "[MISSING]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a text-based ASCII diagram: the
// segment chain as boxes, followed by each expression tree as an indented
// outline.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", model.Title))
	}

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := findNode(model.Nodes, nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	for _, node := range model.Nodes {
		for _, sg := range node.Children {
			b.WriteString(fmt.Sprintf("\n--- %s %s ---\n", node.ID, sg.Label))
			renderSubGraph(&b, sg)
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node.
func makeBox(node *Node) asciiBox {
	contentLines := []string{firstLine(node.Label)}
	if node.Kind != NodeKindStart && node.Kind != NodeKindEnd {
		contentLines = append(contentLines, "("+string(node.Kind)+")")
	}

	maxLen := 0
	for _, line := range contentLines {
		if n := len([]rune(line)); n > maxLen {
			maxLen = n
		}
	}
	width := maxLen + 4 // 2 border + 2 padding

	var lines []string
	top := "┌" + strings.Repeat("─", width-2) + "┐"
	bot := "└" + strings.Repeat("─", width-2) + "┘"
	lines = append(lines, top)
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-len([]rune(content)))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, bot)

	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ") // gap between boxes
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("   │\n")
	b.WriteString("   ▼\n")
}

// renderSubGraph prints an expression tree as an outline, one node per
// line, indented under its parent with the edge label as a prefix.
func renderSubGraph(b *strings.Builder, sg *SubGraph) {
	children := make(map[string][]Edge, len(sg.Nodes))
	targets := make(map[string]bool, len(sg.Edges))
	for _, e := range sg.Edges {
		children[e.From] = append(children[e.From], e)
		targets[e.To] = true
	}

	var visit func(id, label string, depth int)
	visit = func(id, label string, depth int) {
		node := findNode(sg.Nodes, id)
		if node == nil {
			return
		}
		prefix := strings.Repeat("  ", depth)
		if label != "" {
			prefix += label + ": "
		}
		tag := ""
		if node.Status != nil {
			tag = " " + statusTag(node.Status.Status)
		}
		b.WriteString(fmt.Sprintf("  %s%s%s\n", prefix, firstLine(node.Label), tag))
		for _, e := range children[id] {
			visit(e.To, e.Label, depth+1)
		}
	}

	for _, node := range sg.Nodes {
		if !isSubRoot(node.ID, sg, targets) {
			continue
		}
		visit(node.ID, "", 0)
	}
}

// isSubRoot reports whether id is only reached from outside the subgraph.
func isSubRoot(id string, sg *SubGraph, targets map[string]bool) bool {
	if !targets[id] {
		return true
	}
	for _, e := range sg.Edges {
		if e.To == id && findNode(sg.Nodes, e.From) != nil {
			return false
		}
	}
	return true
}

// findNode looks up a node by ID in a node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
