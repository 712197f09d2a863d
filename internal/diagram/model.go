package diagram

// NodeKind classifies a diagram node by the template construct it draws.
type NodeKind string

const (
	NodeKindText     NodeKind = "text"
	NodeKindPrint    NodeKind = "print"
	NodeKindLiteral  NodeKind = "literal"
	NodeKindVariable NodeKind = "variable"
	NodeKindFilter   NodeKind = "filter"
	NodeKindCall     NodeKind = "call"
	NodeKindTest     NodeKind = "test"
	NodeKindList     NodeKind = "list"
	NodeKindMap      NodeKind = "map"
	NodeKindLet      NodeKind = "let"
	NodeKindStart    NodeKind = "start"
	NodeKindEnd      NodeKind = "end"
)

// Binding states reported for variable nodes when data is supplied.
const (
	StatusBound   = "bound"
	StatusUnbound = "unbound"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents one segment of the template.
type Node struct {
	ID       string
	Label    string
	Kind     NodeKind
	Status   *StatusOverlay
	Children []*SubGraph // expression tree of a print segment
}

// SubGraph holds the expression tree under a print segment.
type SubGraph struct {
	Label string
	Nodes []*Node
	Edges []Edge
}

// StatusOverlay carries the binding state of a variable node.
type StatusOverlay struct {
	Status string
	Root   string // first path segment looked up
}

// Edge connects a node to one of its operands.
type Edge struct {
	From  string
	To    string
	Label string
}
