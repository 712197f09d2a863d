package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stencil/internal/tree"
)

// --- Test template builders ---

func greetingTemplate() *tree.Template {
	return &tree.Template{
		Name: "Greeting",
		Segments: []tree.Segment{
			{Text: "Hello, "},
			{Print: tree.Apply(tree.Var("user.name"), "upper")},
			{Text: "!\n"},
		},
	}
}

func nestedTemplate() *tree.Template {
	return &tree.Template{
		Segments: []tree.Segment{
			{Print: &tree.Let{
				Bindings: []tree.Entry{
					{Key: "total", Value: tree.Apply(tree.Var("items"), "length")},
				},
				Body: tree.Is(tree.Var("total"), "even"),
			}},
			{Print: tree.Invoke("range", tree.Positional(tree.Lit(1)), tree.Named("end", tree.Var("limit")))},
			{Print: &tree.Map{Entries: []tree.Entry{
				{Key: "a", Value: &tree.List{Items: []tree.Node{tree.Lit("x"), tree.Lit(nil)}}},
			}}},
		},
	}
}

func TestBuild_Nil(t *testing.T) {
	_, err := Build(nil, nil)
	assert.Error(t, err)
}

func TestBuild_SegmentChain(t *testing.T) {
	model, err := Build(greetingTemplate(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Greeting", model.Title)
	require.Len(t, model.Nodes, 5)
	assert.Equal(t, NodeKindStart, model.Nodes[0].Kind)
	assert.Equal(t, NodeKindText, model.Nodes[1].Kind)
	assert.Equal(t, "'Hello, '", model.Nodes[1].Label)
	assert.Equal(t, NodeKindPrint, model.Nodes[2].Kind)
	assert.Equal(t, `'!\n'`, model.Nodes[3].Label)
	assert.Equal(t, NodeKindEnd, model.Nodes[4].Kind)

	assert.Equal(t, []Edge{
		{From: "__start__", To: "seg0"},
		{From: "seg0", To: "seg1"},
		{From: "seg1", To: "seg2"},
		{From: "seg2", To: "__end__"},
	}, model.Edges)
	assert.Equal(t, [][]string{{"__start__"}, {"seg0"}, {"seg1"}, {"seg2"}, {"__end__"}}, model.Levels)
}

func TestBuild_ExpressionTree(t *testing.T) {
	model, err := Build(greetingTemplate(), nil)
	require.NoError(t, err)

	seg := model.Nodes[2]
	require.Len(t, seg.Children, 1)
	sg := seg.Children[0]
	assert.Equal(t, "expr", sg.Label)
	require.Len(t, sg.Nodes, 2)
	assert.Equal(t, "| upper", sg.Nodes[0].Label)
	assert.Equal(t, NodeKindFilter, sg.Nodes[0].Kind)
	assert.Equal(t, "user.name", sg.Nodes[1].Label)
	assert.Nil(t, sg.Nodes[1].Status, "no overlay without data")

	assert.Equal(t, []Edge{
		{From: "seg1", To: "seg1.n0"},
		{From: "seg1.n0", To: "seg1.n1", Label: "target"},
	}, sg.Edges)
}

func TestBuild_AllNodeKinds(t *testing.T) {
	model, err := Build(nestedTemplate(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Template", model.Title)

	kinds := map[NodeKind]string{}
	for _, node := range model.Nodes {
		for _, sg := range node.Children {
			for _, n := range sg.Nodes {
				kinds[n.Kind] = n.Label
			}
		}
	}
	assert.Equal(t, "let", kinds[NodeKindLet])
	assert.Equal(t, "is even", kinds[NodeKindTest])
	assert.Equal(t, "range()", kinds[NodeKindCall])
	assert.Equal(t, "map{1}", kinds[NodeKindMap])
	assert.Equal(t, "list[2]", kinds[NodeKindList])
	assert.Contains(t, kinds, NodeKindLiteral)

	call := model.Nodes[2].Children[0]
	assert.Contains(t, call.Edges, Edge{From: "seg1.n0", To: "seg1.n1", Label: "arg0"})
	assert.Contains(t, call.Edges, Edge{From: "seg1.n0", To: "seg1.n2", Label: "end"})
}

func TestBuild_BindingOverlay(t *testing.T) {
	model, err := Build(nestedTemplate(), map[string]any{"items": []any{1, 2}})
	require.NoError(t, err)

	status := map[string]string{}
	for _, node := range model.Nodes {
		for _, sg := range node.Children {
			for _, n := range sg.Nodes {
				if n.Status != nil {
					status[n.Label] = n.Status.Status
				}
			}
		}
	}
	assert.Equal(t, map[string]string{
		"items": StatusBound,
		"total": StatusBound, // let binding
		"limit": StatusUnbound,
	}, status)
}

func TestBuild_LetBindingNotVisibleToItself(t *testing.T) {
	tmpl := &tree.Template{Segments: []tree.Segment{{Print: &tree.Let{
		Bindings: []tree.Entry{{Key: "n", Value: tree.Var("n")}},
		Body:     tree.Var("n"),
	}}}}
	model, err := Build(tmpl, map[string]any{})
	require.NoError(t, err)

	sg := model.Nodes[1].Children[0]
	require.Len(t, sg.Nodes, 3)
	assert.Equal(t, StatusUnbound, sg.Nodes[1].Status.Status, "binding value")
	assert.Equal(t, StatusBound, sg.Nodes[2].Status.Status, "body")
}

func TestQuoteLabel_Truncates(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	label := quoteLabel(long)
	assert.Equal(t, "'abcdefghijklmnopqrstuvwxyz012...'", label)
	assert.Equal(t, "'short'", quoteLabel("short"))
}
