package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// ImageFormat selects the graphviz output format.
type ImageFormat string

const (
	ImagePNG ImageFormat = "png"
	ImageSVG ImageFormat = "svg"
)

// RenderImage renders a DiagramModel with graphviz and returns the encoded
// image bytes.
func RenderImage(ctx context.Context, model *DiagramModel, format ImageFormat) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case ImagePNG, "":
		gvFormat = graphviz.PNG
	case ImageSVG:
		gvFormat = graphviz.SVG
	default:
		return nil, fmt.Errorf("diagram: unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	// One dashed cluster per expression tree.
	for _, node := range model.Nodes {
		for _, sg := range node.Children {
			clusterName := "cluster_" + node.ID + "_" + sg.Label
			sub, subErr := graph.CreateSubGraphByName(clusterName)
			if subErr != nil {
				return nil, fmt.Errorf("diagram: create cluster %s: %w", clusterName, subErr)
			}
			sub.SetLabel(sg.Label)
			sub.SetStyle(cgraph.DashedGraphStyle)

			for _, subNode := range sg.Nodes {
				gvSub, nErr := sub.CreateNodeByName(subNode.ID)
				if nErr != nil {
					return nil, fmt.Errorf("diagram: create node %s: %w", subNode.ID, nErr)
				}
				gvSub.SetLabel(firstLine(subNode.Label))
				applyNodeStyle(gvSub, subNode)
				gvNodes[subNode.ID] = gvSub
			}
			if err := createEdges(graph, gvNodes, sg.Edges); err != nil {
				return nil, err
			}
		}
	}

	if err := createEdges(graph, gvNodes, model.Edges); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}

	return buf.Bytes(), nil
}

func createEdges(graph *cgraph.Graph, gvNodes map[string]*cgraph.Node, edges []Edge) error {
	for _, edge := range edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, err := graph.CreateEdgeByName("", fromGV, toGV)
		if err != nil {
			return fmt.Errorf("diagram: create edge %s -> %s: %w", edge.From, edge.To, err)
		}
		if edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}
	return nil
}

// applyNodeStyle sets graphviz attributes based on node kind and status.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	switch node.Kind {
	case NodeKindText, NodeKindPrint, NodeKindFilter:
		gvNode.SetShape(cgraph.BoxShape)
	case NodeKindTest:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindCall:
		gvNode.SetShape(cgraph.HexagonShape)
	case NodeKindVariable:
		gvNode.SetShape(cgraph.EllipseShape)
	case NodeKindLiteral:
		gvNode.SetShape(cgraph.ParallelogramShape)
	case NodeKindList, NodeKindMap, NodeKindLet:
		gvNode.SetShape(cgraph.Box3DShape)
	case NodeKindStart, NodeKindEnd:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	}

	if node.Status != nil {
		applyStatusColor(gvNode, node.Status.Status)
	}
}

// applyStatusColor sets fill color and style based on binding status.
func applyStatusColor(gvNode *cgraph.Node, status string) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch status {
	case StatusBound:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case StatusUnbound:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	}
}
