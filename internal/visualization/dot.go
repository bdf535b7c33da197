// Package visualization renders graphs as Graphviz DOT or a JSON summary.
package visualization

import (
	"fmt"
	"strings"

	"github.com/ctnbench/relaysplit/internal/graph"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a render format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatDOT:
		return FormatDOT, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported render format %q (use 'dot' or 'json')", s)
	}
}

// nodeColors maps node kinds to DOT colors.
var nodeColors = map[graph.Kind]string{
	graph.KindPassthrough: "lightgray",
	graph.KindEnsemble:    "steelblue",
	graph.KindSource:      "mediumseagreen",
	graph.KindProbe:       "goldenrod",
}

// nodeShapes maps node kinds to DOT shapes.
var nodeShapes = map[graph.Kind]string{
	graph.KindPassthrough: "box",
	graph.KindEnsemble:    "ellipse",
	graph.KindSource:      "invhouse",
	graph.KindProbe:       "note",
}

// oversizedColor marks passthrough nodes wider than the split bound.
const oversizedColor = "tomato"

// RenderDOT produces a Graphviz DOT representation of g with one cluster per
// scope. When maxWidth is positive, passthrough nodes wider than it are highlighted.
func RenderDOT(g *graph.Graph, maxWidth int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("digraph %q {\n", g.Name))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	if g.Root != nil {
		for _, n := range g.Root.Nodes {
			writeNode(&b, n, maxWidth, "  ")
		}
		cluster := 0
		for _, c := range g.Root.Scopes {
			writeCluster(&b, c, maxWidth, "  ", &cluster)
		}
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		style := "solid"
		if e.Synapse != nil {
			style = "bold"
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [label=%q, style=%s, tooltip=%q];\n",
			e.Pre.ID, e.Post.ID, edgeLabel(e), style, e.ID))
	}

	b.WriteString("}\n")
	return b.String()
}

func writeCluster(b *strings.Builder, s *graph.Scope, maxWidth int, indent string, cluster *int) {
	*cluster++
	b.WriteString(fmt.Sprintf("%ssubgraph \"cluster_%d\" {\n", indent, *cluster))
	inner := indent + "  "
	b.WriteString(fmt.Sprintf("%slabel=%q;\n", inner, s.Label))
	b.WriteString(fmt.Sprintf("%sstyle=rounded;\n", inner))
	for _, n := range s.Nodes {
		writeNode(b, n, maxWidth, inner)
	}
	for _, c := range s.Scopes {
		writeCluster(b, c, maxWidth, inner, cluster)
	}
	b.WriteString(indent + "}\n")
}

func writeNode(b *strings.Builder, n *graph.Node, maxWidth int, indent string) {
	color := nodeColors[n.Kind]
	if color == "" {
		color = "white"
	}
	if maxWidth > 0 && n.IsPassthrough() && n.SizeIn > maxWidth {
		color = oversizedColor
	}
	shape := nodeShapes[n.Kind]
	if shape == "" {
		shape = "box"
	}

	name := n.Label
	if name == "" {
		name = n.ID
	}
	label := fmt.Sprintf("%s\n%s", truncate(name, 40), sizeLabel(n))
	b.WriteString(fmt.Sprintf("%s%q [label=%q, shape=%s, fillcolor=%q];\n",
		indent, n.ID, label, shape, color))
}

func sizeLabel(n *graph.Node) string {
	if n.IsPassthrough() || n.SizeIn == n.SizeOut {
		return fmt.Sprintf("[%d]", n.SizeIn)
	}
	return fmt.Sprintf("[%d -> %d]", n.SizeIn, n.SizeOut)
}

// edgeLabel summarizes the transform plus any non-trivial slices.
func edgeLabel(e *graph.Edge) string {
	label := e.Transform.String()
	if e.PreSlice != nil {
		label = e.PreSlice.String() + " " + label
	}
	if e.PostSlice != nil {
		label = label + " " + e.PostSlice.String()
	}
	return label
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
