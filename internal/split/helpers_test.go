package split

import (
	"testing"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

func relay(id, label string, size int) *graph.Node {
	return &graph.Node{ID: id, Label: label, Kind: graph.KindPassthrough, SizeIn: size, SizeOut: size}
}

func source(id string, size int) *graph.Node {
	return &graph.Node{ID: id, Kind: graph.KindSource, SizeOut: size}
}

func ensemble(id string, size int) *graph.Node {
	return &graph.Node{ID: id, Kind: graph.KindEnsemble, SizeIn: size, SizeOut: size}
}

// denseTransform builds a rows x cols matrix transform with entries fn(i, j).
func denseTransform(t *testing.T, rows, cols int, fn func(i, j int) float64) linalg.Transform {
	t.Helper()
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, fn(i, j))
		}
	}
	return linalg.Matrix(m)
}

func counting(i, j int) float64 { return float64(i*100 + j + 1) }

func newSplitter(t *testing.T, maxWidth int) *Splitter {
	t.Helper()
	s, err := New(Options{MaxWidth: maxWidth, IDs: &Sequential{Prefix: "t-"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func edgesFrom(g *graph.Graph, pre *graph.Node) []*graph.Edge {
	var out []*graph.Edge
	for _, e := range g.Edges() {
		if e.Pre == pre {
			out = append(out, e)
		}
	}
	return out
}

func edgesInto(g *graph.Graph, post *graph.Node) []*graph.Edge {
	var out []*graph.Edge
	for _, e := range g.Edges() {
		if e.Post == post {
			out = append(out, e)
		}
	}
	return out
}

func transformSum(t *testing.T, e *graph.Edge) float64 {
	t.Helper()
	m, err := graph.TransformMatrix(e)
	if err != nil {
		t.Fatalf("TransformMatrix(%s): %v", e.ID, err)
	}
	return mat.Sum(m)
}

func assertWidths(t *testing.T, g *graph.Graph, maxWidth int) {
	t.Helper()
	for _, n := range g.Nodes() {
		if n.IsPassthrough() && n.SizeIn > maxWidth {
			t.Errorf("node %s has size_in %d > %d", n.ID, n.SizeIn, maxWidth)
		}
	}
}

func assertEquivalent(t *testing.T, before, after *graph.Graph) {
	t.Helper()
	diff, err := Equivalent(before, after, 1e-9)
	if err != nil {
		t.Fatalf("Equivalent: %v", err)
	}
	if len(diff) > 0 {
		t.Errorf("linear map changed for %v", diff)
	}
}
