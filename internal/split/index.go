package split

import (
	"fmt"

	"github.com/ctnbench/relaysplit/internal/graph"
)

// Index caches, for every node, the edges that end and start at it, and for
// every artifact the scope that owns it. It is built once per run and then
// kept in step with each mutation; it is never re-derived mid-run.
type Index struct {
	Inputs     map[*graph.Node][]*graph.Edge
	Outputs    map[*graph.Node][]*graph.Edge
	NodeScope  map[*graph.Node]*graph.Scope
	EdgeScope  map[*graph.Edge]*graph.Scope
	ScopeOwner map[*graph.Scope]*graph.Scope
}

// BuildIndex walks root once and indexes every node, edge and nested scope.
// It fails with ErrScopeCycle if a scope contains itself, and with
// ErrSharedArtifact if anything is reachable along two paths.
func BuildIndex(root *graph.Scope) (*Index, error) {
	idx := &Index{
		Inputs:     make(map[*graph.Node][]*graph.Edge),
		Outputs:    make(map[*graph.Node][]*graph.Edge),
		NodeScope:  make(map[*graph.Node]*graph.Scope),
		EdgeScope:  make(map[*graph.Edge]*graph.Scope),
		ScopeOwner: make(map[*graph.Scope]*graph.Scope),
	}
	onPath := make(map[*graph.Scope]bool)
	visited := make(map[*graph.Scope]bool)

	var walk func(s *graph.Scope) error
	walk = func(s *graph.Scope) error {
		onPath[s] = true
		visited[s] = true
		defer delete(onPath, s)

		for _, n := range s.Nodes {
			if _, ok := idx.NodeScope[n]; ok {
				return fmt.Errorf("%w: node %s", ErrSharedArtifact, n.ID)
			}
			idx.NodeScope[n] = s
		}
		for _, e := range s.Edges {
			if _, ok := idx.EdgeScope[e]; ok {
				return fmt.Errorf("%w: edge %s", ErrSharedArtifact, e.ID)
			}
			idx.EdgeScope[e] = s
			idx.Inputs[e.Post] = append(idx.Inputs[e.Post], e)
			idx.Outputs[e.Pre] = append(idx.Outputs[e.Pre], e)
		}
		for _, c := range s.Scopes {
			if onPath[c] {
				return fmt.Errorf("%w: %q contains %q", ErrScopeCycle, s.Label, c.Label)
			}
			if visited[c] {
				return fmt.Errorf("%w: scope %q", ErrSharedArtifact, c.Label)
			}
			idx.ScopeOwner[c] = s
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	if root == nil {
		return idx, nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) addNode(s *graph.Scope, n *graph.Node) {
	s.AddNode(n)
	idx.NodeScope[n] = s
}

func (idx *Index) addEdge(s *graph.Scope, e *graph.Edge) {
	s.AddEdge(e)
	idx.EdgeScope[e] = s
	idx.Inputs[e.Post] = append(idx.Inputs[e.Post], e)
	idx.Outputs[e.Pre] = append(idx.Outputs[e.Pre], e)
}

func (idx *Index) removeEdge(e *graph.Edge) {
	if s, ok := idx.EdgeScope[e]; ok {
		s.RemoveEdge(e)
		delete(idx.EdgeScope, e)
	}
	idx.Inputs[e.Post] = without(idx.Inputs[e.Post], e)
	idx.Outputs[e.Pre] = without(idx.Outputs[e.Pre], e)
}

func (idx *Index) removeNode(n *graph.Node) error {
	if len(idx.Inputs[n]) > 0 || len(idx.Outputs[n]) > 0 {
		return fmt.Errorf("%w: %s has %d inputs and %d outputs",
			ErrNotDrained, n.ID, len(idx.Inputs[n]), len(idx.Outputs[n]))
	}
	if s, ok := idx.NodeScope[n]; ok {
		s.RemoveNode(n)
	}
	delete(idx.NodeScope, n)
	delete(idx.Inputs, n)
	delete(idx.Outputs, n)
	return nil
}

// without returns a new slice so earlier snapshots of edges stay intact.
func without(edges []*graph.Edge, e *graph.Edge) []*graph.Edge {
	out := make([]*graph.Edge, 0, len(edges))
	for _, x := range edges {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}
