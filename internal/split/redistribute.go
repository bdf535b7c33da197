package split

import (
	"fmt"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// part is one replacement node and the slice of the original it covers.
type part struct {
	node  *graph.Node
	start int
	stop  int
}

type newEdge struct {
	scope *graph.Scope
	edge  *graph.Edge
}

// plan is the complete set of mutations that splits one node. It is built
// and validated against the current graph before anything is applied, so a
// failing edge leaves the graph as it was.
type plan struct {
	node    *graph.Node
	scope   *graph.Scope
	parts   []part
	added   []newEdge
	removed []*graph.Edge
	pruned  int
}

// partition cuts [0, size) into consecutive ranges of at most width values.
func partition(size, width int) [][2]int {
	var out [][2]int
	for start := 0; start < size; start += width {
		out = append(out, [2]int{start, min(start+width, size)})
	}
	return out
}

func (s *Splitter) planSplit(idx *Index, n *graph.Node) (*plan, error) {
	if err := graph.CheckNode(n); err != nil {
		return nil, err
	}
	scope, ok := idx.NodeScope[n]
	if !ok {
		return nil, fmt.Errorf("split %s: node is not owned by any scope", n.ID)
	}

	p := &plan{node: n, scope: scope}
	for i, r := range partition(n.SizeIn, s.maxWidth) {
		label := n.Label
		if label != "" {
			label = fmt.Sprintf("%s (%d)", label, i)
		}
		width := r[1] - r[0]
		id, err := s.nodeID(n, i)
		if err != nil {
			return nil, err
		}
		p.parts = append(p.parts, part{
			node: &graph.Node{
				ID:      id,
				Label:   label,
				Kind:    graph.KindPassthrough,
				SizeIn:  width,
				SizeOut: width,
			},
			start: r[0],
			stop:  r[1],
		})
	}

	for _, c := range idx.Inputs[n] {
		if c.Pre == n {
			if err := s.redistributeSelfLoop(idx, p, c); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.redistributeIncoming(idx, p, c); err != nil {
			return nil, err
		}
	}
	for _, c := range idx.Outputs[n] {
		if c.Post == n {
			continue // handled with the inputs
		}
		if err := s.redistributeOutgoing(idx, p, c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// redistributeIncoming splits the rows of an edge ending at the split node.
func (s *Splitter) redistributeIncoming(idx *Index, p *plan, c *graph.Edge) error {
	scope, m, err := edgeContext(idx, p.node, c, Incoming)
	if err != nil {
		return err
	}
	r0, _ := c.PostSlice.Range(p.node.SizeIn)
	full := linalg.Embed(p.node.SizeIn, c.SizeIn(), r0, 0, m)

	for _, pt := range p.parts {
		sub := linalg.RowBlock(full, pt.start, pt.stop)
		if linalg.IsZero(sub) {
			p.pruned++
			continue
		}
		e, err := s.derive(c, c.Pre, copySlice(c.PreSlice), pt.node, nil, sub)
		if err != nil {
			return err
		}
		p.added = append(p.added, newEdge{scope: scope, edge: e})
	}
	p.removed = append(p.removed, c)
	return nil
}

// redistributeOutgoing splits the columns of an edge starting at the split node.
func (s *Splitter) redistributeOutgoing(idx *Index, p *plan, c *graph.Edge) error {
	scope, m, err := edgeContext(idx, p.node, c, Outgoing)
	if err != nil {
		return err
	}
	c0, _ := c.PreSlice.Range(p.node.SizeOut)
	full := linalg.Embed(c.SizeOut(), p.node.SizeOut, 0, c0, m)

	for _, pt := range p.parts {
		sub := linalg.ColBlock(full, pt.start, pt.stop)
		if linalg.IsZero(sub) {
			p.pruned++
			continue
		}
		e, err := s.derive(c, pt.node, nil, c.Post, copySlice(c.PostSlice), sub)
		if err != nil {
			return err
		}
		p.added = append(p.added, newEdge{scope: scope, edge: e})
	}
	p.removed = append(p.removed, c)
	return nil
}

// redistributeSelfLoop splits an edge from the split node back to itself into
// one edge per non-zero (row part, column part) block.
func (s *Splitter) redistributeSelfLoop(idx *Index, p *plan, c *graph.Edge) error {
	scope, _, err := edgeContext(idx, p.node, c, SelfLoop)
	if err != nil {
		return err
	}
	full, err := graph.FullMatrix(c)
	if err != nil {
		return &EdgeError{NodeID: p.node.ID, EdgeID: c.ID, Direction: SelfLoop, Err: err}
	}

	for _, post := range p.parts {
		for _, pre := range p.parts {
			sub := linalg.Block(full, post.start, post.stop, pre.start, pre.stop)
			if linalg.IsZero(sub) {
				p.pruned++
				continue
			}
			e, err := s.derive(c, pre.node, nil, post.node, nil, sub)
			if err != nil {
				return err
			}
			p.added = append(p.added, newEdge{scope: scope, edge: e})
		}
	}
	p.removed = append(p.removed, c)
	return nil
}

// edgeContext validates c and returns its owning scope and materialized transform.
func edgeContext(idx *Index, n *graph.Node, c *graph.Edge, dir Direction) (*graph.Scope, *mat.Dense, error) {
	scope, ok := idx.EdgeScope[c]
	if !ok {
		return nil, nil, &EdgeError{NodeID: n.ID, EdgeID: c.ID, Direction: dir, Err: fmt.Errorf("edge is not owned by any scope")}
	}
	m, err := graph.TransformMatrix(c)
	if err != nil {
		return nil, nil, &EdgeError{NodeID: n.ID, EdgeID: c.ID, Direction: dir, Err: err}
	}
	return scope, m, nil
}

// derive builds a replacement for c. The synapse is carried over unchanged.
func (s *Splitter) derive(c *graph.Edge, pre *graph.Node, preSlice *graph.Slice, post *graph.Node, postSlice *graph.Slice, t *mat.Dense) (*graph.Edge, error) {
	id, err := s.edgeID(c)
	if err != nil {
		return nil, err
	}
	var syn *graph.Synapse
	if c.Synapse != nil {
		cp := *c.Synapse
		syn = &cp
	}
	return &graph.Edge{
		ID:        id,
		Pre:       pre,
		Post:      post,
		PreSlice:  preSlice,
		PostSlice: postSlice,
		Transform: linalg.Matrix(t),
		Synapse:   syn,
	}, nil
}

// apply performs p against the graph and index. Nodes and edges are added
// first, the old edges are drained, and the node goes last.
func (p *plan) apply(idx *Index) error {
	for _, pt := range p.parts {
		idx.addNode(p.scope, pt.node)
	}
	for _, a := range p.added {
		idx.addEdge(a.scope, a.edge)
	}
	for _, c := range p.removed {
		idx.removeEdge(c)
	}
	return idx.removeNode(p.node)
}

func copySlice(s *graph.Slice) *graph.Slice {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
