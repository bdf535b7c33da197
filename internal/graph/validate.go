package graph

import (
	"errors"
	"fmt"

	"github.com/ctnbench/relaysplit/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidNode is returned for nodes with impossible sizes or kinds.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidSlice is returned when an edge slice falls outside its endpoint.
	ErrInvalidSlice = errors.New("invalid slice")

	// ErrDanglingEdge is returned for an edge missing an endpoint.
	ErrDanglingEdge = errors.New("dangling edge")
)

// CheckNode validates the sizes of n.
func CheckNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidNode)
	}
	if !ValidKind(n.Kind) {
		return fmt.Errorf("%w: node %s has unknown kind %q", ErrInvalidNode, n.ID, n.Kind)
	}
	if n.SizeIn < 0 || n.SizeOut < 0 {
		return fmt.Errorf("%w: node %s has negative size", ErrInvalidNode, n.ID)
	}
	if n.IsPassthrough() && n.SizeIn != n.SizeOut {
		return fmt.Errorf("%w: passthrough node %s has size_in %d != size_out %d",
			ErrInvalidNode, n.ID, n.SizeIn, n.SizeOut)
	}
	return nil
}

// TransformMatrix checks e's slices against its endpoints and returns its
// transform materialized as a SizeOut x SizeIn matrix.
func TransformMatrix(e *Edge) (*mat.Dense, error) {
	if e.Pre == nil || e.Post == nil {
		return nil, fmt.Errorf("%w: edge %s", ErrDanglingEdge, e.ID)
	}
	if !e.PreSlice.Within(e.Pre.SizeOut) {
		return nil, fmt.Errorf("%w: edge %s pre slice %s outside %s (size_out %d)",
			ErrInvalidSlice, e.ID, e.PreSlice, e.Pre.ID, e.Pre.SizeOut)
	}
	if !e.PostSlice.Within(e.Post.SizeIn) {
		return nil, fmt.Errorf("%w: edge %s post slice %s outside %s (size_in %d)",
			ErrInvalidSlice, e.ID, e.PostSlice, e.Post.ID, e.Post.SizeIn)
	}
	m, err := e.Transform.Materialize(e.SizeOut(), e.SizeIn())
	if err != nil {
		return nil, fmt.Errorf("edge %s: %w", e.ID, err)
	}
	return m, nil
}

// FullMatrix returns the map e realizes from all of Pre's output to all of
// Post's input: its transform placed at (post slice, pre slice) in an
// otherwise zero Post.SizeIn x Pre.SizeOut matrix.
func FullMatrix(e *Edge) (*mat.Dense, error) {
	m, err := TransformMatrix(e)
	if err != nil {
		return nil, err
	}
	r0, _ := e.PostSlice.Range(e.Post.SizeIn)
	c0, _ := e.PreSlice.Range(e.Pre.SizeOut)
	return linalg.Embed(e.Post.SizeIn, e.Pre.SizeOut, r0, c0, m), nil
}

// Validate checks every node and edge of g. It returns the first problem found.
func (g *Graph) Validate() error {
	seen := make(map[string]bool)
	for _, n := range g.Nodes() {
		if err := CheckNode(n); err != nil {
			return err
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidNode, n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range g.Edges() {
		if _, err := TransformMatrix(e); err != nil {
			return err
		}
	}
	return nil
}
