// Package graph defines the hierarchical data-flow graph that passthrough
// splitting rewrites: scopes owning nodes, edges and nested scopes.
//
// Construction is explicit. A node or edge belongs to the scope it was added
// to, and new artifacts are always created by calling a method on the owning
// scope handle rather than through any ambient "current scope".
package graph

import (
	"fmt"

	"github.com/ctnbench/relaysplit/internal/linalg"
)

// Kind classifies what a node does with its input.
type Kind string

const (
	// KindPassthrough nodes relay their input unchanged. Only these are split.
	KindPassthrough Kind = "passthrough"
	// KindEnsemble nodes are neural populations.
	KindEnsemble Kind = "ensemble"
	// KindSource nodes produce output from a function of time.
	KindSource Kind = "source"
	// KindProbe nodes record a signal.
	KindProbe Kind = "probe"
)

// ValidKind reports whether k is a recognized node kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindPassthrough, KindEnsemble, KindSource, KindProbe:
		return true
	}
	return false
}

// Node is a signal endpoint. Passthrough nodes have SizeIn == SizeOut.
type Node struct {
	ID      string
	Label   string
	Kind    Kind
	SizeIn  int
	SizeOut int
}

// IsPassthrough reports whether n is a pure relay.
func (n *Node) IsPassthrough() bool {
	return n.Kind == KindPassthrough
}

func (n *Node) String() string {
	if n.Label != "" {
		return fmt.Sprintf("%s %q", n.ID, n.Label)
	}
	return n.ID
}

// Slice is the half-open range [Start, Stop) of a node's value vector.
// A nil *Slice addresses the whole vector.
type Slice struct {
	Start int
	Stop  int
}

// Range returns the bounds of s within a vector of the given size.
func (s *Slice) Range(size int) (start, stop int) {
	if s == nil {
		return 0, size
	}
	return s.Start, s.Stop
}

// Width returns the number of values s addresses within a vector of the given size.
func (s *Slice) Width(size int) int {
	start, stop := s.Range(size)
	return stop - start
}

// Within reports whether s is a non-empty range inside a vector of the given size.
func (s *Slice) Within(size int) bool {
	start, stop := s.Range(size)
	return start >= 0 && stop <= size && start < stop
}

func (s *Slice) String() string {
	if s == nil {
		return "[:]"
	}
	return fmt.Sprintf("[%d:%d]", s.Start, s.Stop)
}

// Synapse is the filter applied on an edge. It is carried through splitting
// unchanged. A nil *Synapse means no filtering.
type Synapse struct {
	Tau float64
}

// Edge connects the PreSlice of Pre's output to the PostSlice of Post's input
// through a linear Transform.
type Edge struct {
	ID        string
	Pre       *Node
	Post      *Node
	PreSlice  *Slice
	PostSlice *Slice
	Transform linalg.Transform
	Synapse   *Synapse
}

// SizeIn is the number of values read from Pre.
func (e *Edge) SizeIn() int {
	return e.PreSlice.Width(e.Pre.SizeOut)
}

// SizeOut is the number of values written into Post.
func (e *Edge) SizeOut() int {
	return e.PostSlice.Width(e.Post.SizeIn)
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s (%s%s -> %s%s)", e.ID, e.Pre.ID, e.PreSlice, e.Post.ID, e.PostSlice)
}

// Scope owns nodes, edges and nested scopes.
type Scope struct {
	Label  string
	Nodes  []*Node
	Edges  []*Edge
	Scopes []*Scope
}

// NewScope creates an empty scope.
func NewScope(label string) *Scope {
	return &Scope{Label: label}
}

// AddNode makes s the owner of n.
func (s *Scope) AddNode(n *Node) *Node {
	s.Nodes = append(s.Nodes, n)
	return n
}

// AddEdge makes s the owner of e.
func (s *Scope) AddEdge(e *Edge) *Edge {
	s.Edges = append(s.Edges, e)
	return e
}

// AddScope nests child inside s.
func (s *Scope) AddScope(child *Scope) *Scope {
	s.Scopes = append(s.Scopes, child)
	return child
}

// RemoveNode drops n from s. It reports whether n was owned by s.
func (s *Scope) RemoveNode(n *Node) bool {
	for i, x := range s.Nodes {
		if x == n {
			s.Nodes = append(s.Nodes[:i], s.Nodes[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveEdge drops e from s. It reports whether e was owned by s.
func (s *Scope) RemoveEdge(e *Edge) bool {
	for i, x := range s.Edges {
		if x == e {
			s.Edges = append(s.Edges[:i], s.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// Graph is a named root scope.
type Graph struct {
	Name string
	Root *Scope
}

// New creates a graph with an empty root scope.
func New(name string) *Graph {
	return &Graph{Name: name, Root: NewScope(name)}
}

// Walk visits every scope depth-first, parents before children. It stops
// descending when fn returns false for a scope. Walk does not guard against
// cycles; callers that accept untrusted input index the graph first.
func (g *Graph) Walk(fn func(s *Scope) bool) {
	var walk func(s *Scope)
	walk = func(s *Scope) {
		if !fn(s) {
			return
		}
		for _, c := range s.Scopes {
			walk(c)
		}
	}
	if g.Root != nil {
		walk(g.Root)
	}
}

// Nodes returns every node in walk order.
func (g *Graph) Nodes() []*Node {
	var out []*Node
	g.Walk(func(s *Scope) bool {
		out = append(out, s.Nodes...)
		return true
	})
	return out
}

// Edges returns every edge in walk order.
func (g *Graph) Edges() []*Edge {
	var out []*Edge
	g.Walk(func(s *Scope) bool {
		out = append(out, s.Edges...)
		return true
	})
	return out
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for _, n := range g.Nodes() {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Counts summarises the size of a graph.
type Counts struct {
	Scopes      int `json:"scopes" yaml:"scopes"`
	Nodes       int `json:"nodes" yaml:"nodes"`
	Passthrough int `json:"passthrough" yaml:"passthrough"`
	Edges       int `json:"edges" yaml:"edges"`
	MaxWidth    int `json:"max_width" yaml:"max_width"`
}

// Count tallies scopes, nodes and edges. MaxWidth is the widest passthrough input.
func (g *Graph) Count() Counts {
	var c Counts
	g.Walk(func(s *Scope) bool {
		c.Scopes++
		c.Edges += len(s.Edges)
		for _, n := range s.Nodes {
			c.Nodes++
			if n.IsPassthrough() {
				c.Passthrough++
				if n.SizeIn > c.MaxWidth {
					c.MaxWidth = n.SizeIn
				}
			}
		}
		return true
	})
	return c
}

// Oversized returns the passthrough nodes whose input is wider than maxWidth.
func (g *Graph) Oversized(maxWidth int) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.IsPassthrough() && n.SizeIn > maxWidth {
			out = append(out, n)
		}
	}
	return out
}
