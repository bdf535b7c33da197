package split

import (
	"fmt"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/google/uuid"
)

// IDGenerator names the nodes and edges created by splitting. The splitter
// retries a name that is already taken.
type IDGenerator interface {
	NodeID(origin *graph.Node, part int) string
	EdgeID(origin *graph.Edge) string
}

// UUIDs names every artifact with a random UUID.
type UUIDs struct{}

func (UUIDs) NodeID(*graph.Node, int) string { return uuid.NewString() }
func (UUIDs) EdgeID(*graph.Edge) string      { return uuid.NewString() }

// Sequential produces deterministic names: <Prefix>n1, <Prefix>n2, ... for
// nodes and <Prefix>e1, ... for edges.
type Sequential struct {
	Prefix string
	nodes  int
	edges  int
}

func (s *Sequential) NodeID(*graph.Node, int) string {
	s.nodes++
	return fmt.Sprintf("%sn%d", s.Prefix, s.nodes)
}

func (s *Sequential) EdgeID(*graph.Edge) string {
	s.edges++
	return fmt.Sprintf("%se%d", s.Prefix, s.edges)
}

// NewIDGenerator returns the generator for a configured style: "uuid" or "sequential".
func NewIDGenerator(style string) (IDGenerator, error) {
	switch style {
	case "", "uuid":
		return UUIDs{}, nil
	case "sequential":
		return &Sequential{Prefix: "split-"}, nil
	default:
		return nil, fmt.Errorf("unknown id style %q (valid: uuid, sequential)", style)
	}
}
