package split

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeCycle is returned when a scope is reachable from itself.
	ErrScopeCycle = errors.New("scope cycle")

	// ErrSharedArtifact is returned when a node, edge or scope is owned by
	// more than one scope.
	ErrSharedArtifact = errors.New("artifact owned by more than one scope")

	// ErrInvalidWidth is returned for a non-positive maximum width.
	ErrInvalidWidth = errors.New("invalid max width")

	// ErrNotDrained is returned if a node would be removed while edges still
	// touch it. It indicates a bug in the redistribution plan.
	ErrNotDrained = errors.New("node still has edges")

	// ErrIDExhausted is returned when the id generator keeps producing ids
	// that are already in the graph.
	ErrIDExhausted = errors.New("no unused id")

	// ErrRelayCycle is returned by EffectiveMap when passthrough nodes form a loop.
	ErrRelayCycle = errors.New("passthrough cycle")
)

// Direction says which side of a split node an edge is on.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	SelfLoop Direction = "self-loop"
)

// EdgeError reports a structural problem with one edge of a node being split.
// It unwraps to the underlying cause, typically linalg.ErrShapeMismatch or
// graph.ErrInvalidSlice.
type EdgeError struct {
	NodeID    string
	EdgeID    string
	Direction Direction
	Err       error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("split %s: %s edge %s: %v", e.NodeID, e.Direction, e.EdgeID, e.Err)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}
