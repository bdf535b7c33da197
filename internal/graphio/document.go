// Package graphio reads and writes graph documents in YAML or JSON.
//
// A document is a tree of scopes. Node ids are unique across the whole
// document, and edges name their endpoints by id, so an edge may connect
// nodes owned by different scopes:
//
//	name: sequence
//	scope:
//	  label: model
//	  nodes:
//	    - {id: vision.in, kind: passthrough, size_in: 32}
//	  edges:
//	    - {pre: input, post: vision.in, transform: 1.0, synapse: 0.005}
//	  scopes: [...]
package graphio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/linalg"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownNode is returned when an edge names a node that is not defined.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateID is returned when two nodes or two edges share an id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidSlice is returned for a slice that is not a [start, stop] pair.
	ErrInvalidSlice = errors.New("slice must be [start, stop]")
)

// Document is the serialized form of a graph.
type Document struct {
	Name  string   `json:"name" yaml:"name"`
	Scope ScopeDoc `json:"scope" yaml:"scope"`
}

// ScopeDoc is a serialized scope.
type ScopeDoc struct {
	Label  string     `json:"label,omitempty" yaml:"label,omitempty"`
	Nodes  []NodeDoc  `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges  []EdgeDoc  `json:"edges,omitempty" yaml:"edges,omitempty"`
	Scopes []ScopeDoc `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// NodeDoc is a serialized node. Kind defaults to passthrough, and a
// passthrough node's size_out defaults to its size_in.
type NodeDoc struct {
	ID      string `json:"id" yaml:"id"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"`
	SizeIn  int    `json:"size_in,omitempty" yaml:"size_in,omitempty"`
	SizeOut int    `json:"size_out,omitempty" yaml:"size_out,omitempty"`
}

// EdgeDoc is a serialized edge. A missing transform is the identity; a
// missing synapse means no filtering.
type EdgeDoc struct {
	ID        string        `json:"id,omitempty" yaml:"id,omitempty"`
	Pre       string        `json:"pre" yaml:"pre"`
	Post      string        `json:"post" yaml:"post"`
	PreSlice  []int         `json:"pre_slice,omitempty" yaml:"pre_slice,omitempty,flow"`
	PostSlice []int         `json:"post_slice,omitempty" yaml:"post_slice,omitempty,flow"`
	Transform *TransformDoc `json:"transform,omitempty" yaml:"transform,omitempty"`
	Synapse   *float64      `json:"synapse,omitempty" yaml:"synapse,omitempty"`
}

// TransformDoc serializes a linalg.Transform as a number or a list of rows.
type TransformDoc struct {
	linalg.Transform
}

// UnmarshalYAML accepts a scalar or a 2-D sequence of numbers.
func (t *TransformDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("transform: %w", err)
		}
		t.Transform = linalg.Scalar(v)
		return nil
	case yaml.SequenceNode:
		rows := make([][]float64, 0, len(node.Content))
		for _, r := range node.Content {
			if r.Kind != yaml.SequenceNode {
				return fmt.Errorf("%w: line %d: transform must be a scalar or a list of rows", linalg.ErrUnsupportedTransform, r.Line)
			}
			row := make([]float64, 0, len(r.Content))
			for _, v := range r.Content {
				if v.Kind != yaml.ScalarNode {
					return fmt.Errorf("%w: line %d: transform has more than 2 dimensions", linalg.ErrUnsupportedTransform, v.Line)
				}
				var f float64
				if err := v.Decode(&f); err != nil {
					return fmt.Errorf("transform: %w", err)
				}
				row = append(row, f)
			}
			rows = append(rows, row)
		}
		tr, err := linalg.FromRows(rows)
		if err != nil {
			return err
		}
		t.Transform = tr
		return nil
	default:
		return fmt.Errorf("%w: line %d", linalg.ErrUnsupportedTransform, node.Line)
	}
}

// MarshalYAML writes a scalar as a number and a matrix as flow-style rows.
func (t TransformDoc) MarshalYAML() (any, error) {
	if t.IsScalar() {
		return t.ScalarValue(), nil
	}
	out := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range t.Rows() {
		r := &yaml.Node{}
		if err := r.Encode(row); err != nil {
			return nil, err
		}
		r.Style = yaml.FlowStyle
		out.Content = append(out.Content, r)
	}
	return out, nil
}

// UnmarshalJSON accepts a number or an array of number arrays.
func (t *TransformDoc) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	switch v := raw.(type) {
	case float64:
		t.Transform = linalg.Scalar(v)
		return nil
	case []any:
		rows := make([][]float64, 0, len(v))
		for _, r := range v {
			cells, ok := r.([]any)
			if !ok {
				return fmt.Errorf("%w: transform must be a number or a list of rows", linalg.ErrUnsupportedTransform)
			}
			row := make([]float64, 0, len(cells))
			for _, c := range cells {
				f, ok := c.(float64)
				if !ok {
					return fmt.Errorf("%w: transform has more than 2 dimensions", linalg.ErrUnsupportedTransform)
				}
				row = append(row, f)
			}
			rows = append(rows, row)
		}
		tr, err := linalg.FromRows(rows)
		if err != nil {
			return err
		}
		t.Transform = tr
		return nil
	default:
		return fmt.Errorf("%w: %T", linalg.ErrUnsupportedTransform, raw)
	}
}

// MarshalJSON writes a scalar as a number and a matrix as an array of rows.
func (t TransformDoc) MarshalJSON() ([]byte, error) {
	if t.IsScalar() {
		return json.Marshal(t.ScalarValue())
	}
	return json.Marshal(t.Rows())
}

func sliceFromDoc(s []int) (*graph.Slice, error) {
	if s == nil {
		return nil, nil
	}
	if len(s) != 2 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSlice, s)
	}
	return &graph.Slice{Start: s[0], Stop: s[1]}, nil
}

func sliceToDoc(s *graph.Slice) []int {
	if s == nil {
		return nil
	}
	return []int{s.Start, s.Stop}
}
