package graphio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/linalg"
	"gopkg.in/yaml.v3"
)

// Format selects the document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. "yml" is accepted as YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use 'yaml' or 'json')", s)
	}
}

// FormatForPath picks a format from a file extension, defaulting to YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Build turns a document into a graph, resolving edge endpoints by id.
func Build(doc *Document) (*graph.Graph, error) {
	nodes := make(map[string]*graph.Node)
	edgeIDs := make(map[string]bool)

	var buildNodes func(sd *ScopeDoc) (*graph.Scope, error)
	buildNodes = func(sd *ScopeDoc) (*graph.Scope, error) {
		s := graph.NewScope(sd.Label)
		for _, nd := range sd.Nodes {
			if _, ok := nodes[nd.ID]; ok {
				return nil, fmt.Errorf("%w: node %s", ErrDuplicateID, nd.ID)
			}
			n := nodeFromDoc(nd)
			if err := graph.CheckNode(n); err != nil {
				return nil, err
			}
			nodes[n.ID] = s.AddNode(n)
		}
		for i := range sd.Scopes {
			child, err := buildNodes(&sd.Scopes[i])
			if err != nil {
				return nil, err
			}
			s.AddScope(child)
		}
		return s, nil
	}

	root, err := buildNodes(&doc.Scope)
	if err != nil {
		return nil, err
	}

	// Explicit edge ids are reserved first so generated ones never take them.
	var reserve func(sd *ScopeDoc) error
	reserve = func(sd *ScopeDoc) error {
		for _, ed := range sd.Edges {
			if ed.ID == "" {
				continue
			}
			if edgeIDs[ed.ID] {
				return fmt.Errorf("%w: edge %s", ErrDuplicateID, ed.ID)
			}
			edgeIDs[ed.ID] = true
		}
		for i := range sd.Scopes {
			if err := reserve(&sd.Scopes[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := reserve(&doc.Scope); err != nil {
		return nil, err
	}

	// Edges are attached in a second pass so they may reference nodes
	// declared in any scope.
	count := 0
	var buildEdges func(sd *ScopeDoc, s *graph.Scope) error
	buildEdges = func(sd *ScopeDoc, s *graph.Scope) error {
		for _, ed := range sd.Edges {
			count++
			e, err := edgeFromDoc(ed, nodes)
			if err != nil {
				return err
			}
			if e.ID == "" {
				n := count
				for edgeIDs[fmt.Sprintf("edge-%d", n)] {
					n++
				}
				e.ID = fmt.Sprintf("edge-%d", n)
				edgeIDs[e.ID] = true
			}
			s.AddEdge(e)
		}
		for i := range sd.Scopes {
			if err := buildEdges(&sd.Scopes[i], s.Scopes[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := buildEdges(&doc.Scope, root); err != nil {
		return nil, err
	}

	name := doc.Name
	if name == "" {
		name = root.Label
	}
	return &graph.Graph{Name: name, Root: root}, nil
}

func nodeFromDoc(nd NodeDoc) *graph.Node {
	kind := graph.Kind(nd.Kind)
	if kind == "" {
		kind = graph.KindPassthrough
	}
	sizeOut := nd.SizeOut
	if kind == graph.KindPassthrough && sizeOut == 0 {
		sizeOut = nd.SizeIn
	}
	return &graph.Node{ID: nd.ID, Label: nd.Label, Kind: kind, SizeIn: nd.SizeIn, SizeOut: sizeOut}
}

func edgeFromDoc(ed EdgeDoc, nodes map[string]*graph.Node) (*graph.Edge, error) {
	pre, ok := nodes[ed.Pre]
	if !ok {
		return nil, fmt.Errorf("%w: edge %s pre %q", ErrUnknownNode, ed.ID, ed.Pre)
	}
	post, ok := nodes[ed.Post]
	if !ok {
		return nil, fmt.Errorf("%w: edge %s post %q", ErrUnknownNode, ed.ID, ed.Post)
	}
	preSlice, err := sliceFromDoc(ed.PreSlice)
	if err != nil {
		return nil, fmt.Errorf("edge %s pre_slice: %w", ed.ID, err)
	}
	postSlice, err := sliceFromDoc(ed.PostSlice)
	if err != nil {
		return nil, fmt.Errorf("edge %s post_slice: %w", ed.ID, err)
	}

	e := &graph.Edge{
		ID:        ed.ID,
		Pre:       pre,
		Post:      post,
		PreSlice:  preSlice,
		PostSlice: postSlice,
		Transform: linalg.Identity(),
	}
	if ed.Transform != nil {
		e.Transform = ed.Transform.Transform
	}
	if ed.Synapse != nil {
		e.Synapse = &graph.Synapse{Tau: *ed.Synapse}
	}
	return e, nil
}

// ToDocument serializes g.
func ToDocument(g *graph.Graph) *Document {
	var scopeDoc func(s *graph.Scope) ScopeDoc
	scopeDoc = func(s *graph.Scope) ScopeDoc {
		sd := ScopeDoc{Label: s.Label}
		for _, n := range s.Nodes {
			sd.Nodes = append(sd.Nodes, NodeDoc{
				ID:      n.ID,
				Label:   n.Label,
				Kind:    string(n.Kind),
				SizeIn:  n.SizeIn,
				SizeOut: n.SizeOut,
			})
		}
		for _, e := range s.Edges {
			ed := EdgeDoc{
				ID:        e.ID,
				Pre:       e.Pre.ID,
				Post:      e.Post.ID,
				PreSlice:  sliceToDoc(e.PreSlice),
				PostSlice: sliceToDoc(e.PostSlice),
				Transform: &TransformDoc{Transform: e.Transform},
			}
			if e.Synapse != nil {
				tau := e.Synapse.Tau
				ed.Synapse = &tau
			}
			sd.Edges = append(sd.Edges, ed)
		}
		for _, c := range s.Scopes {
			sd.Scopes = append(sd.Scopes, scopeDoc(c))
		}
		return sd
	}

	doc := &Document{Name: g.Name}
	if g.Root != nil {
		doc.Scope = scopeDoc(g.Root)
	}
	return doc
}

// Decode reads a graph document from r.
func Decode(r io.Reader, format Format) (*graph.Graph, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse graph JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse graph YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return Build(&doc)
}

// Encode writes g to w.
func Encode(w io.Writer, g *graph.Graph, format Format) error {
	doc := ToDocument(g)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode graph YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ReadFile loads a graph, choosing the format from the file extension.
func ReadFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatForPath(path))
}

// WriteFile saves g to path in the given format.
func WriteFile(path string, g *graph.Graph, format Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, g, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Marshal returns g encoded in format.
func Marshal(g *graph.Graph, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a graph encoded in format.
func Unmarshal(data []byte, format Format) (*graph.Graph, error) {
	return Decode(bytes.NewReader(data), format)
}
