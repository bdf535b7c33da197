package visualization

import (
	"strings"

	"github.com/ctnbench/relaysplit/internal/graph"
)

// RenderJSON produces a JSON-ready graph summary with nodes, edges and
// counts. Each node and edge carries the slash-joined path of its scope.
func RenderJSON(g *graph.Graph, maxWidth int) map[string]interface{} {
	jsonNodes := make([]map[string]interface{}, 0)
	jsonEdges := make([]map[string]interface{}, 0)

	var walk func(s *graph.Scope, path []string)
	walk = func(s *graph.Scope, path []string) {
		path = append(path, s.Label)
		scope := strings.Join(path, "/")
		for _, n := range s.Nodes {
			jsonNodes = append(jsonNodes, map[string]interface{}{
				"id":        n.ID,
				"label":     n.Label,
				"kind":      string(n.Kind),
				"size_in":   n.SizeIn,
				"size_out":  n.SizeOut,
				"scope":     scope,
				"oversized": maxWidth > 0 && n.IsPassthrough() && n.SizeIn > maxWidth,
			})
		}
		for _, e := range s.Edges {
			entry := map[string]interface{}{
				"id":         e.ID,
				"source":     e.Pre.ID,
				"target":     e.Post.ID,
				"transform":  e.Transform.String(),
				"pre_slice":  e.PreSlice.String(),
				"post_slice": e.PostSlice.String(),
				"scope":      scope,
			}
			if e.Synapse != nil {
				entry["synapse"] = e.Synapse.Tau
			}
			jsonEdges = append(jsonEdges, entry)
		}
		for _, c := range s.Scopes {
			walk(c, path)
		}
	}
	if g.Root != nil {
		walk(g.Root, nil)
	}

	oversized := 0
	if maxWidth > 0 {
		oversized = len(g.Oversized(maxWidth))
	}

	return map[string]interface{}{
		"name":       g.Name,
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
		"counts":     g.Count(),
		"oversized":  oversized,
	}
}
