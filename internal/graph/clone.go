package graph

// Clone deep-copies g. Nodes and edges get new identities with the same ids.
// Edge endpoints that are not owned by g keep pointing at the original node.
func (g *Graph) Clone() *Graph {
	nodes := make(map[*Node]*Node)
	var edges []*Edge

	var cloneScope func(s *Scope) *Scope
	cloneScope = func(s *Scope) *Scope {
		out := NewScope(s.Label)
		for _, n := range s.Nodes {
			cp := *n
			nodes[n] = &cp
			out.AddNode(&cp)
		}
		for _, e := range s.Edges {
			cp := *e
			cp.PreSlice = copySlice(e.PreSlice)
			cp.PostSlice = copySlice(e.PostSlice)
			if e.Synapse != nil {
				syn := *e.Synapse
				cp.Synapse = &syn
			}
			edges = append(edges, &cp)
			out.AddEdge(&cp)
		}
		for _, c := range s.Scopes {
			out.AddScope(cloneScope(c))
		}
		return out
	}

	out := &Graph{Name: g.Name}
	if g.Root != nil {
		out.Root = cloneScope(g.Root)
	}
	for _, e := range edges {
		if n, ok := nodes[e.Pre]; ok {
			e.Pre = n
		}
		if n, ok := nodes[e.Post]; ok {
			e.Post = n
		}
	}
	return out
}

func copySlice(s *Slice) *Slice {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
