package split

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctnbench/relaysplit/internal/graph"
	"gonum.org/v1/gonum/mat"
)

// Pair names a (sink, source) combination of non-passthrough nodes.
type Pair struct {
	Sink   string
	Source string
}

func (p Pair) String() string {
	return p.Source + " -> " + p.Sink
}

// LinearMap is the matrix each sink receives from each source, with every
// passthrough node in between composed away. Entry (Sink, Source) has shape
// sink.SizeIn x source.SizeOut.
type LinearMap map[Pair]*mat.Dense

// EffectiveMap computes the LinearMap of g. Paths made of passthrough nodes
// are summed, so the result depends only on the non-passthrough endpoints and
// is unchanged by a correct split.
func EffectiveMap(g *graph.Graph) (LinearMap, error) {
	idx, err := BuildIndex(g.Root)
	if err != nil {
		return nil, err
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*graph.Node]int)
	memo := make(map[*graph.Node]map[*graph.Node]*mat.Dense)

	// incoming sums what reaches n's input from every non-passthrough source.
	var incoming func(n *graph.Node) (map[*graph.Node]*mat.Dense, error)
	incoming = func(n *graph.Node) (map[*graph.Node]*mat.Dense, error) {
		if n.IsPassthrough() {
			switch state[n] {
			case done:
				return memo[n], nil
			case visiting:
				return nil, fmt.Errorf("%w: through %s", ErrRelayCycle, n.ID)
			}
			state[n] = visiting
		}

		acc := make(map[*graph.Node]*mat.Dense)
		add := func(src *graph.Node, m mat.Matrix) {
			if cur, ok := acc[src]; ok {
				cur.Add(cur, m)
				return
			}
			acc[src] = mat.DenseCopyOf(m)
		}

		for _, c := range idx.Inputs[n] {
			full, err := graph.FullMatrix(c)
			if err != nil {
				return nil, err
			}
			if !c.Pre.IsPassthrough() {
				add(c.Pre, full)
				continue
			}
			upstream, err := incoming(c.Pre)
			if err != nil {
				return nil, err
			}
			for src, m := range upstream {
				var prod mat.Dense
				prod.Mul(full, m)
				add(src, &prod)
			}
		}

		if n.IsPassthrough() {
			state[n] = done
			memo[n] = acc
		}
		return acc, nil
	}

	out := make(LinearMap)
	for _, n := range g.Nodes() {
		if n.IsPassthrough() {
			continue
		}
		acc, err := incoming(n)
		if err != nil {
			return nil, err
		}
		for src, m := range acc {
			out[Pair{Sink: n.ID, Source: src.ID}] = m
		}
	}
	return out, nil
}

// Diff returns the pairs whose matrices differ by more than tol in any entry.
// A pair missing on one side is compared against zero.
func Diff(a, b LinearMap, tol float64) []Pair {
	keys := make(map[Pair]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}

	var out []Pair
	for k := range keys {
		ma, oka := a[k]
		mb, okb := b[k]
		switch {
		case oka && okb:
			if !mat.EqualApprox(ma, mb, tol) {
				out = append(out, k)
			}
		case oka:
			if maxAbs(ma) > tol {
				out = append(out, k)
			}
		case okb:
			if maxAbs(mb) > tol {
				out = append(out, k)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sink != out[j].Sink {
			return out[i].Sink < out[j].Sink
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// DefaultTolerance is the entry-wise tolerance used when checking a split.
const DefaultTolerance = 1e-9

// Equivalent reports whether two graphs realize the same LinearMap within tol.
// The returned pairs are the ones that differ.
func Equivalent(before, after *graph.Graph, tol float64) ([]Pair, error) {
	a, err := EffectiveMap(before)
	if err != nil {
		return nil, fmt.Errorf("map before: %w", err)
	}
	b, err := EffectiveMap(after)
	if err != nil {
		return nil, fmt.Errorf("map after: %w", err)
	}
	return Diff(a, b, tol), nil
}

func maxAbs(m mat.Matrix) float64 {
	r, c := m.Dims()
	var out float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = math.Max(out, math.Abs(m.At(i, j)))
		}
	}
	return out
}
