package bench

import (
	"fmt"
	"math/rand/v2"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/linalg"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	memoryTau   = 0.1
	routeTau    = 0.01
	probeTau    = 0.03
	gateInhibit = -2.5
)

// builder accumulates nodes and edges with sequential edge ids.
type builder struct {
	g     *graph.Graph
	edges int
}

func (b *builder) node(s *graph.Scope, id, label string, kind graph.Kind, sizeIn, sizeOut int) *graph.Node {
	return s.AddNode(&graph.Node{ID: id, Label: label, Kind: kind, SizeIn: sizeIn, SizeOut: sizeOut})
}

func (b *builder) relay(s *graph.Scope, id, label string, size int) *graph.Node {
	return b.node(s, id, label, graph.KindPassthrough, size, size)
}

func (b *builder) ensemble(s *graph.Scope, id, label string, size int) *graph.Node {
	return b.node(s, id, label, graph.KindEnsemble, size, size)
}

func (b *builder) connect(s *graph.Scope, pre, post *graph.Node, t linalg.Transform, tau float64) *graph.Edge {
	b.edges++
	e := &graph.Edge{
		ID:        fmt.Sprintf("c%d", b.edges),
		Pre:       pre,
		Post:      post,
		Transform: t,
	}
	if tau > 0 {
		e.Synapse = &graph.Synapse{Tau: tau}
	}
	return s.AddEdge(e)
}

// vocabulary returns n reproducible unit vectors of width d.
func vocabulary(n, d int, seed uint64) [][]float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, d)
		for j := range v {
			v[j] = r.NormFloat64()
		}
		floats.Scale(1/floats.Norm(v, 2), v)
		out[i] = v
	}
	return out
}

// BuildSequenceModel builds the routed sequence graph for p. Actions
// 0..n-2 move state from S_i to S_i+1; the last action routes vision into
// state through a gated channel.
func BuildSequenceModel(p Params) (*graph.Graph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d, n := p.Dimensions, p.Actions
	vocab := vocabulary(n, d, p.Seed)

	b := &builder{g: graph.New("sequence_routed")}
	root := b.g.Root

	// Vision buffer.
	vision := root.AddScope(graph.NewScope("vision"))
	visionIn := b.relay(vision, "vision.input", "vision input", d)
	visionEns := b.ensemble(vision, "vision.state", "vision state", d)
	visionOut := b.relay(vision, "vision.output", "vision output", d)
	b.connect(vision, visionIn, visionEns, linalg.Identity(), 0)
	b.connect(vision, visionEns, visionOut, linalg.Identity(), 0)

	// State memory with a recurrent integrator.
	state := root.AddScope(graph.NewScope("state"))
	stateIn := b.relay(state, "state.input", "state input", d)
	stateEns := b.ensemble(state, "state.state", "state memory", d)
	stateOut := b.relay(state, "state.output", "state output", d)
	b.connect(state, stateIn, stateEns, linalg.Scalar(memoryTau), memoryTau)
	b.connect(state, stateEns, stateEns, linalg.Identity(), memoryTau)
	b.connect(state, stateEns, stateOut, linalg.Identity(), 0)

	// Basal ganglia: utilities are dot(state, S_i).
	bg := root.AddScope(graph.NewScope("bg"))
	bgIn := b.relay(bg, "bg.input", "utilities", n)
	striatum := b.ensemble(bg, "bg.striatum", "striatum", n)
	gpi := b.ensemble(bg, "bg.gpi", "gpi", n)
	bgOut := b.relay(bg, "bg.output", "bg output", n)
	b.connect(bg, bgIn, striatum, linalg.Identity(), 0)
	b.connect(bg, striatum, gpi, linalg.Scalar(-1), 0)
	b.connect(bg, gpi, bgOut, linalg.Identity(), 0)

	utilities, err := linalg.FromRows(vocab)
	if err != nil {
		return nil, err
	}
	b.connect(root, stateOut, bgIn, utilities, 0)

	// Thalamus: action selection, effects and the vision route.
	thal := root.AddScope(graph.NewScope("thal"))
	actions := b.ensemble(thal, "thal.actions", "actions", n)
	b.connect(root, bgOut, actions, linalg.Scalar(-1), 0)

	for i := 0; i < n-1; i++ {
		e := b.connect(root, actions, stateIn, linalg.Matrix(mat.NewDense(d, 1, vocab[i+1])), routeTau)
		e.PreSlice = &graph.Slice{Start: i, Stop: i + 1}
	}

	route := b.relay(thal, "thal.route", "route vision->state", d)
	channel := b.ensemble(thal, "thal.channel", "channel", d)
	routeOut := b.relay(thal, "thal.route_out", "route output", d)
	gate := b.ensemble(thal, "thal.gate", "gate", 1)
	b.connect(root, visionOut, route, linalg.Identity(), 0)
	b.connect(thal, route, channel, linalg.Identity(), routeTau)
	b.connect(thal, channel, routeOut, linalg.Identity(), 0)
	b.connect(root, routeOut, stateIn, linalg.Identity(), routeTau)

	gateIn := b.connect(thal, actions, gate, linalg.Identity(), routeTau)
	gateIn.PreSlice = &graph.Slice{Start: n - 1, Stop: n}
	inhibit := make([]float64, d)
	for i := range inhibit {
		inhibit[i] = gateInhibit
	}
	b.connect(thal, gate, channel, linalg.Matrix(mat.NewDense(d, 1, inhibit)), 0)

	// Input presents S_start to vision; a probe records the action values.
	input := b.node(root, "input", fmt.Sprintf("S%d", p.Start), graph.KindSource, 0, d)
	b.connect(root, input, visionIn, linalg.Identity(), 0)
	probe := b.node(root, "probe.actions", "actions probe", graph.KindProbe, n, 0)
	b.connect(root, actions, probe, linalg.Identity(), probeTau)

	return b.g, nil
}
