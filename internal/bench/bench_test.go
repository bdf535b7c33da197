package bench

import (
	"context"
	"errors"
	"testing"

	"github.com/ctnbench/relaysplit/internal/split"
	"github.com/ctnbench/relaysplit/internal/store"
)

func TestBuildSequenceModel(t *testing.T) {
	g, err := BuildSequenceModel(DefaultParams())
	if err != nil {
		t.Fatalf("BuildSequenceModel() error = %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	c := g.Count()
	if c.Scopes != 5 {
		t.Errorf("Scopes = %d, want 5", c.Scopes)
	}
	if c.Nodes != 17 {
		t.Errorf("Nodes = %d, want 17", c.Nodes)
	}
	if c.Edges != 22 {
		t.Errorf("Edges = %d, want 22", c.Edges)
	}
	if c.Passthrough != 8 {
		t.Errorf("Passthrough = %d, want 8", c.Passthrough)
	}
	if got := len(g.Oversized(16)); got != 6 {
		t.Errorf("Oversized(16) = %d nodes, want 6", got)
	}
	if in := g.NodeByID("input"); in == nil || in.Label != "S0" {
		t.Errorf("input node = %v, want label S0", in)
	}
}

func TestBuildSequenceModel_Reproducible(t *testing.T) {
	p := DefaultParams()
	a, err := BuildSequenceModel(p)
	if err != nil {
		t.Fatalf("BuildSequenceModel() error = %v", err)
	}
	b, err := BuildSequenceModel(p)
	if err != nil {
		t.Fatalf("BuildSequenceModel() error = %v", err)
	}
	if diff, err := split.Equivalent(a, b, 0); err != nil || len(diff) != 0 {
		t.Errorf("same seed produced different models: %v, %v", diff, err)
	}

	p.Seed = 2
	c, err := BuildSequenceModel(p)
	if err != nil {
		t.Fatalf("BuildSequenceModel() error = %v", err)
	}
	if diff, err := split.Equivalent(a, c, 1e-9); err != nil || len(diff) == 0 {
		t.Errorf("different seeds should produce different vocabularies (diff %v, err %v)", diff, err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"wide", func(p *Params) { p.Dimensions = 512 }, false},
		{"last start", func(p *Params) { p.Start = 4 }, false},
		{"zero dimensions", func(p *Params) { p.Dimensions = 0 }, true},
		{"one action", func(p *Params) { p.Actions = 1 }, true},
		{"start out of range", func(p *Params) { p.Start = 5 }, true},
		{"negative start", func(p *Params) { p.Start = -1 }, true},
		{"zero duration", func(p *Params) { p.Duration = 0 }, true},
		{"zero width", func(p *Params) { p.MaxWidth = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParamsValidate_WidthSentinel(t *testing.T) {
	p := DefaultParams()
	p.MaxWidth = -1
	if err := p.Validate(); !errors.Is(err, split.ErrInvalidWidth) {
		t.Errorf("Validate() error = %v, want ErrInvalidWidth", err)
	}
}

func TestRun(t *testing.T) {
	gs := store.NewInMemoryGraphStore()
	ctx := context.Background()

	res, err := Run(ctx, DefaultParams(), Options{Store: gs, Verify: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.NodesBefore != 17 || res.NodesAfter != 23 {
		t.Errorf("nodes %d -> %d, want 17 -> 23", res.NodesBefore, res.NodesAfter)
	}
	if res.Stats.NodesSplit != 6 || res.Stats.NodesCreated != 12 {
		t.Errorf("Stats = %+v, want 6 nodes split into 12", res.Stats)
	}
	if len(res.Mismatches) != 0 {
		t.Errorf("split changed behavior: %v", res.Mismatches)
	}
	if left := res.After.Oversized(16); len(left) != 0 {
		t.Errorf("oversized nodes remain: %v", left)
	}
	if res.Before.Count().Nodes != 17 {
		t.Error("Run must not modify the unsplit model")
	}
	if res.Label != "d32-a5" {
		t.Errorf("Label = %q, want d32-a5", res.Label)
	}

	runs, err := gs.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || runs[0].NodesAfter != 23 {
		t.Fatalf("recorded runs = %+v", runs)
	}
	if runs[0].Duration != res.Stats.Duration {
		t.Errorf("recorded duration %v, want split duration %v", runs[0].Duration, res.Stats.Duration)
	}
}

func TestRun_NarrowModelUnchanged(t *testing.T) {
	p := DefaultParams()
	p.Dimensions = 8

	res, err := Run(context.Background(), p, Options{Label: "narrow"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.NodesAfter != res.NodesBefore || res.EdgesAfter != res.EdgesBefore {
		t.Errorf("narrow model changed: %+v", res)
	}
	if res.RunID != "" {
		t.Errorf("RunID = %q without a store", res.RunID)
	}
}

func TestRun_InvalidParams(t *testing.T) {
	p := DefaultParams()
	p.Actions = 0
	if _, err := Run(context.Background(), p, Options{}); err == nil {
		t.Error("Run() with invalid params should fail")
	}
}
