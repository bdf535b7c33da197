package bench

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/logging"
	"github.com/ctnbench/relaysplit/internal/split"
	"github.com/ctnbench/relaysplit/internal/store"
)

// Options controls a benchmark run.
type Options struct {
	// Label names the run in the store. Defaults to "d<D>-a<N>".
	Label string
	// Store, when non-nil, records the run.
	Store store.GraphStore
	// Verify checks behavioral equivalence after splitting.
	Verify bool
	// IDs names replacement nodes. Defaults to sequential ids.
	IDs split.IDGenerator
	// Logger receives operational output. Defaults to a discarding logger.
	Logger *slog.Logger
	// Decisions receives one event per split node. May be nil.
	Decisions *logging.DecisionLogger
}

// Result captures one benchmark run.
type Result struct {
	RunID       string      `json:"run_id,omitempty"`
	Label       string      `json:"label"`
	Params      Params      `json:"params"`
	NodesBefore int         `json:"nodes_before"`
	NodesAfter  int         `json:"nodes_after"`
	EdgesBefore int         `json:"edges_before"`
	EdgesAfter  int         `json:"edges_after"`
	Stats       split.Stats `json:"stats"`
	// Mismatches lists the source/sink pairs whose maps changed. Only set
	// when Options.Verify is true.
	Mismatches []string `json:"mismatches,omitempty"`

	// Before and After are the unsplit and split graphs.
	Before *graph.Graph `json:"-"`
	After  *graph.Graph `json:"-"`
}

// Run builds the model and splits a copy of it. The split timing is
// Result.Stats.Duration.
func Run(ctx context.Context, p Params, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ids := opts.IDs
	if ids == nil {
		ids = &split.Sequential{Prefix: "split-"}
	}

	before, err := BuildSequenceModel(p)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	after := before.Clone()

	s, err := split.New(split.Options{
		MaxWidth:  p.MaxWidth,
		IDs:       ids,
		Logger:    logger,
		Decisions: opts.Decisions,
	})
	if err != nil {
		return nil, err
	}

	stats, err := s.Split(after)
	if err != nil {
		return nil, fmt.Errorf("split model: %w", err)
	}

	label := opts.Label
	if label == "" {
		label = fmt.Sprintf("d%d-a%d", p.Dimensions, p.Actions)
	}
	cb, ca := before.Count(), after.Count()
	res := &Result{
		Label:       label,
		Params:      p,
		NodesBefore: cb.Nodes,
		NodesAfter:  ca.Nodes,
		EdgesBefore: cb.Edges,
		EdgesAfter:  ca.Edges,
		Stats:       stats,
		Before:      before,
		After:       after,
	}

	if opts.Verify {
		diff, err := split.Equivalent(before, after, split.DefaultTolerance)
		if err != nil {
			return nil, fmt.Errorf("verify split: %w", err)
		}
		for _, pair := range diff {
			res.Mismatches = append(res.Mismatches, pair.String())
		}
	}

	logger.Info("benchmark run complete",
		"label", label,
		"dimensions", p.Dimensions,
		"nodes_before", res.NodesBefore,
		"nodes_after", res.NodesAfter,
		"split_duration", stats.Duration)

	if opts.Store != nil {
		id, err := opts.Store.RecordRun(ctx, store.Run{
			Label:       label,
			Dimensions:  p.Dimensions,
			Actions:     p.Actions,
			MaxWidth:    p.MaxWidth,
			NodesBefore: res.NodesBefore,
			NodesAfter:  res.NodesAfter,
			EdgesBefore: res.EdgesBefore,
			EdgesAfter:  res.EdgesAfter,
			Duration:    stats.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		res.RunID = id
	}

	return res, nil
}
