// Package split rewrites a data-flow graph so that no passthrough node is
// wider than a maximum width. Each oversized passthrough node is replaced by
// a run of narrower nodes, and every edge that touched it is decomposed into
// per-replacement sub-transforms so the linear map through the graph is
// unchanged. All-zero sub-transforms are dropped.
package split

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/logging"
)

// DefaultMaxWidth is the width bound callers use when none is configured.
const DefaultMaxWidth = 16

// Options configures a Splitter.
type Options struct {
	// MaxWidth is the largest input width a passthrough node may keep.
	MaxWidth int

	// IDs names replacement nodes and edges. Defaults to UUIDs.
	IDs IDGenerator

	// Logger receives operational output. Defaults to a discarding logger.
	Logger *slog.Logger

	// Decisions receives one event per split node. May be nil.
	Decisions *logging.DecisionLogger
}

// Stats describes what a run changed.
type Stats struct {
	NodesSplit   int           `json:"nodes_split" yaml:"nodes_split"`
	NodesCreated int           `json:"nodes_created" yaml:"nodes_created"`
	EdgesRemoved int           `json:"edges_removed" yaml:"edges_removed"`
	EdgesCreated int           `json:"edges_created" yaml:"edges_created"`
	EdgesPruned  int           `json:"edges_pruned" yaml:"edges_pruned"`
	Iterations   int           `json:"iterations" yaml:"iterations"`
	Duration     time.Duration `json:"duration" yaml:"duration"` // wall time of Split
}

// Splitter performs passthrough splitting.
type Splitter struct {
	maxWidth  int
	ids       IDGenerator
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	used      map[string]bool
}

// New creates a Splitter.
func New(opts Options) (*Splitter, error) {
	if opts.MaxWidth <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, opts.MaxWidth)
	}
	if opts.IDs == nil {
		opts.IDs = UUIDs{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Splitter{
		maxWidth:  opts.MaxWidth,
		ids:       opts.IDs,
		logger:    opts.Logger,
		decisions: opts.Decisions,
	}, nil
}

// SplitPassthrough splits every passthrough node of g wider than maxWidth,
// mutating g in place.
func SplitPassthrough(g *graph.Graph, maxWidth int) error {
	s, err := New(Options{MaxWidth: maxWidth})
	if err != nil {
		return err
	}
	_, err = s.Split(g)
	return err
}

// Split rewrites g in place until no passthrough node is wider than the
// configured maximum. On error the graph is left as it was after the last
// completed node split.
func (s *Splitter) Split(g *graph.Graph) (Stats, error) {
	start := time.Now()
	var stats Stats

	idx, err := BuildIndex(g.Root)
	if err != nil {
		return stats, fmt.Errorf("index graph: %w", err)
	}
	s.used = make(map[string]bool, len(idx.NodeScope)+len(idx.EdgeScope))
	for n := range idx.NodeScope {
		s.used[n.ID] = true
	}
	for e := range idx.EdgeScope {
		s.used[e.ID] = true
	}

	for {
		stats.Iterations++
		changed := false

		// Splitting mutates the scopes, so each pass works from a snapshot.
		for _, n := range g.Nodes() {
			if !n.IsPassthrough() || n.SizeIn <= s.maxWidth {
				continue
			}
			if _, ok := idx.NodeScope[n]; !ok {
				continue
			}

			p, err := s.planSplit(idx, n)
			if err != nil {
				return stats, err
			}
			if err := p.apply(idx); err != nil {
				return stats, fmt.Errorf("split %s: %w", n.ID, err)
			}
			s.record(p, &stats)
			changed = true
		}

		if !changed {
			break
		}
	}

	stats.Duration = time.Since(start)
	s.logger.Info("passthrough split complete",
		"graph", g.Name,
		"max_width", s.maxWidth,
		"nodes_split", stats.NodesSplit,
		"nodes_created", stats.NodesCreated,
		"edges_created", stats.EdgesCreated,
		"edges_pruned", stats.EdgesPruned,
		"iterations", stats.Iterations,
	)
	return stats, nil
}

func (s *Splitter) record(p *plan, stats *Stats) {
	stats.NodesSplit++
	stats.NodesCreated += len(p.parts)
	stats.EdgesRemoved += len(p.removed)
	stats.EdgesCreated += len(p.added)
	stats.EdgesPruned += p.pruned

	ids := make([]string, len(p.parts))
	for i, pt := range p.parts {
		ids[i] = pt.node.ID
	}
	s.logger.Debug("split passthrough node",
		"node", p.node.ID,
		"label", p.node.Label,
		"size_in", p.node.SizeIn,
		"parts", len(p.parts),
		"edges_created", len(p.added),
		"edges_pruned", p.pruned,
	)
	s.decisions.Log(map[string]any{
		"event":         "node_split",
		"node_id":       p.node.ID,
		"label":         p.node.Label,
		"size_in":       p.node.SizeIn,
		"max_width":     s.maxWidth,
		"replacements":  ids,
		"edges_removed": len(p.removed),
		"edges_created": len(p.added),
		"edges_pruned":  p.pruned,
	})
}

// maxIDAttempts bounds how often a generator may return a taken id.
const maxIDAttempts = 64

func (s *Splitter) nodeID(origin *graph.Node, part int) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		if id := s.ids.NodeID(origin, part); !s.used[id] {
			s.used[id] = true
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: part %d of node %s", ErrIDExhausted, part, origin.ID)
}

func (s *Splitter) edgeID(origin *graph.Edge) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		if id := s.ids.EdgeID(origin); !s.used[id] {
			s.used[id] = true
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: replacement for edge %s", ErrIDExhausted, origin.ID)
}
