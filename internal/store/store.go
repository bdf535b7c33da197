// Package store persists named graph snapshots and benchmark run history.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ctnbench/relaysplit/internal/graph"
)

// ErrNotFound is returned when a named graph does not exist.
var ErrNotFound = errors.New("not found")

// GraphInfo summarizes a stored graph without decoding it.
type GraphInfo struct {
	Name        string    `json:"name"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Passthrough int       `json:"passthrough"`
	MaxWidth    int       `json:"max_width"` // widest passthrough node
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Run is one recorded benchmark run.
type Run struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	Dimensions  int           `json:"dimensions"`
	Actions     int           `json:"actions"`
	MaxWidth    int           `json:"max_width"`
	NodesBefore int           `json:"nodes_before"`
	NodesAfter  int           `json:"nodes_after"`
	EdgesBefore int           `json:"edges_before"`
	EdgesAfter  int           `json:"edges_after"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// GraphStore stores graphs by name and keeps a log of benchmark runs.
type GraphStore interface {
	// SaveGraph stores g under name, replacing any previous graph with that name.
	SaveGraph(ctx context.Context, name string, g *graph.Graph) error
	// LoadGraph returns a fresh copy of the named graph, or ErrNotFound.
	LoadGraph(ctx context.Context, name string) (*graph.Graph, error)
	// ListGraphs returns all stored graphs ordered by name.
	ListGraphs(ctx context.Context) ([]GraphInfo, error)
	// DeleteGraph removes the named graph, or returns ErrNotFound.
	DeleteGraph(ctx context.Context, name string) error

	// RecordRun appends a run, assigning an ID and timestamp when unset.
	RecordRun(ctx context.Context, run Run) (string, error)
	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Close() error
}

func summarize(name string, g *graph.Graph) GraphInfo {
	c := g.Count()
	return GraphInfo{
		Name:        name,
		Nodes:       c.Nodes,
		Edges:       c.Edges,
		Passthrough: c.Passthrough,
		MaxWidth:    c.MaxWidth,
	}
}
