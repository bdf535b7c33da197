package mcp

import (
	"time"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/split"
)

// graphSource selects the graph a tool operates on: an inline document or
// a graph stored by name. Exactly one must be set.
type graphSource struct {
	graph  string
	format string
	name   string
}

// RelaysplitSplitInput defines the input for relaysplit_split tool.
type RelaysplitSplitInput struct {
	Graph    string `json:"graph,omitempty" jsonschema:"Inline graph document"`
	Format   string `json:"format,omitempty" jsonschema:"Encoding of the inline document and of the returned graph: yaml (default) or json"`
	Name     string `json:"name,omitempty" jsonschema:"Name of a stored graph to load instead of an inline document"`
	MaxWidth int    `json:"max_width,omitempty" jsonschema:"Largest passthrough width left unsplit (default 16)"`
	Verify   bool   `json:"verify,omitempty" jsonschema:"Check that splitting preserved every source to sink linear map"`
	SaveAs   string `json:"save_as,omitempty" jsonschema:"Store the split graph under this name"`
}

// RelaysplitSplitOutput defines the output for relaysplit_split tool.
type RelaysplitSplitOutput struct {
	Graph      string       `json:"graph" jsonschema:"Split graph document in the requested format"`
	Before     graph.Counts `json:"before" jsonschema:"Counts before splitting"`
	After      graph.Counts `json:"after" jsonschema:"Counts after splitting"`
	Stats      split.Stats  `json:"stats" jsonschema:"What the split changed"`
	Verified   bool         `json:"verified" jsonschema:"Whether equivalence was checked and held"`
	Mismatches []string     `json:"mismatches,omitempty" jsonschema:"Source to sink pairs whose linear map changed"`
	SavedAs    string       `json:"saved_as,omitempty" jsonschema:"Name the split graph was stored under"`
}

// RelaysplitStatsInput defines the input for relaysplit_stats tool.
type RelaysplitStatsInput struct {
	Graph    string `json:"graph,omitempty" jsonschema:"Inline graph document"`
	Format   string `json:"format,omitempty" jsonschema:"Encoding of the inline document: yaml (default) or json"`
	Name     string `json:"name,omitempty" jsonschema:"Name of a stored graph to load instead of an inline document"`
	MaxWidth int    `json:"max_width,omitempty" jsonschema:"Width bound used to report oversized passthrough nodes (default 16)"`
}

// OversizedNode describes a passthrough node wider than the bound.
type OversizedNode struct {
	ID     string `json:"id"`
	Label  string `json:"label,omitempty"`
	SizeIn int    `json:"size_in"`
	Parts  int    `json:"parts" jsonschema:"Number of replacement nodes a split would create"`
}

// RelaysplitStatsOutput defines the output for relaysplit_stats tool.
type RelaysplitStatsOutput struct {
	Name      string          `json:"name"`
	Counts    graph.Counts    `json:"counts"`
	Oversized []OversizedNode `json:"oversized" jsonschema:"Passthrough nodes a split would replace"`
}

// RelaysplitRenderInput defines the input for relaysplit_render tool.
type RelaysplitRenderInput struct {
	Graph    string `json:"graph,omitempty" jsonschema:"Inline graph document"`
	Format   string `json:"format,omitempty" jsonschema:"Encoding of the inline document: yaml (default) or json"`
	Name     string `json:"name,omitempty" jsonschema:"Name of a stored graph to load instead of an inline document"`
	Output   string `json:"output,omitempty" jsonschema:"Render format: dot or json (default json)"`
	MaxWidth int    `json:"max_width,omitempty" jsonschema:"Highlight passthrough nodes wider than this"`
}

// RelaysplitRenderOutput defines the output for relaysplit_render tool.
type RelaysplitRenderOutput struct {
	Format    string      `json:"format"`
	Graph     interface{} `json:"graph" jsonschema:"DOT source or JSON summary"`
	NodeCount int         `json:"node_count"`
	EdgeCount int         `json:"edge_count"`
}

// RelaysplitListInput defines the input for relaysplit_list tool.
type RelaysplitListInput struct {
	Runs  bool `json:"runs,omitempty" jsonschema:"List benchmark runs instead of stored graphs"`
	Limit int  `json:"limit,omitempty" jsonschema:"Maximum number of runs to return (0 for all)"`
}

// GraphListItem is a stored graph summary.
type GraphListItem struct {
	Name        string    `json:"name"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Passthrough int       `json:"passthrough"`
	MaxWidth    int       `json:"max_width"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunListItem is a recorded benchmark run.
type RunListItem struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Dimensions  int       `json:"dimensions"`
	NodesBefore int       `json:"nodes_before"`
	NodesAfter  int       `json:"nodes_after"`
	DurationMs  float64   `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// RelaysplitListOutput defines the output for relaysplit_list tool.
type RelaysplitListOutput struct {
	Graphs []GraphListItem `json:"graphs,omitempty"`
	Runs   []RunListItem   `json:"runs,omitempty"`
	Count  int             `json:"count"`
}

// RelaysplitBenchInput defines the input for relaysplit_bench tool.
type RelaysplitBenchInput struct {
	Dimensions int    `json:"dimensions,omitempty" jsonschema:"Vector width D (default 32)"`
	Actions    int    `json:"actions,omitempty" jsonschema:"Number of sequence actions (default 5)"`
	Start      int    `json:"start,omitempty" jsonschema:"Index of the state shown on the vision input"`
	MaxWidth   int    `json:"max_width,omitempty" jsonschema:"Split bound (default 16)"`
	Record     bool   `json:"record,omitempty" jsonschema:"Record the run in the store"`
	Label      string `json:"label,omitempty" jsonschema:"Run label"`
}

// RelaysplitBenchOutput defines the output for relaysplit_bench tool.
type RelaysplitBenchOutput struct {
	RunID       string      `json:"run_id,omitempty"`
	Label       string      `json:"label"`
	NodesBefore int         `json:"nodes_before"`
	NodesAfter  int         `json:"nodes_after"`
	EdgesBefore int         `json:"edges_before"`
	EdgesAfter  int         `json:"edges_after"`
	DurationMs  float64     `json:"duration_ms"`
	Stats       split.Stats `json:"stats"`
	Equivalent  bool        `json:"equivalent"`
}
