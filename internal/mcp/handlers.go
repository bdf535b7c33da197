package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctnbench/relaysplit/internal/bench"
	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/ratelimit"
	"github.com/ctnbench/relaysplit/internal/sanitize"
	"github.com/ctnbench/relaysplit/internal/split"
	"github.com/ctnbench/relaysplit/internal/visualization"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools registers all relaysplit MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "relaysplit_split",
		Description: "Split passthrough nodes wider than max_width into narrower relays, preserving the graph's behavior",
	}, s.handleRelaysplitSplit)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "relaysplit_stats",
		Description: "Count scopes, nodes and edges and list passthrough nodes a split would replace",
	}, s.handleRelaysplitStats)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "relaysplit_render",
		Description: "Render a graph as Graphviz DOT or a JSON summary",
	}, s.handleRelaysplitRender)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "relaysplit_list",
		Description: "List stored graphs or recorded benchmark runs",
	}, s.handleRelaysplitList)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "relaysplit_bench",
		Description: "Build the routed sequence benchmark model, split it and report timing",
	}, s.handleRelaysplitBench)
}

// loadGraph resolves a tool's graph from an inline document or the store.
// It returns the format to use for any graph written back.
func (s *Server) loadGraph(ctx context.Context, src graphSource) (*graph.Graph, graphio.Format, error) {
	format := graphio.FormatYAML
	if src.format != "" {
		f, err := graphio.ParseFormat(src.format)
		if err != nil {
			return nil, "", err
		}
		format = f
	}

	switch {
	case src.graph != "" && src.name != "":
		return nil, "", errors.New("set either graph or name, not both")
	case src.name != "":
		g, err := s.store.LoadGraph(ctx, src.name)
		if err != nil {
			return nil, "", err
		}
		return g, format, nil
	case src.graph != "":
		g, err := graphio.Unmarshal([]byte(src.graph), format)
		if err != nil {
			return nil, "", err
		}
		return g, format, nil
	default:
		return nil, "", errors.New("graph or name is required")
	}
}

func (s *Server) width(requested int) (int, error) {
	if requested == 0 {
		return s.maxWidth, nil
	}
	if requested < 0 {
		return 0, fmt.Errorf("%w: %d", split.ErrInvalidWidth, requested)
	}
	return requested, nil
}

// handleRelaysplitSplit implements the relaysplit_split tool.
func (s *Server) handleRelaysplitSplit(ctx context.Context, req *sdk.CallToolRequest, args RelaysplitSplitInput) (_ *sdk.CallToolResult, _ RelaysplitSplitOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("relaysplit_split", start, retErr, sanitizeToolParams(map[string]interface{}{
			"graph":     args.Graph,
			"name":      args.Name,
			"format":    args.Format,
			"max_width": args.MaxWidth,
			"verify":    args.Verify,
			"save_as":   args.SaveAs,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "relaysplit_split"); err != nil {
		return nil, RelaysplitSplitOutput{}, err
	}

	saveAs := sanitize.GraphName(args.SaveAs)
	if args.SaveAs != "" && saveAs == "" {
		return nil, RelaysplitSplitOutput{}, fmt.Errorf("invalid save_as %q: use letters, digits, '-', '_' or '.'", args.SaveAs)
	}

	g, format, err := s.loadGraph(ctx, graphSource{graph: args.Graph, format: args.Format, name: args.Name})
	if err != nil {
		return nil, RelaysplitSplitOutput{}, fmt.Errorf("load graph: %w", err)
	}
	maxWidth, err := s.width(args.MaxWidth)
	if err != nil {
		return nil, RelaysplitSplitOutput{}, err
	}
	ids, err := split.NewIDGenerator(s.idStyle)
	if err != nil {
		return nil, RelaysplitSplitOutput{}, err
	}
	splitter, err := split.New(split.Options{MaxWidth: maxWidth, IDs: ids, Logger: s.logger})
	if err != nil {
		return nil, RelaysplitSplitOutput{}, err
	}

	var before *graph.Graph
	if args.Verify {
		before = g.Clone()
	}
	out := RelaysplitSplitOutput{Before: g.Count()}

	stats, err := splitter.Split(g)
	if err != nil {
		return nil, RelaysplitSplitOutput{}, fmt.Errorf("split: %w", err)
	}
	out.Stats = stats
	out.After = g.Count()

	if args.Verify {
		diff, err := split.Equivalent(before, g, split.DefaultTolerance)
		if err != nil {
			return nil, RelaysplitSplitOutput{}, fmt.Errorf("verify: %w", err)
		}
		out.Verified = len(diff) == 0
		for _, p := range diff {
			out.Mismatches = append(out.Mismatches, p.String())
		}
	}

	data, err := graphio.Marshal(g, format)
	if err != nil {
		return nil, RelaysplitSplitOutput{}, fmt.Errorf("encode graph: %w", err)
	}
	out.Graph = string(data)

	if saveAs != "" {
		if err := s.store.SaveGraph(ctx, saveAs, g); err != nil {
			return nil, RelaysplitSplitOutput{}, err
		}
		out.SavedAs = saveAs
	}

	return nil, out, nil
}

// handleRelaysplitStats implements the relaysplit_stats tool.
func (s *Server) handleRelaysplitStats(ctx context.Context, req *sdk.CallToolRequest, args RelaysplitStatsInput) (_ *sdk.CallToolResult, _ RelaysplitStatsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("relaysplit_stats", start, retErr, sanitizeToolParams(map[string]interface{}{
			"graph":     args.Graph,
			"name":      args.Name,
			"format":    args.Format,
			"max_width": args.MaxWidth,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "relaysplit_stats"); err != nil {
		return nil, RelaysplitStatsOutput{}, err
	}

	g, _, err := s.loadGraph(ctx, graphSource{graph: args.Graph, format: args.Format, name: args.Name})
	if err != nil {
		return nil, RelaysplitStatsOutput{}, fmt.Errorf("load graph: %w", err)
	}
	maxWidth, err := s.width(args.MaxWidth)
	if err != nil {
		return nil, RelaysplitStatsOutput{}, err
	}

	out := RelaysplitStatsOutput{
		Name:      g.Name,
		Counts:    g.Count(),
		Oversized: make([]OversizedNode, 0),
	}
	for _, n := range g.Oversized(maxWidth) {
		out.Oversized = append(out.Oversized, OversizedNode{
			ID:     n.ID,
			Label:  n.Label,
			SizeIn: n.SizeIn,
			Parts:  (n.SizeIn + maxWidth - 1) / maxWidth,
		})
	}
	return nil, out, nil
}

// handleRelaysplitRender implements the relaysplit_render tool.
func (s *Server) handleRelaysplitRender(ctx context.Context, req *sdk.CallToolRequest, args RelaysplitRenderInput) (_ *sdk.CallToolResult, _ RelaysplitRenderOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("relaysplit_render", start, retErr, sanitizeToolParams(map[string]interface{}{
			"graph":     args.Graph,
			"name":      args.Name,
			"format":    args.Output,
			"max_width": args.MaxWidth,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "relaysplit_render"); err != nil {
		return nil, RelaysplitRenderOutput{}, err
	}

	g, _, err := s.loadGraph(ctx, graphSource{graph: args.Graph, format: args.Format, name: args.Name})
	if err != nil {
		return nil, RelaysplitRenderOutput{}, fmt.Errorf("load graph: %w", err)
	}

	output := args.Output
	if output == "" {
		output = string(visualization.FormatJSON)
	}
	format, err := visualization.ParseFormat(output)
	if err != nil {
		return nil, RelaysplitRenderOutput{}, err
	}

	c := g.Count()
	out := RelaysplitRenderOutput{
		Format:    string(format),
		NodeCount: c.Nodes,
		EdgeCount: c.Edges,
	}
	switch format {
	case visualization.FormatDOT:
		out.Graph = visualization.RenderDOT(g, args.MaxWidth)
	default:
		out.Graph = visualization.RenderJSON(g, args.MaxWidth)
	}
	return nil, out, nil
}

// handleRelaysplitList implements the relaysplit_list tool.
func (s *Server) handleRelaysplitList(ctx context.Context, req *sdk.CallToolRequest, args RelaysplitListInput) (_ *sdk.CallToolResult, _ RelaysplitListOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("relaysplit_list", start, retErr, sanitizeToolParams(map[string]interface{}{
			"runs":  args.Runs,
			"limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "relaysplit_list"); err != nil {
		return nil, RelaysplitListOutput{}, err
	}

	if args.Runs {
		runs, err := s.store.ListRuns(ctx, args.Limit)
		if err != nil {
			return nil, RelaysplitListOutput{}, err
		}
		out := RelaysplitListOutput{Runs: make([]RunListItem, 0, len(runs)), Count: len(runs)}
		for _, r := range runs {
			out.Runs = append(out.Runs, RunListItem{
				ID:          r.ID,
				Label:       r.Label,
				Dimensions:  r.Dimensions,
				NodesBefore: r.NodesBefore,
				NodesAfter:  r.NodesAfter,
				DurationMs:  float64(r.Duration) / float64(time.Millisecond),
				CreatedAt:   r.CreatedAt,
			})
		}
		return nil, out, nil
	}

	graphs, err := s.store.ListGraphs(ctx)
	if err != nil {
		return nil, RelaysplitListOutput{}, err
	}
	out := RelaysplitListOutput{Graphs: make([]GraphListItem, 0, len(graphs)), Count: len(graphs)}
	for _, info := range graphs {
		out.Graphs = append(out.Graphs, GraphListItem{
			Name:        info.Name,
			Nodes:       info.Nodes,
			Edges:       info.Edges,
			Passthrough: info.Passthrough,
			MaxWidth:    info.MaxWidth,
			UpdatedAt:   info.UpdatedAt,
		})
	}
	return nil, out, nil
}

// handleRelaysplitBench implements the relaysplit_bench tool.
func (s *Server) handleRelaysplitBench(ctx context.Context, req *sdk.CallToolRequest, args RelaysplitBenchInput) (_ *sdk.CallToolResult, _ RelaysplitBenchOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("relaysplit_bench", start, retErr, sanitizeToolParams(map[string]interface{}{
			"dimensions": args.Dimensions,
			"actions":    args.Actions,
			"start":      args.Start,
			"max_width":  args.MaxWidth,
			"record":     args.Record,
			"label":      args.Label,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "relaysplit_bench"); err != nil {
		return nil, RelaysplitBenchOutput{}, err
	}

	p := bench.DefaultParams()
	if args.Dimensions != 0 {
		p.Dimensions = args.Dimensions
	}
	if args.Actions != 0 {
		p.Actions = args.Actions
	}
	p.Start = args.Start
	p.MaxWidth = s.maxWidth
	if args.MaxWidth != 0 {
		p.MaxWidth = args.MaxWidth
	}

	opts := bench.Options{Label: sanitize.Label(args.Label), Verify: true, Logger: s.logger}
	if args.Record {
		opts.Store = s.store
	}
	res, err := bench.Run(ctx, p, opts)
	if err != nil {
		return nil, RelaysplitBenchOutput{}, err
	}

	return nil, RelaysplitBenchOutput{
		RunID:       res.RunID,
		Label:       res.Label,
		NodesBefore: res.NodesBefore,
		NodesAfter:  res.NodesAfter,
		EdgesBefore: res.EdgesBefore,
		EdgesAfter:  res.EdgesAfter,
		DurationMs:  float64(res.Stats.Duration) / float64(time.Millisecond),
		Stats:       res.Stats,
		Equivalent:  len(res.Mismatches) == 0,
	}, nil
}
