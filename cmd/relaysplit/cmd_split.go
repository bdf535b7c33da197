package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/logging"
	"github.com/ctnbench/relaysplit/internal/split"
	"github.com/spf13/cobra"
)

func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Split oversized passthrough nodes in a graph",
		Long: `Split every passthrough node wider than --max-width into narrower
replacement nodes and redistribute the edges that touched it.

The result is written to --out, or to stdout when --out is not set. With
--verify the linear map between non-passthrough nodes is compared before
and after, and the command fails if any source/sink pair changed.

At debug or trace log level one event per split node is appended to
splits.jsonl next to the output file.

Examples:
  relaysplit split model.yaml --out model.split.yaml
  relaysplit split model.json --max-width 8 --verify --save model-8`,
		Args: cobra.ExactArgs(1),
		RunE: runSplit,
	}

	cmd.Flags().Int("max-width", split.DefaultMaxWidth, "Largest passthrough width left unsplit")
	cmd.Flags().String("out", "", "Output file (default stdout)")
	cmd.Flags().String("format", "", "Output format: yaml or json (default from --out extension or config)")
	cmd.Flags().Bool("verify", false, "Check that the split preserves the linear map")
	cmd.Flags().String("save", "", "Also save the split graph in the store under this name")
	cmd.Flags().String("ids", "", "Replacement id style: uuid or sequential (default from config)")

	return cmd
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	maxWidth := cfg.Split.MaxWidth
	if cmd.Flags().Changed("max-width") {
		maxWidth, _ = cmd.Flags().GetInt("max-width")
	}
	idStyle := cfg.Split.IDStyle
	if cmd.Flags().Changed("ids") {
		idStyle, _ = cmd.Flags().GetString("ids")
	}
	out, _ := cmd.Flags().GetString("out")
	verify, _ := cmd.Flags().GetBool("verify")
	saveAs, _ := cmd.Flags().GetString("save")
	jsonOut, _ := cmd.Flags().GetBool("json")

	format, err := outputFormat(cmd, out, cfg.Output.Format)
	if err != nil {
		return err
	}
	if saveAs != "" {
		if err := checkGraphName(saveAs); err != nil {
			return err
		}
	}
	ids, err := split.NewIDGenerator(idStyle)
	if err != nil {
		return err
	}

	g, err := graphio.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var before *graph.Graph
	if verify {
		before = g.Clone()
	}

	decisionDir := filepath.Dir(args[0])
	if out != "" {
		decisionDir = filepath.Dir(out)
	}
	decisions := logging.NewDecisionLogger(decisionDir, cfg.Logging.Level)
	defer decisions.Close()

	s, err := split.New(split.Options{
		MaxWidth:  maxWidth,
		IDs:       ids,
		Logger:    logger,
		Decisions: decisions,
	})
	if err != nil {
		return err
	}
	stats, err := s.Split(g)
	if err != nil {
		return fmt.Errorf("split %s: %w", args[0], err)
	}

	if verify {
		mismatches, err := split.Equivalent(before, g, split.DefaultTolerance)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if len(mismatches) > 0 {
			return fmt.Errorf("split changed %d source/sink maps: %s", len(mismatches), joinPairs(mismatches))
		}
	}

	if saveAs != "" {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveGraph(cmd.Context(), saveAs, g); err != nil {
			return fmt.Errorf("save graph: %w", err)
		}
	}

	if out == "" {
		return graphio.Encode(cmd.OutOrStdout(), g, format)
	}
	if err := graphio.WriteFile(out, g, format); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
			"status":   "split",
			"output":   out,
			"verified": verify,
			"saved_as": saveAs,
			"stats":    stats,
			"counts":   g.Count(),
		})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Split %d node(s) into %d replacement(s); wrote %s\n", stats.NodesSplit, stats.NodesCreated, out)
	fmt.Fprintf(w, "  edges: %d removed, %d created, %d pruned\n", stats.EdgesRemoved, stats.EdgesCreated, stats.EdgesPruned)
	if verify {
		fmt.Fprintln(w, "  verified: linear map unchanged")
	}
	if saveAs != "" {
		fmt.Fprintf(w, "  saved as %q\n", saveAs)
	}
	return nil
}

// outputFormat picks the --format flag, then the --out extension, then the
// configured default.
func outputFormat(cmd *cobra.Command, out, fallback string) (graphio.Format, error) {
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		return graphio.ParseFormat(f)
	}
	if out != "" {
		return graphio.FormatForPath(out), nil
	}
	return graphio.ParseFormat(fallback)
}

func joinPairs(pairs []split.Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Show graph counts and oversized passthrough nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			maxWidth := cfg.Split.MaxWidth
			if cmd.Flags().Changed("max-width") {
				maxWidth, _ = cmd.Flags().GetInt("max-width")
			}
			if maxWidth <= 0 {
				return fmt.Errorf("%w: %d", split.ErrInvalidWidth, maxWidth)
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, err := graphio.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			type oversized struct {
				ID     string `json:"id"`
				Label  string `json:"label,omitempty"`
				SizeIn int    `json:"size_in"`
				Parts  int    `json:"parts"`
			}
			var over []oversized
			for _, n := range g.Oversized(maxWidth) {
				over = append(over, oversized{
					ID:     n.ID,
					Label:  n.Label,
					SizeIn: n.SizeIn,
					Parts:  (n.SizeIn + maxWidth - 1) / maxWidth,
				})
			}
			counts := g.Count()

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"name":      g.Name,
					"max_width": maxWidth,
					"counts":    counts,
					"oversized": over,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Graph %s\n", g.Name)
			fmt.Fprintf(w, "  scopes:      %d\n", counts.Scopes)
			fmt.Fprintf(w, "  nodes:       %d (%d passthrough)\n", counts.Nodes, counts.Passthrough)
			fmt.Fprintf(w, "  edges:       %d\n", counts.Edges)
			fmt.Fprintf(w, "  widest:      %d\n", counts.MaxWidth)
			if len(over) == 0 {
				fmt.Fprintf(w, "No passthrough node is wider than %d.\n", maxWidth)
				return nil
			}
			fmt.Fprintf(w, "Oversized passthrough nodes (max width %d):\n", maxWidth)
			for _, o := range over {
				name := o.ID
				if o.Label != "" {
					name = fmt.Sprintf("%s (%s)", o.ID, o.Label)
				}
				fmt.Fprintf(w, "  %-30s %4d -> %d parts\n", name, o.SizeIn, o.Parts)
			}
			return nil
		},
	}

	cmd.Flags().Int("max-width", split.DefaultMaxWidth, "Largest passthrough width left unsplit")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify BEFORE AFTER",
		Short: "Check that two graphs realize the same linear map",
		Long: `Compose every path through passthrough nodes in both graphs and compare
the resulting matrices for each non-passthrough source/sink pair.

Exits with an error when any pair differs by more than --tol.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, _ := cmd.Flags().GetFloat64("tol")
			jsonOut, _ := cmd.Flags().GetBool("json")

			before, err := graphio.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			after, err := graphio.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}

			mismatches, err := split.Equivalent(before, after, tol)
			if err != nil {
				return err
			}

			if jsonOut {
				pairs := make([]string, len(mismatches))
				for i, p := range mismatches {
					pairs[i] = p.String()
				}
				if err := writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"equivalent": len(mismatches) == 0,
					"mismatches": pairs,
				}); err != nil {
					return err
				}
			} else if len(mismatches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Equivalent: every source/sink map matches.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Not equivalent: %d source/sink map(s) differ\n", len(mismatches))
				for _, p := range mismatches {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
				}
			}

			if len(mismatches) > 0 {
				return fmt.Errorf("graphs differ on %d source/sink pair(s)", len(mismatches))
			}
			return nil
		},
	}

	cmd.Flags().Float64("tol", split.DefaultTolerance, "Entry-wise tolerance")
	return cmd
}
