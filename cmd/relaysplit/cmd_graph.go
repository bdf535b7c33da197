package main

import (
	"fmt"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [FILE]",
		Short: "Visualize a graph",
		Long: `Output a graph in DOT (Graphviz) or JSON format.

Scopes become nested clusters and passthrough nodes wider than the max
width are highlighted. The graph is read from FILE or, with --name, from
the store.

Examples:
  relaysplit graph model.yaml | dot -Tsvg > model.svg
  relaysplit graph --name model-8 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			name, _ := cmd.Flags().GetString("name")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			maxWidth := cfg.Split.MaxWidth
			if cmd.Flags().Changed("max-width") {
				maxWidth, _ = cmd.Flags().GetInt("max-width")
			}

			vf, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}

			var g *graph.Graph
			switch {
			case len(args) == 1 && name != "":
				return fmt.Errorf("pass either FILE or --name, not both")
			case len(args) == 1:
				g, err = graphio.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[0], err)
				}
			case name != "":
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				g, err = st.LoadGraph(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("load graph %q: %w", name, err)
				}
			default:
				return fmt.Errorf("FILE or --name is required")
			}

			switch vf {
			case visualization.FormatDOT:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(g, maxWidth))
				return nil
			default:
				if err := writeJSON(cmd.OutOrStdout(), visualization.RenderJSON(g, maxWidth)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().String("name", "", "Render a stored graph instead of a file")
	cmd.Flags().Int("max-width", 0, "Highlight passthrough nodes wider than this (default from config)")

	return cmd
}
