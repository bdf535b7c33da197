package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ctnbench/relaysplit/internal/bench"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/logging"
	"github.com/ctnbench/relaysplit/internal/sanitize"
	"github.com/ctnbench/relaysplit/internal/split"
	"github.com/ctnbench/relaysplit/internal/store"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	defaults := bench.DefaultParams()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time passthrough splitting on the routed-sequence model",
		Long: `Build the routed-sequence model (vision buffer, state memory, basal
ganglia and a routing thalamus), split a copy of it and report how long
the split took and how the graph changed. The split is always verified.

With --record the run is appended to the store's run history; list it
with 'relaysplit store list --runs'. With --write both graphs are saved
to a directory for inspection.

Examples:
  relaysplit bench
  relaysplit bench --dimensions 64 --max-width 16 --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			jsonOut, _ := cmd.Flags().GetBool("json")
			record, _ := cmd.Flags().GetBool("record")
			label, _ := cmd.Flags().GetString("label")
			writeDir, _ := cmd.Flags().GetString("write")

			p := bench.DefaultParams()
			p.Dimensions, _ = cmd.Flags().GetInt("dimensions")
			p.Actions, _ = cmd.Flags().GetInt("actions")
			p.Start, _ = cmd.Flags().GetInt("start")
			p.Duration, _ = cmd.Flags().GetFloat64("duration")
			p.Seed, _ = cmd.Flags().GetUint64("seed")
			p.MaxWidth = cfg.Split.MaxWidth
			if cmd.Flags().Changed("max-width") {
				p.MaxWidth, _ = cmd.Flags().GetInt("max-width")
			}

			opts := bench.Options{
				Label:  sanitize.Label(label),
				Verify: true,
				Logger: logger,
			}
			if writeDir != "" {
				opts.Decisions = logging.NewDecisionLogger(writeDir, cfg.Logging.Level)
				defer opts.Decisions.Close()
			}
			if record {
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				opts.Store = st
			}

			res, err := bench.Run(cmd.Context(), p, opts)
			if err != nil {
				return err
			}
			if len(res.Mismatches) > 0 {
				return fmt.Errorf("split changed %d source/sink maps", len(res.Mismatches))
			}

			if writeDir != "" {
				if err := writeBenchGraphs(writeDir, res); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printBenchResult(cmd, res, record)
			return nil
		},
	}

	cmd.Flags().Int("dimensions", defaults.Dimensions, "Width D of the state vectors")
	cmd.Flags().Int("actions", defaults.Actions, "Number of actions in the sequence")
	cmd.Flags().Int("start", defaults.Start, "Index of the state shown on the vision input")
	cmd.Flags().Float64("duration", defaults.Duration, "Simulated time in seconds (recorded only)")
	cmd.Flags().Int("max-width", split.DefaultMaxWidth, "Largest passthrough width left unsplit")
	cmd.Flags().Uint64("seed", defaults.Seed, "Seed for the generated state vectors")
	cmd.Flags().String("label", "", "Run label (default d<D>-a<N>)")
	cmd.Flags().Bool("record", false, "Record the run in the store")
	cmd.Flags().String("write", "", "Directory to write the model before and after splitting")

	return cmd
}

func writeBenchGraphs(dir string, res *bench.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	before := filepath.Join(dir, res.Before.Name+".yaml")
	if err := graphio.WriteFile(before, res.Before, graphio.FormatYAML); err != nil {
		return fmt.Errorf("write %s: %w", before, err)
	}
	after := filepath.Join(dir, res.After.Name+".split.yaml")
	if err := graphio.WriteFile(after, res.After, graphio.FormatYAML); err != nil {
		return fmt.Errorf("write %s: %w", after, err)
	}
	return nil
}

func printBenchResult(cmd *cobra.Command, res *bench.Result, recorded bool) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Benchmark %s (D=%d, actions=%d, max width=%d)\n",
		res.Label, res.Params.Dimensions, res.Params.Actions, res.Params.MaxWidth)
	fmt.Fprintf(w, "  nodes:    %d -> %d\n", res.NodesBefore, res.NodesAfter)
	fmt.Fprintf(w, "  edges:    %d -> %d\n", res.EdgesBefore, res.EdgesAfter)
	fmt.Fprintf(w, "  split:    %d node(s), %d pruned sub-transform(s), %d pass(es)\n",
		res.Stats.NodesSplit, res.Stats.EdgesPruned, res.Stats.Iterations)
	fmt.Fprintf(w, "  duration: %s\n", res.Stats.Duration.Round(time.Microsecond))
	fmt.Fprintln(w, "  verified: linear map unchanged")
	if recorded {
		fmt.Fprintf(w, "  recorded: %s\n", res.RunID)
	}
}

// formatRun renders one run history line.
func formatRun(r store.Run) string {
	return fmt.Sprintf("%s  %-16s D=%-4d nodes %d -> %d  edges %d -> %d  %s",
		r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Label, r.Dimensions,
		r.NodesBefore, r.NodesAfter, r.EdgesBefore, r.EdgesAfter, r.Duration.Round(time.Microsecond))
}
