package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ctnbench/relaysplit/internal/backup"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/store"
	"github.com/spf13/cobra"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage saved graphs and benchmark runs",
		Long: `Save, list, show and delete named graph snapshots in the local store.

The store is a SQLite database at ~/.relaysplit/relaysplit.db unless
--db or store.path in the config says otherwise.

Examples:
  relaysplit store save model model.yaml
  relaysplit store list
  relaysplit store list --runs --limit 5
  relaysplit store show model --format json
  relaysplit store delete model
  relaysplit store backup --keep 5
  relaysplit store restore ~/.relaysplit/backups/relaysplit-backup-20260101-120000.rsbak`,
	}

	cmd.AddCommand(
		newStoreSaveCmd(),
		newStoreListCmd(),
		newStoreShowCmd(),
		newStoreDeleteCmd(),
		newStoreBackupCmd(),
		newStoreRestoreCmd(),
	)
	return cmd
}

func newStoreSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME FILE",
		Short: "Save a graph file under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			jsonOut, _ := cmd.Flags().GetBool("json")
			if err := checkGraphName(name); err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			g, err := graphio.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveGraph(cmd.Context(), name, g); err != nil {
				return fmt.Errorf("save graph: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"status": "saved",
					"name":   name,
					"counts": g.Count(),
				})
			}
			c := g.Count()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q (%d nodes, %d edges)\n", name, c.Nodes, c.Edges)
			return nil
		},
	}
}

func newStoreListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved graphs or benchmark runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			runs, _ := cmd.Flags().GetBool("runs")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			if runs {
				list, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if jsonOut {
					return writeJSON(w, map[string]interface{}{"runs": emptyIfNil(list), "count": len(list)})
				}
				if len(list) == 0 {
					fmt.Fprintln(w, "No benchmark runs recorded.")
					return nil
				}
				for _, r := range list {
					fmt.Fprintln(w, formatRun(r))
				}
				return nil
			}

			list, err := st.ListGraphs(cmd.Context())
			if err != nil {
				return fmt.Errorf("list graphs: %w", err)
			}
			if jsonOut {
				return writeJSON(w, map[string]interface{}{"graphs": emptyIfNil(list), "count": len(list)})
			}
			if len(list) == 0 {
				fmt.Fprintln(w, "No graphs saved.")
				return nil
			}
			for _, info := range list {
				fmt.Fprintf(w, "%-24s %5d nodes %5d edges  widest passthrough %d  (updated %s)\n",
					info.Name, info.Nodes, info.Edges, info.MaxWidth,
					info.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().Bool("runs", false, "List benchmark runs instead of graphs")
	cmd.Flags().Int("limit", 0, "Maximum number of runs (0 for all)")
	return cmd
}

func newStoreShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd, "", cfg.Output.Format)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			g, err := st.LoadGraph(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no graph named %q", args[0])
			}
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}
			return graphio.Encode(cmd.OutOrStdout(), g, format)
		},
	}

	cmd.Flags().String("format", "", "Output format: yaml or json (default from config)")
	return cmd
}

func newStoreDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteGraph(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no graph named %q", args[0])
				}
				return fmt.Errorf("delete graph: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "deleted", "name": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
			return nil
		},
	}
}

func newStoreBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive every saved graph and benchmark run",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			out, _ := cmd.Flags().GetString("out")
			keep, _ := cmd.Flags().GetInt("keep")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				dir, err := backup.DefaultBackupDir()
				if err != nil {
					return err
				}
				out = backup.GenerateBackupPath(dir)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			header, err := backup.Backup(cmd.Context(), st, out)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			if keep > 0 {
				if err := backup.RotateBackups(filepath.Dir(out), keep); err != nil {
					return fmt.Errorf("rotate backups: %w", err)
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"status": "backed_up",
					"path":   out,
					"header": header,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d graph(s) and %d run(s) to %s\n",
				header.GraphCount, header.RunCount, out)
			return nil
		},
	}

	cmd.Flags().String("out", "", "Backup file (default ~/.relaysplit/backups/relaysplit-backup-<time>.rsbak)")
	cmd.Flags().Int("keep", 0, "Keep only the newest N backups in the output directory (0 keeps all)")
	return cmd
}

func newStoreRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Restore graphs and runs from a backup",
		Long: `Restore graphs and runs from a backup file after verifying its checksum.

By default graphs whose name already exists are kept; --replace overwrites
them. Runs already present are never duplicated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			replace, _ := cmd.Flags().GetBool("replace")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			mode := backup.RestoreMerge
			if replace {
				mode = backup.RestoreReplace
			}
			result, err := backup.Restore(cmd.Context(), st, args[0], mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d graph(s) (%d skipped) and %d run(s) (%d skipped)\n",
				result.GraphsRestored, result.GraphsSkipped, result.RunsRestored, result.RunsSkipped)
			return nil
		},
	}

	cmd.Flags().Bool("replace", false, "Overwrite graphs that already exist")
	return cmd
}

// emptyIfNil keeps JSON output as [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
