package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ctnbench/relaysplit/internal/config"
	"github.com/ctnbench/relaysplit/internal/logging"
	"github.com/ctnbench/relaysplit/internal/sanitize"
	"github.com/ctnbench/relaysplit/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relaysplit",
		Short: "Split oversized passthrough nodes in data-flow graphs",
		Long: `relaysplit rewrites model graphs so that no passthrough node is wider
than a maximum width, without changing the linear map between the real
computing nodes.

Graphs are read from YAML or JSON documents. Split results can be verified,
rendered, saved to a local SQLite store and served to agents over MCP.`,
		SilenceUsage: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		newVersionCmd(),
		newSplitCmd(),
		newStatsCmd(),
		newVerifyCmd(),
		newGraphCmd(),
		newBenchCmd(),
		newStoreCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	cmd.PersistentFlags().String("config", "", "Config file (default ~/.relaysplit/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")
	cmd.PersistentFlags().String("db", "", "Graph store database path")
}

// loadConfig resolves configuration from the config file, the environment
// and the global flags, in increasing priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

func openStore(cfg *config.Config) (*store.SQLiteGraphStore, error) {
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteGraphStore(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// checkGraphName rejects store names that sanitizing would change.
func checkGraphName(name string) error {
	if clean := sanitize.GraphName(name); clean != name {
		return fmt.Errorf("invalid graph name %q: use letters, digits, '-', '_' or '.'", name)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
