package main

import (
	"fmt"
	"path/filepath"

	"github.com/ctnbench/relaysplit/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve relaysplit tools over MCP (stdio)",
		Long: `Run an MCP server on stdin/stdout exposing relaysplit_split,
relaysplit_stats, relaysplit_render, relaysplit_list and relaysplit_bench.

Graphs saved through the tools go to the same store as 'relaysplit store'.
Every tool call is appended to audit.jsonl in the store's directory unless
--no-audit is set. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noAudit, _ := cmd.Flags().GetBool("no-audit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			auditDir := ""
			if !noAudit {
				auditDir = filepath.Dir(st.Path())
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "relaysplit",
				Version:  version,
				Store:    st,
				MaxWidth: cfg.Split.MaxWidth,
				IDStyle:  cfg.Split.IDStyle,
				Limits:   cfg.MCP.Rules(),
				AuditDir: auditDir,
				Logger:   logger,
			})
			if err != nil {
				st.Close()
				return fmt.Errorf("create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "store", st.Path(), "max_width", cfg.Split.MaxWidth)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Bool("no-audit", false, "Do not write the tool-call audit log")
	return cmd
}
