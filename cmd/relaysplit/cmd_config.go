package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect relaysplit configuration",
		Long: `Show or validate the effective configuration.

Configuration is read from ~/.relaysplit/config.yaml (or --config), then
RELAYSPLIT_* environment variables, then global flags.

Examples:
  relaysplit config show
  relaysplit config validate --config ./relaysplit.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dbPath, err := cfg.DatabasePath()
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"config":        cfg,
					"database_path": dbPath,
				})
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprint(w, string(data))
			fmt.Fprintf(w, "# database: %s\n", dbPath)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			// loadConfig validates.
			if _, err := loadConfig(cmd); err != nil {
				if jsonOut {
					if werr := writeJSON(cmd.OutOrStdout(), map[string]interface{}{
						"valid": false,
						"error": err.Error(),
					}); werr != nil {
						return werr
					}
				}
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"valid": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}
}
