// Package config provides unified configuration loading for relaysplit.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctnbench/relaysplit/internal/ratelimit"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding the config file and database.
const DirName = ".relaysplit"

// Config contains all relaysplit configuration settings.
type Config struct {
	// Split contains settings for the passthrough splitter.
	Split SplitConfig `json:"split" yaml:"split"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for the graph snapshot database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Output contains settings for written graph documents.
	Output OutputConfig `json:"output" yaml:"output"`

	// MCP contains settings for the MCP server.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`
}

// SplitConfig configures node splitting.
type SplitConfig struct {
	// MaxWidth is the largest passthrough dimensionality left unsplit.
	MaxWidth int `json:"max_width" yaml:"max_width"`

	// IDStyle selects how replacement ids are generated: "uuid" or "sequential".
	IDStyle string `json:"id_style" yaml:"id_style"`
}

// LoggingConfig configures relaysplit's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to splits.jsonl next to the output.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Supports ${VAR} syntax for env vars.
	// Empty means ~/.relaysplit/relaysplit.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// OutputConfig configures how graphs are written.
type OutputConfig struct {
	// Format is "yaml" or "json".
	Format string `json:"format" yaml:"format"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	// Limits overrides per-tool rate limits, keyed by tool name without
	// the relaysplit_ prefix ("split", "bench", ...).
	Limits map[string]RateLimitConfig `json:"limits,omitempty" yaml:"limits,omitempty"`
}

// RateLimitConfig is one tool's token bucket budget.
type RateLimitConfig struct {
	PerMinute float64 `json:"per_minute" yaml:"per_minute"`
	Burst     int     `json:"burst" yaml:"burst"`
}

// Rules converts the configured limits for ratelimit.NewToolLimiters.
func (c MCPConfig) Rules() map[string]ratelimit.Rule {
	if len(c.Limits) == 0 {
		return nil
	}
	rules := make(map[string]ratelimit.Rule, len(c.Limits))
	for name, l := range c.Limits {
		rules[name] = ratelimit.Rule{PerMinute: l.PerMinute, Burst: l.Burst}
	}
	return rules
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Split: SplitConfig{
			MaxWidth: 16,
			IDStyle:  "uuid",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Format: "yaml",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.relaysplit/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, DirName, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFrom loads path instead of the default config file, then applies
// environment overrides. An empty path behaves like Load.
func LoadFrom(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Split.MaxWidth <= 0 {
		return fmt.Errorf("max_width must be positive, got %d", c.Split.MaxWidth)
	}

	validStyles := map[string]bool{"": true, "uuid": true, "sequential": true}
	if !validStyles[c.Split.IDStyle] {
		return fmt.Errorf("invalid id_style: %s (valid: uuid, sequential)", c.Split.IDStyle)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	validFormats := map[string]bool{"yaml": true, "json": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s (valid: yaml, json)", c.Output.Format)
	}

	if _, err := ratelimit.NewToolLimiters(c.MCP.Rules()); err != nil {
		return fmt.Errorf("invalid mcp limits: %w", err)
	}

	return nil
}

// DatabasePath returns the configured store path or the default under the
// user's home directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "relaysplit.db"), nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("RELAYSPLIT_MAX_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Split.MaxWidth = n
		}
	}

	if v := os.Getenv("RELAYSPLIT_ID_STYLE"); v != "" {
		config.Split.IDStyle = v
	}

	if v := os.Getenv("RELAYSPLIT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("RELAYSPLIT_DB"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("RELAYSPLIT_FORMAT"); v != "" {
		config.Output.Format = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
