// Package mcp provides an MCP (Model Context Protocol) server exposing
// passthrough splitting, graph statistics, rendering and benchmarks as tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctnbench/relaysplit/internal/ratelimit"
	"github.com/ctnbench/relaysplit/internal/split"
	"github.com/ctnbench/relaysplit/internal/store"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server and provides relaysplit tools.
type Server struct {
	server       *sdk.Server
	store        store.GraphStore
	maxWidth     int
	idStyle      string
	logger       *slog.Logger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "relaysplit")
	Version string // Server version

	// Store holds named graphs and benchmark runs. The server closes it.
	Store store.GraphStore

	// MaxWidth is the split bound used when a tool call does not set one.
	MaxWidth int

	// IDStyle selects replacement id generation: "uuid" or "sequential".
	IDStyle string

	// Limits overrides the default per-tool rate limits.
	Limits map[string]ratelimit.Rule

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with relaysplit tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("graph store is required")
	}
	maxWidth := cfg.MaxWidth
	if maxWidth == 0 {
		maxWidth = split.DefaultMaxWidth
	}
	if maxWidth < 0 {
		return nil, fmt.Errorf("%w: %d", split.ErrInvalidWidth, maxWidth)
	}
	if _, err := split.NewIDGenerator(cfg.IDStyle); err != nil {
		return nil, err
	}
	limiters, err := ratelimit.NewToolLimiters(cfg.Limits)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        cfg.Store,
		maxWidth:     maxWidth,
		idStyle:      cfg.IDStyle,
		logger:       logger,
		toolLimiters: limiters,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir, logger)
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close closes the store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
