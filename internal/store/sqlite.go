package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteGraphStore implements GraphStore using SQLite for persistence.
type SQLiteGraphStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteGraphStore opens (or creates) the database at dbPath, creating
// its parent directory when needed.
func NewSQLiteGraphStore(dbPath string) (*SQLiteGraphStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteGraphStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteGraphStore) Path() string {
	return s.dbPath
}

// SaveGraph stores g under name, keeping the original creation time on overwrite.
func (s *SQLiteGraphStore) SaveGraph(ctx context.Context, name string, g *graph.Graph) error {
	if name == "" {
		return fmt.Errorf("graph name is required")
	}
	doc, err := graphio.Marshal(g, graphio.FormatJSON)
	if err != nil {
		return fmt.Errorf("encode graph %s: %w", name, err)
	}
	info := summarize(name, g)
	now := formatTime(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graphs (name, document, nodes, edges, passthrough, max_width, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			nodes = excluded.nodes,
			edges = excluded.edges,
			passthrough = excluded.passthrough,
			max_width = excluded.max_width,
			updated_at = excluded.updated_at`,
		name, string(doc), info.Nodes, info.Edges, info.Passthrough, info.MaxWidth, now, now)
	if err != nil {
		return fmt.Errorf("failed to save graph %s: %w", name, err)
	}
	return nil
}

// LoadGraph decodes the named graph.
func (s *SQLiteGraphStore) LoadGraph(ctx context.Context, name string) (*graph.Graph, error) {
	s.mu.RLock()
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM graphs WHERE name = ?`, name).Scan(&doc)
	s.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", name, err)
	}
	return graphio.Unmarshal([]byte(doc), graphio.FormatJSON)
}

// ListGraphs returns stored graph summaries ordered by name.
func (s *SQLiteGraphStore) ListGraphs(ctx context.Context) ([]GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, nodes, edges, passthrough, max_width, created_at, updated_at
		FROM graphs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	var out []GraphInfo
	for rows.Next() {
		var info GraphInfo
		var created, updated string
		if err := rows.Scan(&info.Name, &info.Nodes, &info.Edges, &info.Passthrough, &info.MaxWidth, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan graph row: %w", err)
		}
		info.CreatedAt = parseTime(created)
		info.UpdatedAt = parseTime(updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteGraph removes the named graph.
func (s *SQLiteGraphStore) DeleteGraph(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete graph %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete graph %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("graph %s: %w", name, ErrNotFound)
	}
	return nil
}

// RecordRun appends a benchmark run.
func (s *SQLiteGraphStore) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, dimensions, actions, max_width,
			nodes_before, nodes_after, edges_before, edges_after, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.Dimensions, run.Actions, run.MaxWidth,
		run.NodesBefore, run.NodesAfter, run.EdgesBefore, run.EdgesAfter,
		int64(run.Duration), formatTime(run.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteGraphStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, label, dimensions, actions, max_width,
			nodes_before, nodes_after, edges_before, edges_after, duration_ns, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var durationNS int64
		var created string
		if err := rows.Scan(&r.ID, &r.Label, &r.Dimensions, &r.Actions, &r.MaxWidth,
			&r.NodesBefore, &r.NodesAfter, &r.EdgesBefore, &r.EdgesAfter, &durationNS, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Duration = time.Duration(durationNS)
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteGraphStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// timeLayout has fixed-width fractions so timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
