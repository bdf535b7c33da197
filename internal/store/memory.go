package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/google/uuid"
)

type memoryEntry struct {
	info GraphInfo
	doc  []byte
}

// InMemoryGraphStore implements GraphStore for testing and development.
// Graphs are kept encoded so callers never share nodes with the store.
type InMemoryGraphStore struct {
	mu     sync.RWMutex
	graphs map[string]memoryEntry
	runs   []Run
	now    func() time.Time
}

// NewInMemoryGraphStore creates a new in-memory store.
func NewInMemoryGraphStore() *InMemoryGraphStore {
	return &InMemoryGraphStore{
		graphs: make(map[string]memoryEntry),
		now:    time.Now,
	}
}

// SaveGraph stores g under name.
func (s *InMemoryGraphStore) SaveGraph(ctx context.Context, name string, g *graph.Graph) error {
	if name == "" {
		return fmt.Errorf("graph name is required")
	}
	doc, err := graphio.Marshal(g, graphio.FormatJSON)
	if err != nil {
		return fmt.Errorf("encode graph %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := summarize(name, g)
	now := s.now().UTC()
	info.CreatedAt, info.UpdatedAt = now, now
	if prev, ok := s.graphs[name]; ok {
		info.CreatedAt = prev.info.CreatedAt
	}
	s.graphs[name] = memoryEntry{info: info, doc: doc}
	return nil
}

// LoadGraph decodes the named graph.
func (s *InMemoryGraphStore) LoadGraph(ctx context.Context, name string) (*graph.Graph, error) {
	s.mu.RLock()
	entry, ok := s.graphs[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("graph %s: %w", name, ErrNotFound)
	}
	return graphio.Unmarshal(entry.doc, graphio.FormatJSON)
}

// ListGraphs returns stored graph summaries ordered by name.
func (s *InMemoryGraphStore) ListGraphs(ctx context.Context) ([]GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]GraphInfo, 0, len(s.graphs))
	for _, e := range s.graphs {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteGraph removes the named graph.
func (s *InMemoryGraphStore) DeleteGraph(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graphs[name]; !ok {
		return fmt.Errorf("graph %s: %w", name, ErrNotFound)
	}
	delete(s.graphs, name)
	return nil
}

// RecordRun appends a benchmark run.
func (s *InMemoryGraphStore) RecordRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}
	s.runs = append(s.runs, run)
	return run.ID, nil
}

// ListRuns returns runs newest first.
func (s *InMemoryGraphStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryGraphStore) Close() error {
	return nil
}
