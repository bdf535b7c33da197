// Package backup exports the graph store to a single archive file and
// restores it again.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/store"
)

// Archive is the decompressed payload of a backup file.
type Archive struct {
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	Graphs    []GraphEntry `json:"graphs"`
	Runs      []store.Run  `json:"runs"`
}

// GraphEntry is one stored graph, kept as a JSON graph document.
type GraphEntry struct {
	Name     string          `json:"name"`
	Document json.RawMessage `json:"document"`
}

// DefaultBackupDir returns the default backup directory (~/.relaysplit/backups/).
func DefaultBackupDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".relaysplit", "backups"), nil
}

// Backup writes every stored graph and run to outputPath.
func Backup(ctx context.Context, graphStore store.GraphStore, outputPath string) (*Header, error) {
	infos, err := graphStore.ListGraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	archive := &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Graphs:    make([]GraphEntry, 0, len(infos)),
	}
	for _, info := range infos {
		g, err := graphStore.LoadGraph(ctx, info.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph %s: %w", info.Name, err)
		}
		doc, err := graphio.Marshal(g, graphio.FormatJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph %s: %w", info.Name, err)
		}
		archive.Graphs = append(archive.Graphs, GraphEntry{Name: info.Name, Document: doc})
	}

	archive.Runs, err = graphStore.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return Write(outputPath, archive)
}

// RestoreMode controls how restore handles existing data.
type RestoreMode string

const (
	// RestoreMerge skips graphs whose name already exists (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace overwrites graphs with the same name.
	RestoreReplace RestoreMode = "replace"
)

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	GraphsRestored int `json:"graphs_restored"`
	GraphsSkipped  int `json:"graphs_skipped"`
	RunsRestored   int `json:"runs_restored"`
	RunsSkipped    int `json:"runs_skipped"`
}

// Restore imports graphs and runs from a backup file into the store. Runs
// already present (by id) are always skipped.
func Restore(ctx context.Context, graphStore store.GraphStore, inputPath string, mode RestoreMode) (*RestoreResult, error) {
	archive, err := Read(inputPath)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	for _, entry := range archive.Graphs {
		if mode != RestoreReplace {
			_, err := graphStore.LoadGraph(ctx, entry.Name)
			if err == nil {
				result.GraphsSkipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("failed to check existing graph %s: %w", entry.Name, err)
			}
		}

		g, err := graphio.Unmarshal(entry.Document, graphio.FormatJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode graph %s: %w", entry.Name, err)
		}
		if err := graphStore.SaveGraph(ctx, entry.Name, g); err != nil {
			return nil, fmt.Errorf("failed to restore graph %s: %w", entry.Name, err)
		}
		result.GraphsRestored++
	}

	existing, err := graphStore.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.ID] = true
	}
	// Oldest first so restored history keeps its order.
	for i := len(archive.Runs) - 1; i >= 0; i-- {
		run := archive.Runs[i]
		if seen[run.ID] {
			result.RunsSkipped++
			continue
		}
		if _, err := graphStore.RecordRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to restore run %s: %w", run.ID, err)
		}
		seen[run.ID] = true
		result.RunsRestored++
	}

	return result, nil
}

const filePrefix = "relaysplit-backup-"

// GenerateBackupPath creates a timestamped backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s%s%s", filePrefix, ts, FileExt))
}

// RotateBackups keeps only the most recent N backups, deleting older ones.
func RotateBackups(dir string, keepN int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), FileExt) {
			backups = append(backups, e)
		}
	}

	// Newest first; the timestamp is in the name.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Name() > backups[j].Name()
	})

	if len(backups) > keepN {
		for _, b := range backups[keepN:] {
			path := filepath.Join(dir, b.Name())
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove old backup %s: %w", b.Name(), err)
			}
		}
	}

	return nil
}
