package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctnbench/relaysplit/internal/graph"
	"github.com/ctnbench/relaysplit/internal/graphio"
	"github.com/ctnbench/relaysplit/internal/store"
)

const relayYAML = `
name: %s
scope:
  nodes:
    - {id: src, kind: source, size_out: 4}
    - {id: relay, size_in: 4}
    - {id: ens, kind: ensemble, size_in: 4, size_out: 4}
  edges:
    - {id: in, pre: src, post: relay}
    - {id: out, pre: relay, post: ens, transform: 0.5}
`

func testGraph(t *testing.T, name string) *graph.Graph {
	t.Helper()
	g, err := graphio.Unmarshal([]byte(strings.Replace(relayYAML, "%s", name, 1)), graphio.FormatYAML)
	if err != nil {
		t.Fatalf("parse test graph: %v", err)
	}
	return g
}

func seedStore(t *testing.T) store.GraphStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewInMemoryGraphStore()
	for _, name := range []string{"alpha", "beta"} {
		if err := st.SaveGraph(ctx, name, testGraph(t, name)); err != nil {
			t.Fatalf("SaveGraph(%s): %v", name, err)
		}
	}
	for _, label := range []string{"first", "second"} {
		if _, err := st.RecordRun(ctx, store.Run{Label: label, Dimensions: 32, NodesBefore: 17, NodesAfter: 23}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	return st
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	src := seedStore(t)
	path := filepath.Join(t.TempDir(), "nested", "store"+FileExt)

	header, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if header.GraphCount != 2 || header.RunCount != 2 {
		t.Errorf("header counts = %d graphs, %d runs; want 2, 2", header.GraphCount, header.RunCount)
	}
	if !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("checksum = %q", header.Checksum)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat backup: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	dst := store.NewInMemoryGraphStore()
	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.GraphsRestored != 2 || result.RunsRestored != 2 {
		t.Errorf("result = %+v", result)
	}

	g, err := dst.LoadGraph(ctx, "beta")
	if err != nil {
		t.Fatalf("LoadGraph(beta): %v", err)
	}
	if g.Name != "beta" || g.NodeByID("relay") == nil {
		t.Errorf("restored graph = %s, missing relay: %v", g.Name, g.NodeByID("relay") == nil)
	}

	runs, err := dst.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].Label != "second" {
		t.Errorf("restored runs out of order: %+v", runs)
	}
}

func TestRestore_Modes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store"+FileExt)
	if _, err := Backup(ctx, seedStore(t), path); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	tests := []struct {
		name         string
		mode         RestoreMode
		wantRestored int
		wantSkipped  int
		wantNodes    int
	}{
		{"merge keeps existing", RestoreMerge, 1, 1, 1},
		{"replace overwrites", RestoreReplace, 2, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := store.NewInMemoryGraphStore()
			small := graph.New("alpha")
			small.Root.AddNode(&graph.Node{ID: "only", Kind: graph.KindSource, SizeOut: 1})
			if err := dst.SaveGraph(ctx, "alpha", small); err != nil {
				t.Fatalf("SaveGraph: %v", err)
			}

			result, err := Restore(ctx, dst, path, tt.mode)
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if result.GraphsRestored != tt.wantRestored || result.GraphsSkipped != tt.wantSkipped {
				t.Errorf("result = %+v", result)
			}

			g, err := dst.LoadGraph(ctx, "alpha")
			if err != nil {
				t.Fatalf("LoadGraph: %v", err)
			}
			if got := g.Count().Nodes; got != tt.wantNodes {
				t.Errorf("alpha has %d nodes, want %d", got, tt.wantNodes)
			}

			// A second restore finds every run already present.
			again, err := Restore(ctx, dst, path, tt.mode)
			if err != nil {
				t.Fatalf("second Restore() error = %v", err)
			}
			if again.RunsRestored != 0 || again.RunsSkipped != 2 {
				t.Errorf("second restore runs = %+v", again)
			}
		})
	}
}

func TestVerify_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store"+FileExt)
	if _, err := Backup(ctx, seedStore(t), path); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if _, err := Verify(path); err != nil {
		t.Fatalf("Verify() on intact file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Verify(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Verify() error = %v, want checksum mismatch", err)
	}
	if _, err := Restore(ctx, store.NewInMemoryGraphStore(), path, RestoreMerge); err == nil {
		t.Error("Restore() should refuse a corrupted file")
	}
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "reading header line"},
		{"not json", "hello\n", "parsing header"},
		{"future version", `{"version": 9}` + "\n", "unsupported backup version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-"))
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Read(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Read() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRotateBackups(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 5; i++ {
		name := filePrefix + base.Add(time.Duration(i)*time.Minute).Format("20060102-150405") + FileExt
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are left alone.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := RotateBackups(dir, 2); err != nil {
		t.Fatalf("RotateBackups() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 3 {
		t.Fatalf("remaining files = %v, want 2 backups + notes.txt", names)
	}
	if !strings.Contains(strings.Join(names, ","), "20260102-030805") {
		t.Errorf("newest backup was removed: %v", names)
	}

	if err := RotateBackups(filepath.Join(dir, "missing"), 2); err != nil {
		t.Errorf("RotateBackups() on missing dir = %v, want nil", err)
	}
}

func TestGenerateBackupPath(t *testing.T) {
	path := GenerateBackupPath("/backups")
	if filepath.Dir(path) != "/backups" {
		t.Errorf("dir = %q", filepath.Dir(path))
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, FileExt) {
		t.Errorf("name = %q", base)
	}
}
