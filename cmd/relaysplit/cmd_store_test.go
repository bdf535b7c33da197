package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctnbench/relaysplit/internal/graphio"
)

func TestStoreCmd_Lifecycle(t *testing.T) {
	home := isolateHome(t)
	in := writeGraphFile(t, t.TempDir(), "wide.yaml", wideRelayYAML)
	db := filepath.Join(home, "graphs.db")

	stdout, _, err := execute(t, newStoreCmd(), "store", "list", "--db", db)
	if err != nil {
		t.Fatalf("store list failed: %v", err)
	}
	if !strings.Contains(stdout, "No graphs saved.") {
		t.Errorf("expected empty store, got %q", stdout)
	}

	stdout, _, err = execute(t, newStoreCmd(), "store", "save", "wide", in, "--db", db)
	if err != nil {
		t.Fatalf("store save failed: %v", err)
	}
	if !strings.Contains(stdout, `Saved "wide" (3 nodes, 2 edges)`) {
		t.Errorf("unexpected save output: %q", stdout)
	}

	stdout, _, err = execute(t, newStoreCmd(), "store", "list", "--json", "--db", db)
	if err != nil {
		t.Fatalf("store list failed: %v", err)
	}
	var list struct {
		Graphs []struct {
			Name     string `json:"name"`
			Nodes    int    `json:"nodes"`
			MaxWidth int    `json:"max_width"`
		} `json:"graphs"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(stdout), &list); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if list.Count != 1 || list.Graphs[0].Name != "wide" || list.Graphs[0].MaxWidth != 40 {
		t.Errorf("list = %+v", list)
	}

	stdout, _, err = execute(t, newStoreCmd(), "store", "show", "wide", "--format", "json", "--db", db)
	if err != nil {
		t.Fatalf("store show failed: %v", err)
	}
	g, err := graphio.Unmarshal([]byte(stdout), graphio.FormatJSON)
	if err != nil {
		t.Fatalf("show output does not parse: %v", err)
	}
	if g.NodeByID("relay") == nil {
		t.Error("shown graph is missing relay")
	}

	if _, _, err := execute(t, newStoreCmd(), "store", "delete", "wide", "--db", db); err != nil {
		t.Fatalf("store delete failed: %v", err)
	}

	_, _, err = execute(t, newStoreCmd(), "store", "delete", "wide", "--db", db)
	if err == nil || !strings.Contains(err.Error(), `no graph named "wide"`) {
		t.Errorf("second delete error = %v", err)
	}
	_, _, err = execute(t, newStoreCmd(), "store", "show", "wide", "--db", db)
	if err == nil || !strings.Contains(err.Error(), `no graph named "wide"`) {
		t.Errorf("show after delete error = %v", err)
	}
}

func TestStoreCmd_DefaultPath(t *testing.T) {
	home := isolateHome(t)

	if _, _, err := execute(t, newStoreCmd(), "store", "list"); err != nil {
		t.Fatalf("store list failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".relaysplit", "relaysplit.db")); err != nil {
		t.Errorf("expected the default database under ~/.relaysplit: %v", err)
	}
}

func TestStoreCmd_BackupRestore(t *testing.T) {
	home := isolateHome(t)
	in := writeGraphFile(t, t.TempDir(), "wide.yaml", wideRelayYAML)
	db := filepath.Join(home, "graphs.db")

	if _, _, err := execute(t, newStoreCmd(), "store", "save", "wide", in, "--db", db); err != nil {
		t.Fatalf("store save failed: %v", err)
	}

	stdout, _, err := execute(t, newStoreCmd(), "store", "backup", "--db", db, "--keep", "3")
	if err != nil {
		t.Fatalf("store backup failed: %v", err)
	}
	if !strings.Contains(stdout, "Backed up 1 graph(s) and 0 run(s)") {
		t.Errorf("unexpected backup output: %q", stdout)
	}
	matches, _ := filepath.Glob(filepath.Join(home, ".relaysplit", "backups", "*.rsbak"))
	if len(matches) != 1 {
		t.Fatalf("expected one backup file, found %v", matches)
	}

	fresh := filepath.Join(home, "fresh.db")
	stdout, _, err = execute(t, newStoreCmd(), "store", "restore", matches[0], "--db", fresh, "--json")
	if err != nil {
		t.Fatalf("store restore failed: %v", err)
	}
	var result struct {
		GraphsRestored int `json:"graphs_restored"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.GraphsRestored != 1 {
		t.Errorf("graphs_restored = %d, want 1", result.GraphsRestored)
	}

	stdout, _, err = execute(t, newStoreCmd(), "store", "show", "wide", "--db", fresh)
	if err != nil {
		t.Fatalf("store show after restore failed: %v", err)
	}
	if !strings.Contains(stdout, "relay") {
		t.Errorf("restored graph missing relay: %q", stdout)
	}
}
