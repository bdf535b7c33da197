package mcp

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAuditLogger_NilSafety(t *testing.T) {
	t.Run("nil logger Log is no-op", func(t *testing.T) {
		var logger *AuditLogger
		logger.Log(AuditEntry{Tool: "test"})
	})

	t.Run("nil logger Close is no-op", func(t *testing.T) {
		var logger *AuditLogger
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on nil logger returned error: %v", err)
		}
	})
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	logger := NewAuditLogger(dir, nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	defer logger.Close()

	logger.Log(AuditEntry{
		Timestamp:  time.Now(),
		Tool:       "relaysplit_split",
		DurationMs: 42,
		Status:     "success",
		Params:     map[string]string{"format": "yaml"},
	})

	path := filepath.Join(dir, AuditFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}

	var entry AuditEntry
	if err := json.Unmarshal(data[:len(data)-1], &entry); err != nil {
		t.Fatalf("parsing audit entry: %v", err)
	}
	if entry.Tool != "relaysplit_split" {
		t.Errorf("tool = %q, want relaysplit_split", entry.Tool)
	}
	if entry.DurationMs != 42 {
		t.Errorf("duration_ms = %d, want 42", entry.DurationMs)
	}
	if entry.Params["format"] != "yaml" {
		t.Errorf("params[format] = %q, want yaml", entry.Params["format"])
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestAuditLogger_Appends(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		logger := NewAuditLogger(dir, nil)
		logger.Log(AuditEntry{Tool: "relaysplit_stats", Status: "success"})
		logger.Close()
	}

	data, err := os.ReadFile(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if n := bytes.Count(data, []byte("\n")); n != 2 {
		t.Errorf("line count = %d, want 2", n)
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir, nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	const goroutines = 10
	const entriesPerGoroutine = 5

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < entriesPerGoroutine; i++ {
				logger.Log(AuditEntry{
					Timestamp:  time.Now(),
					Tool:       "relaysplit_split",
					DurationMs: int64(id*100 + i),
					Status:     "success",
				})
			}
		}(g)
	}
	wg.Wait()
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != goroutines*entriesPerGoroutine {
		t.Fatalf("line count = %d, want %d", len(lines), goroutines*entriesPerGoroutine)
	}
	for i, line := range lines {
		if !json.Valid(line) {
			t.Errorf("line %d is not valid JSON: %s", i, line)
		}
	}
}

func TestAuditLogger_BadPath(t *testing.T) {
	dir := t.TempDir()
	blockPath := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blockPath, []byte("file"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	logger := NewAuditLogger(blockPath, nil)
	if logger != nil {
		logger.Close()
		t.Error("expected nil logger when the directory cannot be created")
	}
}

func TestSanitizeToolParams(t *testing.T) {
	t.Run("safe values are included", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{
			"format":    "json",
			"max_width": 16,
			"verify":    true,
		})
		if result["format"] != "json" {
			t.Errorf("format = %q, want json", result["format"])
		}
		if result["max_width"] != "16" {
			t.Errorf("max_width = %q, want 16", result["max_width"])
		}
		if result["verify"] != "true" {
			t.Errorf("verify = %q, want true", result["verify"])
		}
		if result["_param_count"] != "3" {
			t.Errorf("_param_count = %q, want 3", result["_param_count"])
		}
	})

	t.Run("documents and names are redacted", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{
			"graph":   "scope: {nodes: [{id: secret}]}",
			"name":    "customer-model",
			"save_as": "",
		})
		if result["graph"] != "(set)" {
			t.Errorf("graph = %q, want (set)", result["graph"])
		}
		if result["name"] != "(set)" {
			t.Errorf("name = %q, want (set)", result["name"])
		}
		if _, ok := result["save_as"]; ok {
			t.Error("empty save_as should not be logged")
		}
	})

	t.Run("unknown params are excluded", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{
			"malicious_param": "should not appear",
		})
		if _, ok := result["malicious_param"]; ok {
			t.Error("unknown param should not be included")
		}
		if result["_param_count"] != "1" {
			t.Errorf("_param_count = %q, want 1", result["_param_count"])
		}
	})

	t.Run("nil params returns nil", func(t *testing.T) {
		if result := sanitizeToolParams(nil); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}

func TestAuditTool_Integration(t *testing.T) {
	server, auditDir := setupTestServer(t)

	if server.auditLogger == nil {
		t.Fatal("expected auditLogger to be initialized")
	}

	start := time.Now()
	time.Sleep(1 * time.Millisecond)
	server.auditTool("relaysplit_test", start, nil, map[string]string{"format": "dot"})
	server.Close()

	data, err := os.ReadFile(filepath.Join(auditDir, AuditFile))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}

	var entry AuditEntry
	if err := json.Unmarshal(data[:len(data)-1], &entry); err != nil {
		t.Fatalf("parsing audit entry: %v", err)
	}
	if entry.Tool != "relaysplit_test" {
		t.Errorf("tool = %q, want relaysplit_test", entry.Tool)
	}
	if entry.Status != "success" {
		t.Errorf("status = %q, want success", entry.Status)
	}
	if entry.DurationMs < 1 {
		t.Errorf("duration_ms = %d, want >= 1", entry.DurationMs)
	}
}
