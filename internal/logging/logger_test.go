package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", true, false},
		{"trace passes everything", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v", got, tt.logAtDebug)
			}

			buf.Reset()
			logger.Log(context.Background(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.logAtTrace {
				t.Errorf("trace message visible = %v, want %v", got, tt.logAtTrace)
			}
			if tt.logAtTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}
		})
	}
}

func TestNewDecisionLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")
	if dl != nil {
		t.Error("expected nil DecisionLogger at info level")
	}

	// nil is still usable
	dl.Log(map[string]any{"event": "node_split"})
	dl.Close()

	if _, err := os.Stat(filepath.Join(dir, DecisionFile)); err == nil {
		t.Errorf("%s should not exist at info level", DecisionFile)
	}
}

func TestNewDecisionLogger_DebugLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("expected DecisionLogger at debug level")
	}

	dl.Log(map[string]any{"event": "node_split", "node_id": "state", "size_in": 32})
	dl.Log(map[string]any{"event": "node_split", "node_id": "vision", "size_in": 40})
	dl.Close()

	f, err := os.Open(filepath.Join(dir, DecisionFile))
	if err != nil {
		t.Fatalf("open %s: %v", DecisionFile, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parse line %q: %v", scanner.Text(), err)
		}
		if _, ok := entry["time"]; !ok {
			t.Error("expected time field")
		}
		ids = append(ids, entry["node_id"].(string))
	}
	if len(ids) != 2 || ids[0] != "state" || ids[1] != "vision" {
		t.Errorf("logged node ids = %v, want [state vision]", ids)
	}
}

func TestDecisionWriter_DoesNotMutateEvent(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDecisionWriter(&buf)

	event := map[string]any{"event": "node_split"}
	dl.Log(event)

	if _, ok := event["time"]; ok {
		t.Error("Log added time to the caller's map")
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("expected newline-terminated JSONL, got %q", buf.String())
	}

	dl.Close()
	dl.Log(event)
	if strings.Count(buf.String(), "\n") != 1 {
		t.Error("Log after Close should be a no-op")
	}
}
