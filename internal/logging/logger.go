// Package logging provides leveled logging and a split-decision trace for relaysplit.
//   - NewLogger returns a leveled slog.Logger for operational output on stderr.
//   - DecisionLogger appends one JSON object per rewrite decision to splits.jsonl.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug, used for per-edge detail.
const LevelTrace = slog.LevelDebug - 4

// DecisionFile is the name of the decision trace inside its directory.
const DecisionFile = "splits.jsonl"

// ParseLevel maps "info", "debug" or "trace" (any case) to a slog.Level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DecisionLogger writes structured rewrite events as JSONL. It is safe for
// concurrent use, and every method is a no-op on a nil receiver.
type DecisionLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
}

// NewDecisionLogger opens dir/splits.jsonl for append when level is debug or
// trace. At info level, or if the file cannot be opened, it returns nil.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, DecisionFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{w: f, closer: f, now: time.Now}
}

// NewDecisionWriter returns a DecisionLogger writing to w. Close does not close w.
func NewDecisionWriter(w io.Writer) *DecisionLogger {
	return &DecisionLogger{w: w, now: time.Now}
}

// Log writes event as one line with a "time" field added. The caller's map is
// not modified.
func (dl *DecisionLogger) Log(event map[string]any) {
	if dl == nil || dl.w == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = dl.now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	dl.mu.Lock()
	defer dl.mu.Unlock()
	_, _ = dl.w.Write(data)
}

// Close releases the underlying file, if any.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.closer != nil {
		dl.closer.Close()
	}
	dl.w = nil
	dl.closer = nil
}
