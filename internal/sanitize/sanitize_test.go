package sanitize

import (
	"strings"
	"testing"
)

func TestGraphName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name", "sequence_routed-d32", "sequence_routed-d32"},
		{"keeps dots", "model.v2", "model.v2"},
		{"strips path separators", "../../etc/passwd", "etcpasswd"},
		{"strips tags", "wide<script>x</script>", "widescriptxscript"},
		{"strips spaces", "my graph name", "mygraphname"},
		{"collapse repeated hyphens", "use---uv", "use-uv"},
		{"collapse repeated underscores", "use___uv", "use_uv"},
		{"collapse dots", "a...b", "a.b"},
		{"only dots", "..", ""},
		{"truncate to 80 chars", strings.Repeat("a", 100), strings.Repeat("a", 80)},
		{"empty input", "", ""},
		{"all invalid characters", "!@#$%^&*()", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GraphName(tt.input)
			if got != tt.want {
				t.Errorf("GraphName()\ngot:  %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean label", "d32 nightly", "d32 nightly"},
		{"control characters", "run\x00\x1b[31m1", "run[31m1"},
		{"newlines collapse", "line one\n\n\tline two", "line one line two"},
		{"tags stripped", "<b>bold</b> run", "bold run"},
		{"processing instruction", `<?xml version="1.0"?>run`, "run"},
		{"trimmed", "   padded   ", "padded"},
		{"truncate", strings.Repeat("x", 200), strings.Repeat("x", MaxLabelLength)},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Label(tt.input)
			if got != tt.want {
				t.Errorf("Label()\ngot:  %q\nwant: %q", got, tt.want)
			}
		})
	}
}
