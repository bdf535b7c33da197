package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigShow(t *testing.T) {
	home := isolateHome(t)

	stdout, _, err := execute(t, newConfigCmd(), "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"max_width: 16", "id_style: uuid", "format: yaml"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stdout, filepath.Join(home, ".relaysplit", "relaysplit.db")) {
		t.Errorf("output missing default database path:\n%s", stdout)
	}

	t.Setenv("RELAYSPLIT_MAX_WIDTH", "24")
	stdout, _, err = execute(t, newConfigCmd(), "config", "show", "--json")
	if err != nil {
		t.Fatalf("config show --json failed: %v", err)
	}
	var got struct {
		Config struct {
			Split struct {
				MaxWidth int `json:"max_width"`
			} `json:"split"`
		} `json:"config"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Config.Split.MaxWidth != 24 {
		t.Errorf("max_width = %d, want 24 from env", got.Config.Split.MaxWidth)
	}
}

func TestConfigValidate(t *testing.T) {
	home := isolateHome(t)

	stdout, _, err := execute(t, newConfigCmd(), "config", "validate")
	if err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if !strings.Contains(stdout, "Configuration is valid.") {
		t.Errorf("unexpected output: %q", stdout)
	}

	bad := writeGraphFile(t, home, "bad.yaml", "split:\n  max_width: -1\n")
	stdout, _, err = execute(t, newConfigCmd(), "config", "validate", "--config", bad, "--json")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(stdout, `"valid": false`) || !strings.Contains(stdout, "max_width") {
		t.Errorf("unexpected JSON output: %q", stdout)
	}
}
