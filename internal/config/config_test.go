package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := write(t, `
[vm]
name = "worker"
max-steps = 5000

[store]
path = "/tmp/sandvm.db"

[log]
level = "debug"
color = false
`)

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		VM:    VM{Name: "worker", MaxSteps: 5000},
		Store: Store{Path: "/tmp/sandvm.db"},
		Log:   Log{Level: "debug", Color: false},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if lvl, _ := cfg.Level(); lvl != log.DebugLevel {
		t.Errorf("level = %s", lvl)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(write(t, "[vm]\nmax-steps = 10\n"), true)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.VM.MaxSteps = 10
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}

	if _, err := Load(path, true); err == nil {
		t.Error("missing required file loaded without error")
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"syntax", "[vm\n", "parse error"},
		{"unknown key", "[vm]\nspeed = 3\n", "unknown key vm.speed"},
		{"negative steps", "[vm]\nmax-steps = -1\n", "must not be negative"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "invalid level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.content), true)
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.msg)
			}
		})
	}
}
