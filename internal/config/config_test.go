package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opencompiler.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:5000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Workspace.Dir != "temp_build" || cfg.Workspace.Isolate {
		t.Errorf("Workspace = %+v", cfg.Workspace)
	}
	if cfg.Process.DrainTimeout != 2*time.Second || cfg.Process.ReadChunk != 256 {
		t.Errorf("Process = %+v", cfg.Process)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 0.0.0.0:9000
workspace:
  dir: ${OPENCOMPILER_TEST_ROOT}/scratch
  isolate: true
process:
  drain_timeout: 500ms
  read_chunk: 64
languages:
  file: langs.yaml
log:
  level: debug
  format: json
`)
	t.Setenv("OPENCOMPILER_TEST_ROOT", "/srv")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Workspace.Dir != "/srv/scratch" || !cfg.Workspace.Isolate {
		t.Errorf("Workspace = %+v", cfg.Workspace)
	}
	if cfg.Process.DrainTimeout != 500*time.Millisecond || cfg.Process.ReadChunk != 64 {
		t.Errorf("Process = %+v", cfg.Process)
	}
	if cfg.Languages.File != "langs.yaml" {
		t.Errorf("Languages.File = %q", cfg.Languages.File)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: 127.0.0.1:5000\n")
	t.Setenv("OPENCOMPILER_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("OPENCOMPILER_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Server.Addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero read chunk", "process:\n  read_chunk: 0\n", "read_chunk"},
		{"negative drain", "process:\n  drain_timeout: -1s\n", "drain_timeout"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"malformed yaml", "server: [\n", "reading config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
