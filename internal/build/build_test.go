package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelbrown/opencompiler/internal/profile"
	"github.com/michaelbrown/opencompiler/internal/workspace"
)

const helperEnv = "OPENCOMPILER_BUILD_HELPER"

// TestMain lets the test binary act as a fake compiler.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(fakeCompiler(os.Args[1:]))
	}
	os.Setenv(helperEnv, "1")
	os.Exit(m.Run())
}

func fakeCompiler(args []string) int {
	switch args[0] {
	case "ok":
		if err := os.WriteFile(args[1], []byte("binary"), 0o755); err != nil {
			return 1
		}
		return 0
	case "fail-stderr":
		fmt.Fprintln(os.Stderr, "main.cpp:1:10: error: expected ';'")
		return 1
	case "fail-stdout":
		fmt.Fprintln(os.Stdout, "Program.cs(1,2): error CS1002: ; expected")
		return 1
	case "fail-silent":
		return 2
	}
	return 3
}

func prepare(t *testing.T, p profile.Profile) workspace.Paths {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	paths, err := ws.Prepare(p, "", "source text")
	if err != nil {
		t.Fatal(err)
	}
	return paths
}

func compiled(mode string, diag profile.Stream) profile.Profile {
	return profile.Profile{
		ID:          "fake",
		Source:      "main.src",
		Artifact:    "main.bin",
		Compile:     []string{os.Args[0], mode, "{artifact}"},
		Run:         []string{"{artifact}", "--dir", "{dir}"},
		Diagnostics: diag,
	}
}

func TestBuildInterpreted(t *testing.T) {
	p := profile.Profile{ID: "python", Source: "script.py", Run: []string{"python", "-u", "{source}"}}
	paths := prepare(t, p)

	res, err := NewBuilder("/bin/self", nil).Build(context.Background(), p, paths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"python", "-u", paths.Source}
	if strings.Join(res.Command, " ") != strings.Join(want, " ") {
		t.Errorf("Command = %v, want %v", res.Command, want)
	}
	if res.Failed {
		t.Error("interpreted profile cannot fail to build")
	}
}

func TestBuildSelfPlaceholder(t *testing.T) {
	p := profile.Profile{ID: "sql", Source: "q.sql", Run: []string{"{self}", "sql-exec", "{source}"}}
	paths := prepare(t, p)

	res, err := NewBuilder("/usr/local/bin/opencompiler", nil).Build(context.Background(), p, paths)
	if err != nil {
		t.Fatal(err)
	}
	if res.Command[0] != "/usr/local/bin/opencompiler" {
		t.Errorf("Command[0] = %q, want self path", res.Command[0])
	}
}

func TestBuildCompileSuccess(t *testing.T) {
	p := compiled("ok", "")
	paths := prepare(t, p)

	res, err := NewBuilder("", nil).Build(context.Background(), p, paths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Diagnostics)
	}
	if res.Command[0] != paths.Artifact || res.Command[2] != paths.Dir {
		t.Errorf("Command = %v, want artifact and dir substituted", res.Command)
	}
	if _, err := os.Stat(paths.Artifact); err != nil {
		t.Errorf("artifact not produced: %v", err)
	}
}

func TestBuildCompileFailure(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		stream profile.Stream
		want   string
	}{
		{"stderr diagnostics", "fail-stderr", profile.StreamStderr, "expected ';'"},
		{"stdout diagnostics", "fail-stdout", profile.StreamStdout, "CS1002"},
		{"fallback to other stream", "fail-stdout", profile.StreamStderr, "CS1002"},
		{"no output", "fail-silent", "", "status 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := compiled(tt.mode, tt.stream)
			paths := prepare(t, p)

			res, err := NewBuilder("", nil).Build(context.Background(), p, paths)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !res.Failed {
				t.Fatal("expected compile failure")
			}
			if res.Command != nil {
				t.Error("failed build must not produce a run command")
			}
			if !strings.Contains(res.Diagnostics, tt.want) {
				t.Errorf("Diagnostics = %q, want to contain %q", res.Diagnostics, tt.want)
			}
		})
	}
}

func TestBuildCompilerMissing(t *testing.T) {
	p := profile.Profile{
		ID:       "cpp",
		Source:   "main.cpp",
		Artifact: "main",
		Compile:  []string{"opencompiler-no-such-compiler", "{source}"},
		Run:      []string{"{artifact}"},
	}
	paths := prepare(t, p)

	_, err := NewBuilder("", nil).Build(context.Background(), p, paths)
	var notFound *ToolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Build error = %v, want ToolNotFoundError", err)
	}
	if notFound.Tool != "opencompiler-no-such-compiler" {
		t.Errorf("Tool = %q", notFound.Tool)
	}
	if filepath.Base(paths.Artifact) != "main" {
		t.Errorf("Artifact = %s", paths.Artifact)
	}
}
