package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/michaelbrown/opencompiler/internal/process"
	"github.com/michaelbrown/opencompiler/internal/profile"
	"github.com/michaelbrown/opencompiler/internal/workspace"
)

// Result is the outcome of a build: either a runnable command or captured
// compiler diagnostics.
type Result struct {
	Command     []string
	Failed      bool
	Diagnostics string
	ExitCode    int
	Duration    time.Duration
}

// ToolNotFoundError is returned when the compiler binary does not exist.
type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("compiler %q not found: %v", e.Tool, e.Err)
}

func (e *ToolNotFoundError) Unwrap() error { return e.Err }

// Builder runs the compile phase of a profile.
type Builder struct {
	// Self is substituted for {self} in templates.
	Self   string
	Logger *slog.Logger
}

// NewBuilder creates a Builder. self is the path of the running binary.
func NewBuilder(self string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Self: self, Logger: logger}
}

// Build compiles the prepared source when the profile requires it, blocking
// until the compiler exits. Profiles without a compile step return their run
// command immediately.
func (b *Builder) Build(ctx context.Context, p profile.Profile, paths workspace.Paths) (Result, error) {
	vars := profile.Vars{
		Source:   paths.Source,
		Artifact: paths.Artifact,
		Dir:      paths.Dir,
		Self:     b.Self,
	}
	run := profile.Expand(p.Run, vars)

	if !p.NeedsCompile() {
		return Result{Command: run}, nil
	}

	args := profile.Expand(p.Compile, vars)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = paths.Dir
	process.Configure(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		case process.IsCommandNotFound(err):
			return Result{}, &ToolNotFoundError{Tool: args[0], Err: err}
		default:
			return Result{}, fmt.Errorf("running compiler: %w", err)
		}
	}

	b.Logger.Debug("compile_finished",
		"language", p.ID,
		"exit_code", exitCode,
		"duration", elapsed.String(),
	)

	if exitCode != 0 {
		return Result{
			Failed:      true,
			Diagnostics: diagnostics(p.DiagnosticStream(), stdout.String(), stderr.String(), exitCode),
			ExitCode:    exitCode,
			Duration:    elapsed,
		}, nil
	}

	return Result{Command: run, Duration: elapsed}, nil
}

// diagnostics picks the profile's diagnostic stream, falling back to the
// other stream and finally to the exit status so the text is never empty.
func diagnostics(stream profile.Stream, stdout, stderr string, exitCode int) string {
	primary, secondary := stderr, stdout
	if stream == profile.StreamStdout {
		primary, secondary = stdout, stderr
	}
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	if strings.TrimSpace(secondary) != "" {
		return secondary
	}
	return fmt.Sprintf("compiler exited with status %d", exitCode)
}
