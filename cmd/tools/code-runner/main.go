package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/opencompiler/internal/config"
	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/logging"
	"github.com/michaelbrown/opencompiler/internal/orchestrator"
	"github.com/michaelbrown/opencompiler/internal/process"
	"github.com/michaelbrown/opencompiler/internal/profile"
)

const (
	defaultTimeout = 30 * time.Second
	maxOutput      = 4000
)

type runner struct {
	cfg    *config.Config
	self   string
	logger *slog.Logger

	// One program at a time, as in the server.
	mu sync.Mutex
}

func main() {
	cfg, err := config.Load(os.Getenv("OPENCOMPILER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol.
	logger := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)

	registry, err := profile.Load(cfg.Languages.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading languages: %v\n", err)
		os.Exit(1)
	}

	r := &runner{cfg: cfg, self: opencompilerPath(), logger: logger}

	s := server.NewMCPServer("opencompiler-code-runner", "0.1.0")
	s.AddTool(mcp.Tool{
		Name:        "code_run",
		Description: fmt.Sprintf("Compile and run code on the host. Supported languages: %s.", strings.Join(registry.Languages(), ", ")),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Language id, as listed by `opencompiler languages`",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
				"stdin": map[string]any{
					"type":        "string",
					"description": "Input lines sent to the program once it starts (optional)",
				},
				"timeout_seconds": map[string]any{
					"type":        "number",
					"description": "Stop the program after this many seconds (default 30)",
				},
			},
			Required: []string{"language", "code"},
		},
	}, r.handleCodeRun)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

// opencompilerPath finds the binary that serves {self} commands such as
// sql-exec.
func opencompilerPath() string {
	if path, err := exec.LookPath("opencompiler"); err == nil {
		return path
	}
	return "opencompiler"
}

func (r *runner) handleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	language, _ := args["language"].(string)
	code, _ := args["code"].(string)
	stdin, _ := args["stdin"].(string)

	if language == "" || code == "" {
		return errResult("error: 'language' and 'code' are required"), nil
	}

	timeout := defaultTimeout
	if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}

	text, failed, err := r.run(ctx, orchestrator.Request{Code: code, Language: language}, stdin, timeout)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: truncate(text, maxOutput)}},
		IsError: failed,
	}, nil
}

// run executes one request to completion and returns its transcript.
func (r *runner) run(ctx context.Context, req orchestrator.Request, stdin string, timeout time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := events.NewRecorder()
	orch, err := orchestrator.NewFromConfig(r.cfg, r.self, rec, nil, r.logger)
	if err != nil {
		return "", false, err
	}
	defer orch.Close()

	if err := orch.Run(ctx, req); err != nil {
		// The notice is the whole transcript of an aborted run.
		return rec.Output(), true, nil
	}

	if stdin != "" {
		for _, line := range strings.Split(strings.TrimSuffix(stdin, "\n"), "\n") {
			orch.SendInput(line)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	timedOut := false
	cancelled := ctx.Done()
	for rec.Stops() == 0 {
		select {
		case <-rec.Changed():
		case <-timer.C:
			timedOut = true
			orch.Stop()
		case <-cancelled:
			cancelled = nil
			orch.Stop()
		}
	}

	var out strings.Builder
	out.WriteString(rec.Output())
	if timedOut {
		fmt.Fprintf(&out, "\nstopped after %s", timeout)
	}
	failed := timedOut
	if info := exitedSession(orch); info.ExitCode != nil && *info.ExitCode != 0 {
		fmt.Fprintf(&out, "\nexit code: %d", *info.ExitCode)
		failed = true
	}
	return out.String(), failed, nil
}

// exitedSession waits briefly for the session reaped after term_stop to
// report its exit code.
func exitedSession(orch *orchestrator.Orchestrator) process.Info {
	deadline := time.Now().Add(time.Second)
	for {
		info, _ := orch.Session()
		if info.ExitCode != nil || time.Now().After(deadline) {
			return info
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// truncate cuts text to at most max bytes, backing up to a rune boundary.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... (output truncated)"
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
