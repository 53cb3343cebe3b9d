// Package orchestrator runs submitted source code end to end: it resolves
// the language profile, writes the source into the workspace, compiles it
// when the language needs it, and hands the run command to the process
// controller, whose streamer reports output to subscribers.
//
// Every failure is converted into a term_output notice. Runs that get past
// profile resolution always end with exactly one term_stop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/opencompiler/internal/build"
	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/metrics"
	"github.com/michaelbrown/opencompiler/internal/process"
	"github.com/michaelbrown/opencompiler/internal/profile"
	"github.com/michaelbrown/opencompiler/internal/workspace"
)

// Request is one run_code submission.
type Request struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Registry  *profile.Registry
	Workspace *workspace.Workspace
	Builder   *build.Builder
	Emitter   events.Emitter
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	DrainTimeout time.Duration
	ReadChunk    int
}

// Orchestrator serializes run requests and owns the process controller.
type Orchestrator struct {
	registry  *profile.Registry
	workspace *workspace.Workspace
	builder   *build.Builder
	emitter   events.Emitter
	metrics   *metrics.Collector
	logger    *slog.Logger

	controller *process.Controller

	// runMu serializes whole runs so two requests never interleave their
	// prepare, build and start phases on the shared scratch files.
	runMu sync.Mutex
}

// New creates an Orchestrator. Registry and Workspace are required.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("orchestrator: registry is required")
	}
	if cfg.Workspace == nil {
		return nil, errors.New("orchestrator: workspace is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.Discard
	}
	builder := cfg.Builder
	if builder == nil {
		builder = build.NewBuilder("", logger)
	}

	o := &Orchestrator{
		registry:  cfg.Registry,
		workspace: cfg.Workspace,
		builder:   builder,
		emitter:   cfg.Metrics.Wrap(emitter),
		metrics:   cfg.Metrics,
		logger:    logger,
	}
	o.controller = process.NewController(process.Config{
		Emitter:      o.emitter,
		Logger:       logger,
		DrainTimeout: cfg.DrainTimeout,
		ReadChunk:    cfg.ReadChunk,
		OnStart:      o.sessionStarted,
		OnExit:       o.sessionExited,
	})
	return o, nil
}

// Run executes one request. It returns once the child process has been
// spawned, or once the run has been aborted; in the latter case the
// returned error is a *RunError whose notice has already been emitted.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	p, err := o.registry.Resolve(req.Language)
	if err != nil {
		notice := fmt.Sprintf("Language %s not supported yet.", req.Language)
		o.emitter.Emit(events.Output(notice))
		// Unknown identifiers are client input; keep them out of metric labels.
		o.metrics.RecordRun("unknown", KindNotSupported.String())
		o.logger.Info("language_not_supported", "language", req.Language)
		return &RunError{Kind: KindNotSupported, Language: req.Language, Notice: notice, Err: err}
	}

	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID, "language", p.ID)

	// Shared scratch files are about to be overwritten under the running child.
	if !o.workspace.Isolated() {
		o.controller.TerminateCurrent()
	}

	paths, err := o.workspace.Prepare(p, runID, req.Code)
	if err != nil {
		return o.abort(logger, p.ID, runID, KindSetup, fmt.Sprintf("Setup Error: %v", err), err)
	}

	res, err := o.builder.Build(ctx, p, paths)
	if err != nil {
		var notFound *build.ToolNotFoundError
		if errors.As(err, &notFound) {
			notice := fmt.Sprintf("Error: Command not found: %s. Please make sure the compiler for '%s' is installed and in PATH.", notFound.Tool, p.ID)
			return o.abort(logger, p.ID, runID, KindToolNotFound, notice, err)
		}
		return o.abort(logger, p.ID, runID, KindExecution, fmt.Sprintf("Execution Error: %v", err), err)
	}
	if p.NeedsCompile() {
		o.metrics.RecordBuild(p.ID, res.Duration)
	}
	if res.Failed {
		return o.abort(logger, p.ID, runID, KindCompileFailed,
			"Compilation Error:\n"+res.Diagnostics,
			fmt.Errorf("compiler exited with status %d", res.ExitCode))
	}

	s, err := o.controller.Start(process.Spec{
		ID:       runID,
		Language: p.ID,
		Command:  res.Command,
		Dir:      paths.Dir,
	})
	if err != nil {
		if process.IsCommandNotFound(err) {
			notice := fmt.Sprintf("Error: Command not found. Please make sure compiler for '%s' is installed and in PATH.", p.ID)
			return o.abort(logger, p.ID, runID, KindToolNotFound, notice, err)
		}
		return o.abort(logger, p.ID, runID, KindExecution, fmt.Sprintf("Execution Error: %v", err), err)
	}

	o.metrics.RecordRun(p.ID, metrics.OutcomeStarted)
	logger.Info("run_started", "pid", s.Pid(), "compiled", p.NeedsCompile())
	return nil
}

// abort reports a failed run: the notice as one output event followed by an
// empty term_stop. A session still running from an earlier request is
// terminated first so its output cannot follow this run's term_stop.
func (o *Orchestrator) abort(logger *slog.Logger, language, runID string, kind Kind, notice string, cause error) error {
	o.controller.TerminateCurrent()

	o.emitter.Emit(events.Output(notice))
	o.emitter.Emit(events.Stop(""))

	if err := o.workspace.Release(runID); err != nil {
		logger.Warn("workspace_release_failed", "error", err)
	}
	o.metrics.RecordRun(language, kind.String())
	logger.Warn("run_aborted", "kind", kind.String(), "error", cause)

	return &RunError{Kind: kind, Language: language, RunID: runID, Notice: notice, Err: cause}
}

// SendInput forwards one line to the running program. Input with no
// running program is dropped and reported as process.ErrNoSession; callers
// on the transport path ignore that error.
func (o *Orchestrator) SendInput(text string) error {
	delivered := o.controller.SendInput(text)
	o.metrics.RecordInput(delivered)
	if !delivered {
		return process.ErrNoSession
	}
	return nil
}

// Stop force-terminates the running program. It reports whether one was
// running.
func (o *Orchestrator) Stop() bool {
	return o.controller.TerminateCurrent()
}

// Session returns the state of the current or most recent session.
func (o *Orchestrator) Session() (process.Info, bool) {
	return o.controller.Current()
}

// Languages returns the registered profiles.
func (o *Orchestrator) Languages() []profile.Profile {
	return o.registry.Profiles()
}

// Spawned returns how many run-phase processes have been started.
func (o *Orchestrator) Spawned() uint64 {
	return o.controller.Spawned()
}

// Close terminates the running program.
func (o *Orchestrator) Close() {
	o.controller.Close()
}

func (o *Orchestrator) sessionStarted(s *process.Session) {
	o.metrics.RecordSessionStart()
}

func (o *Orchestrator) sessionExited(s *process.Session, elapsed time.Duration) {
	o.metrics.RecordSessionEnd(s.Language(), s.Killed(), elapsed)
	if err := o.workspace.Release(s.ID()); err != nil {
		o.logger.Warn("workspace_release_failed", "run_id", s.ID(), "error", err)
	}
	o.logger.Info("run_finished",
		"run_id", s.ID(),
		"language", s.Language(),
		"exit_code", s.ExitCode(),
		"killed", s.Killed(),
		"duration", elapsed.String(),
	)
}
