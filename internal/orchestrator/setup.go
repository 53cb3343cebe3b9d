package orchestrator

import (
	"fmt"
	"log/slog"

	"github.com/michaelbrown/opencompiler/internal/build"
	"github.com/michaelbrown/opencompiler/internal/config"
	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/metrics"
	"github.com/michaelbrown/opencompiler/internal/profile"
	"github.com/michaelbrown/opencompiler/internal/workspace"
)

// NewFromConfig builds an Orchestrator from loaded configuration. self is
// the opencompiler binary substituted for {self} in run commands.
func NewFromConfig(cfg *config.Config, self string, emitter events.Emitter, m *metrics.Collector, logger *slog.Logger) (*Orchestrator, error) {
	registry, err := profile.Load(cfg.Languages.File)
	if err != nil {
		return nil, fmt.Errorf("loading languages: %w", err)
	}
	ws, err := workspace.New(cfg.Workspace.Dir, cfg.Workspace.Isolate)
	if err != nil {
		return nil, err
	}

	return New(Config{
		Registry:     registry,
		Workspace:    ws,
		Builder:      build.NewBuilder(self, logger),
		Emitter:      emitter,
		Metrics:      m,
		Logger:       logger,
		DrainTimeout: cfg.Process.DrainTimeout,
		ReadChunk:    cfg.Process.ReadChunk,
	})
}
