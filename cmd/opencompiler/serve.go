package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/metrics"
	"github.com/michaelbrown/opencompiler/internal/orchestrator"
	"github.com/michaelbrown/opencompiler/internal/process"
	"github.com/michaelbrown/opencompiler/internal/server"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OpenCompiler server",
	Long: `Start the HTTP server with the websocket transport and REST controls.

Clients connect to /ws and send run_code, send_input and stop messages; every
connected client receives the term_output and term_stop events of each run.

Examples:
  opencompiler serve
  opencompiler serve --addr 0.0.0.0:5000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	self, err := selfPath()
	if err != nil {
		return err
	}

	hub := events.NewBroadcaster(0)
	orch, err := orchestrator.NewFromConfig(cfg, self, hub, metrics.NewCollector(), logger)
	if err != nil {
		return err
	}
	defer orch.Close()

	logger.Info("languages_loaded",
		"count", len(orch.Languages()),
		"workspace", cfg.Workspace.Dir,
		"isolate", cfg.Workspace.Isolate,
		"hide_console", process.HidesConsoleWindow(),
	)

	addr := cfg.Server.Addr
	if addrFlag != "" {
		addr = addrFlag
	}

	srv := server.New(orch, hub, server.Options{Logger: logger})

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
