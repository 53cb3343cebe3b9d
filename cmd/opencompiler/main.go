package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/opencompiler/internal/config"
	"github.com/michaelbrown/opencompiler/internal/logging"
)

var (
	configFlag   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "opencompiler",
	Short: "OpenCompiler - run code in many languages from one place",
	Long: `OpenCompiler compiles and runs source code for a range of languages and
streams the program's output back as it is produced.

Programs run on the host with the host's compilers and interpreters; input
typed by the user is forwarded to the running program line by line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ./opencompiler.yaml or $HOME/.opencompiler/opencompiler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)
	return logger
}

// selfPath is substituted for {self} in run commands.
func selfPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating opencompiler binary: %w", err)
	}
	return self, nil
}
