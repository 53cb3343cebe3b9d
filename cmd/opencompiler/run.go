package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/orchestrator"
	"github.com/michaelbrown/opencompiler/internal/profile"
)

var langFlag string

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a source file in the terminal",
	Long: `Compile (when needed) and run a source file, streaming its output.

Lines typed while the program runs are sent to its standard input. Ctrl+C
stops the program.

Examples:
  opencompiler run hello.py
  opencompiler run main.cpp
  opencompiler run query.txt --lang sql`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&langFlag, "lang", "l", "", "Language id (default: detected from the file extension)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Keep the terminal for the program unless asked otherwise.
	if logLevelFlag == "" {
		cfg.Log.Level = "warn"
	}
	logger := newLogger(cfg)

	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	self, err := selfPath()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	done := make(chan struct{})
	var once sync.Once
	emitter := events.EmitterFunc(func(e events.Event) {
		switch e.Type {
		case events.TypeOutput:
			fmt.Fprint(out, e.Data)
		case events.TypeStop:
			printStop(out, e.Data)
			once.Do(func() { close(done) })
		}
	})

	orch, err := orchestrator.NewFromConfig(cfg, self, emitter, nil, logger)
	if err != nil {
		return err
	}
	defer orch.Close()

	lang := langFlag
	if lang == "" {
		lang = detectLanguage(orch.Languages(), args[0])
		if lang == "" {
			return fmt.Errorf("cannot detect the language of %s; use --lang", args[0])
		}
	}

	if err := orch.Run(context.Background(), orchestrator.Request{Code: string(code), Language: lang}); err != nil {
		if orchestrator.KindOf(err) == orchestrator.KindNotSupported {
			fmt.Fprintln(out)
		}
		return err
	}

	go forwardInput(rl, orch)
	<-done
	return nil
}

// forwardInput sends typed lines to the program until stdin closes or the
// user interrupts, which stops the program.
func forwardInput(rl *readline.Instance, orch *orchestrator.Orchestrator) {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			orch.Stop()
			return
		}
		if err != nil {
			return
		}
		orch.SendInput(line)
	}
}

func printStop(w io.Writer, data string) {
	if data == "" {
		fmt.Fprintln(w, "\n"+abortedStyle.Render("[Run Aborted]"))
		return
	}
	fmt.Fprintln(w, finishedStyle.Render(data))
}

// detectLanguage picks the profile whose source file has the same extension
// as path.
func detectLanguage(profiles []profile.Profile, path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	for _, p := range profiles {
		if strings.ToLower(filepath.Ext(p.Source)) == ext {
			return p.ID
		}
	}
	return ""
}
