package process

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/michaelbrown/opencompiler/internal/events"
)

// The test binary doubles as the child process: when started with
// helperEnv set it runs one of the helper modes below instead of the tests.
const helperEnv = "OPENCOMPILER_PROCESS_HELPER"

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(runHelper(os.Args[1:]))
	}
	os.Setenv(helperEnv, "1")
	os.Exit(m.Run())
}

func helperCommand(mode string, args ...string) []string {
	return append([]string{os.Args[0], mode}, args...)
}

func runHelper(args []string) int {
	if len(args) == 0 {
		return 2
	}
	switch args[0] {
	case "echo":
		for _, a := range args[1:] {
			fmt.Print(a)
		}
	case "both":
		fmt.Fprint(os.Stdout, "out\n")
		fmt.Fprint(os.Stderr, "err\n")
	case "echo-line":
		fmt.Print("Enter a number: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return 1
		}
		fmt.Printf("got: %s", line)
	case "sleep":
		fmt.Println("ready")
		time.Sleep(time.Hour)
	case "exit":
		code, _ := strconv.Atoi(args[1])
		return code
	default:
		return 2
	}
	return 0
}

// waitForStops blocks until rec has seen n term_stop events.
func waitForStops(t *testing.T, rec *events.Recorder, n int) {
	t.Helper()
	deadline := time.After(15 * time.Second)
	for rec.Stops() < n {
		select {
		case <-rec.Changed():
		case <-deadline:
			t.Fatalf("timed out waiting for %d term_stop events; got %+v", n, rec.Events())
		}
	}
}

// waitForOutput blocks until the recorded output contains want.
func waitForOutput(t *testing.T, rec *events.Recorder, want string) {
	t.Helper()
	deadline := time.After(15 * time.Second)
	for !strings.Contains(rec.Output(), want) {
		select {
		case <-rec.Changed():
		case <-deadline:
			t.Fatalf("timed out waiting for output %q; got %q", want, rec.Output())
		}
	}
}
