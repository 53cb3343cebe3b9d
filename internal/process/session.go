package process

import (
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Spec describes the process a session runs.
type Spec struct {
	ID       string
	Language string
	Command  []string
	Dir      string
}

// Session is one started child process. The Controller owns its lifecycle;
// the streamer only reads its output and reports termination.
type Session struct {
	id       string
	language string
	cmd      *exec.Cmd
	stdin    *os.File
	output   *os.File
	started  time.Time

	// inputMu keeps concurrent SendInput lines from interleaving.
	inputMu sync.Mutex

	// status is guarded by Controller.mu.
	status Status

	killed   atomic.Bool
	exitCode int // written by the streamer before done is closed
	done     chan struct{}
}

// Info is a point-in-time view of a session.
type Info struct {
	ID        string    `json:"run_id"`
	Language  string    `json:"language"`
	Status    Status    `json:"status"`
	Pid       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	// ExitCode is set once the session's streamer has finished.
	ExitCode *int `json:"exit_code,omitempty"`
}

// ID returns the run identifier the session was started for.
func (s *Session) ID() string { return s.id }

// Language returns the language identifier of the run.
func (s *Session) Language() string { return s.language }

// Pid returns the child's process id.
func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Done is closed after the streamer has emitted the session's term_stop.
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitCode is the child's exit code, or -1 if it was killed by a signal.
// Valid only after Done is closed.
func (s *Session) ExitCode() int { return s.exitCode }

// Killed reports whether the controller force-terminated the session.
func (s *Session) Killed() bool { return s.killed.Load() }

func (s *Session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) info() Info {
	info := Info{
		ID:        s.id,
		Language:  s.language,
		Status:    s.status,
		Pid:       s.Pid(),
		StartedAt: s.started,
	}
	if s.exited() {
		code := s.exitCode
		info.ExitCode = &code
	}
	return info
}
