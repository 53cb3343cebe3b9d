// Package process owns the single active execution session: it spawns the
// child for a run, replaces it when the next run starts, forwards input to
// it, and streams its merged output as events.
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/michaelbrown/opencompiler/internal/events"
)

// ErrNoSession is reported when input arrives while no child is running.
var ErrNoSession = errors.New("no running session")

const (
	defaultDrainTimeout = 2 * time.Second
	defaultReadChunk    = 256
)

// StartFunc is called once per session after the child is spawned and
// before its streamer starts. It runs with the controller locked and must
// not call back into it.
type StartFunc func(s *Session)

// ExitFunc is called once per session after its term_stop has been emitted
// and before its Done channel is closed.
type ExitFunc func(s *Session, elapsed time.Duration)

// Config holds the settings for a Controller.
type Config struct {
	Emitter events.Emitter
	Logger  *slog.Logger

	// DrainTimeout bounds how long terminating a session waits for its
	// remaining output to be streamed before the pipe is closed under it.
	DrainTimeout time.Duration

	// ReadChunk is the largest unit the streamer reads at once.
	ReadChunk int

	OnStart StartFunc
	OnExit  ExitFunc
}

// Controller holds the process-wide "current session" slot. Every
// transition on the slot happens under mu, so at most one child is ever
// live and a replaced child is dead before its successor is spawned.
type Controller struct {
	emit         events.Emitter
	logger       *slog.Logger
	drainTimeout time.Duration
	readChunk    int
	onStart      StartFunc
	onExit       ExitFunc

	mu      sync.Mutex
	current *Session
	last    *Session
	spawned uint64
}

// NewController creates a Controller with no active session.
func NewController(cfg Config) *Controller {
	c := &Controller{
		emit:         cfg.Emitter,
		logger:       cfg.Logger,
		drainTimeout: cfg.DrainTimeout,
		readChunk:    cfg.ReadChunk,
		onStart:      cfg.OnStart,
		onExit:       cfg.OnExit,
	}
	if c.emit == nil {
		c.emit = events.Discard
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.drainTimeout <= 0 {
		c.drainTimeout = defaultDrainTimeout
	}
	if c.readChunk <= 0 {
		c.readChunk = defaultReadChunk
	}
	return c
}

// Start terminates the current session, if any, and spawns spec.Command as
// the new one. stdout and stderr share one pipe so the streamer sees them
// in the order they were written. Start returns as soon as the child is
// running.
func (c *Controller) Start(spec Spec) (*Session, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("empty command")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.terminateLocked()

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	configure(cmd)

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("output pipe: %w", err)
	}
	cmd.Stdin = inR
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		pr.Close()
		pw.Close()
		return nil, err
	}
	// The child holds its own copies of these ends. Ours must be closed so
	// the reader sees EOF and a blocked writer sees EPIPE once it exits.
	inR.Close()
	pw.Close()

	s := &Session{
		id:       spec.ID,
		language: spec.Language,
		cmd:      cmd,
		stdin:    inW,
		output:   pr,
		started:  time.Now(),
		status:   StatusRunning,
		done:     make(chan struct{}),
	}
	c.current = s
	c.last = s
	c.spawned++

	c.logger.Debug("session_started",
		"run_id", s.id,
		"language", s.language,
		"pid", s.Pid(),
	)

	if c.onStart != nil {
		c.onStart(s)
	}
	go c.stream(s)
	return s, nil
}

// SendInput writes text and a newline to the running session's stdin. It
// reports false, without error, when there is no running session or the
// child no longer accepts input.
//
// The write happens outside mu: a child that stops reading can block it
// until the pipe is closed, and that must not hold up TerminateCurrent.
func (c *Controller) SendInput(text string) bool {
	c.mu.Lock()
	s := c.current
	if s == nil || s.status != StatusRunning || s.exited() {
		c.mu.Unlock()
		c.logger.Debug("input_dropped", "reason", "no_session")
		return false
	}
	c.mu.Unlock()

	s.inputMu.Lock()
	defer s.inputMu.Unlock()
	if _, err := s.stdin.Write([]byte(text + "\n")); err != nil {
		c.logger.Debug("input_dropped",
			"run_id", s.id,
			"error", err,
		)
		return false
	}
	return true
}

// TerminateCurrent force-kills the running session, if any, and waits for
// its streamer to finish. It reports whether a live process was killed.
func (c *Controller) TerminateCurrent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminateLocked()
}

// Current returns the state of the session in the slot, or of the most
// recent session if the slot is empty.
func (c *Controller) Current() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.exited() {
		c.current.status = StatusTerminated
		c.current = nil
	}
	if c.current != nil {
		return c.current.info(), true
	}
	if c.last != nil {
		return c.last.info(), false
	}
	return Info{Status: StatusIdle}, false
}

// Spawned returns how many child processes the controller has started.
func (c *Controller) Spawned() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawned
}

// Close terminates the running session.
func (c *Controller) Close() {
	c.TerminateCurrent()
}

func (c *Controller) terminateLocked() bool {
	s := c.current
	if s == nil {
		return false
	}
	c.current = nil

	if s.exited() {
		s.status = StatusTerminated
		return false
	}

	s.killed.Store(true)
	if err := kill(s.cmd); err != nil {
		c.logger.Warn("kill_failed",
			"run_id", s.id,
			"pid", s.Pid(),
			"error", err,
		)
	}
	// Unblocks a SendInput stuck on a full pipe.
	s.stdin.Close()
	s.status = StatusTerminated

	// Let the streamer flush what the child wrote before dying, so its
	// term_stop precedes anything from the next session.
	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
	}

	// A grandchild outside our reach still holds the pipe open.
	c.logger.Warn("drain_timeout",
		"run_id", s.id,
		"timeout", c.drainTimeout.String(),
	)
	s.output.Close()

	timer.Reset(c.drainTimeout)
	select {
	case <-s.done:
	case <-timer.C:
		c.logger.Error("session_stuck", "run_id", s.id, "pid", s.Pid())
	}
	return true
}

// finish flips a naturally exited session to terminated. Called by the
// streamer after done is closed, so it never contends with a terminateLocked
// that is waiting on done.
func (c *Controller) finish(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.status = StatusTerminated
	if c.current == s {
		c.current = nil
	}
}
