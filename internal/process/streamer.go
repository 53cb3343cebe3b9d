package process

import (
	"errors"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/michaelbrown/opencompiler/internal/events"
)

// stream drains the session's merged output, emitting each read as a
// term_output event, then reaps the child and emits exactly one term_stop.
// It never panics outward.
func (c *Controller) stream(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("streamer_panic", "run_id", s.id, "panic", r)
		}
		c.emit.Emit(events.Stop(events.FinishedMarker))
		if c.onExit != nil {
			c.onExit(s, time.Since(s.started))
		}
		close(s.done)
		c.finish(s)
	}()

	buf := make([]byte, c.readChunk)
	var pending []byte
	for {
		n, err := s.output.Read(buf)
		if n > 0 {
			chunk := append(pending, buf[:n]...)
			var complete []byte
			complete, pending = splitUTF8(chunk)
			if len(complete) > 0 {
				c.emit.Emit(events.Output(string(complete)))
			}
		}
		if err != nil {
			break
		}
	}
	if len(pending) > 0 {
		c.emit.Emit(events.Output(string(pending)))
	}

	s.output.Close()
	s.stdin.Close()

	s.exitCode = 0
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.exitCode = exitErr.ExitCode()
		} else {
			s.exitCode = -1
		}
	}

	c.logger.Debug("session_finished",
		"run_id", s.id,
		"exit_code", s.exitCode,
		"killed", s.Killed(),
	)
}

// splitUTF8 splits b before a trailing, incomplete UTF-8 sequence so that no
// event carries half a character. Invalid bytes are passed through.
func splitUTF8(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return b, nil
		}
		return b[:i], b[i:]
	}
	return b, nil
}
