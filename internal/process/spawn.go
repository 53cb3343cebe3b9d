package process

import (
	"errors"
	"io/fs"
	"os/exec"
)

// IsCommandNotFound reports whether err means the executable named by a
// command does not exist, either on PATH or at the given path.
func IsCommandNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// Configure applies the platform spawn attributes to cmd: console-window
// suppression where the platform shows one by default, and a dedicated
// process group where the platform supports group kill.
func Configure(cmd *exec.Cmd) {
	configure(cmd)
}

// HidesConsoleWindow reports whether spawned children are started with
// console-window suppression on this platform.
func HidesConsoleWindow() bool {
	return hideConsoleWindow
}
