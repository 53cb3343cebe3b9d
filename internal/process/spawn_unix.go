//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

const hideConsoleWindow = false

func configure(cmd *exec.Cmd) {
	// Own process group, so children such as the binary behind `go run`
	// die together with the process we started.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil && pgid == cmd.Process.Pid {
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err == nil {
			return nil
		}
	}
	return cmd.Process.Kill()
}
