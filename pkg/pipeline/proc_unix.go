//go:build unix

package pipeline

import (
	"errors"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalGroup signals the whole process group led by cmd. A group that is
// already gone is not an error.
func signalGroup(cmd *exec.Cmd, mode stopMode) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	sig := syscall.SIGTERM
	if mode == stopForce {
		sig = syscall.SIGKILL
	}

	// Setpgid makes the child the group leader, so PGID == PID.
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}
