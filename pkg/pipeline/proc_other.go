//go:build !unix

package pipeline

import (
	"errors"
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

// signalGroup only reaches the direct child on this platform.
func signalGroup(cmd *exec.Cmd, mode stopMode) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	var err error
	if mode == stopForce {
		err = cmd.Process.Kill()
	} else {
		err = cmd.Process.Signal(os.Interrupt)
	}
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
