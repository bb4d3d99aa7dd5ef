//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in its own process group and makes
// context cancellation kill the whole group, so helpers spawned by the
// child cannot keep the output pipes open after a timeout.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
