//go:build !windows

package coach

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the coach in its own process group so a timeout
// kills any children it spawned as well.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
