package coach

import (
	"os/exec"
	"syscall"
)

// configureProcess hides the console window for the coach on Windows.
// The default Cancel kills the process when the context ends.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}
