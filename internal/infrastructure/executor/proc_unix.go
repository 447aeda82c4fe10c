//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// detach starts the child in its own process group so a terminal Ctrl-C reaches
// dexter only.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
