//go:build unix

package subprocess

import (
	stderrors "errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the worker in its own process group so Kill reaches
// anything it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcess sends SIGKILL to the worker's process group, falling back to the
// process itself.
func killProcess(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil {
		return nil
	}

	if !stderrors.Is(err, syscall.ESRCH) {
		return err
	}

	return p.Kill()
}
