//go:build !unix

package subprocess

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func killProcess(p *os.Process) error {
	return p.Kill()
}
