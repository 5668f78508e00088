//go:build !unix

package launcher

import (
	"os"
	"os/exec"
	"time"
)

func setProcessGroup(cmd *exec.Cmd) {}

// interruptGroup kills the child outright; there is no portable interrupt here
func interruptGroup(p *os.Process) error {
	return p.Kill()
}

func stopGroup(p *os.Process, grace time.Duration) {}
