//go:build unix

package launcher

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// setProcessGroup puts the child in its own group so that anything it spawns
// (the binary behind "go run", node under npm) is signalled with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

func interruptGroup(p *os.Process) error {
	return signalGroup(p, syscall.SIGINT)
}

// stopGroup interrupts whatever is left of the group once the leader has
// exited, then kills it if it is still there after grace.
func stopGroup(p *os.Process, grace time.Duration) {
	if signalGroup(p, syscall.SIGINT) != nil {
		return
	}
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if signalGroup(p, 0) != nil {
			return
		}
		time.Sleep(groupPollInterval)
	}
	_ = signalGroup(p, syscall.SIGKILL)
}
