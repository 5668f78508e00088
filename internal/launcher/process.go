package launcher

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// outputLimit bounds how much child output is kept for failure reports
const outputLimit = 64 << 10

const groupPollInterval = 50 * time.Millisecond

// terminateGrace is how long a child's process group gets between the
// interrupt and the kill
var terminateGrace = 5 * time.Second

// Process is a child started by the launcher. Its output is streamed to the
// given writer and the tail is retained for diagnostics.
type Process struct {
	Name string

	cmd    *exec.Cmd
	output *tailBuffer
	done   chan struct{}
	err    error
}

// StartProcess runs argv in dir with extra environment, in a process group of
// its own. Cancelling ctx interrupts the whole group, escalating to a kill
// after terminateGrace. Exited does not close until the group is gone.
func StartProcess(ctx context.Context, name, dir string, env []string, stream io.Writer, argv ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return interruptGroup(cmd.Process)
	}
	cmd.WaitDelay = terminateGrace

	p := &Process{
		Name:   name,
		cmd:    cmd,
		output: &tailBuffer{limit: outputLimit},
		done:   make(chan struct{}),
	}
	var sink io.Writer = p.output
	if stream != nil {
		sink = io.MultiWriter(p.output, stream)
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go func() {
		p.err = cmd.Wait()
		stopGroup(cmd.Process, terminateGrace)
		close(p.done)
	}()

	return p, nil
}

// Exited closes once the process has terminated
func (p *Process) Exited() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its exit error
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Output returns the retained tail of stdout and stderr
func (p *Process) Output() string {
	return p.output.String()
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, data...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(data), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
