package process

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// stderrTailSize bounds how much subprocess stderr is retained for
// diagnostics on long-running streams.
const stderrTailSize = 8 * 1024

// Handle is a running subprocess whose stdout is consumed incrementally.
// Callers read from Stdout until EOF and then call Wait, or call Stop to
// terminate early.
type Handle struct {
	c      *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	grace  time.Duration
	start  time.Time

	waitOnce sync.Once
	waitErr  error
}

// Start launches a subprocess and returns a Handle for streaming its
// standard output. Standard error is captured up to a fixed tail so a
// failure mid-stream still has something to report.
func Start(ctx context.Context, cmd Command) (*Handle, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	tail := newTailBuffer(stderrTailSize)
	c.Stderr = tail

	// Use process group so we can kill the entire tree
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}

	return &Handle{
		c:      c,
		stdout: stdout,
		stderr: tail,
		grace:  gracePeriod,
		start:  time.Now(),
	}, nil
}

// Stdout returns the pipe carrying the subprocess's standard output.
// Reading it to EOF before calling Wait is the normal shutdown order.
func (h *Handle) Stdout() io.Reader { return h.stdout }

// Wait blocks until the subprocess exits and reports its final status.
// Safe to call more than once; later calls return the first result.
func (h *Handle) Wait() error {
	h.waitOnce.Do(func() {
		if err := h.c.Wait(); err != nil {
			h.waitErr = fmt.Errorf("process: exit code %d: %w", h.c.ProcessState.ExitCode(), err)
		}
	})
	return h.waitErr
}

// Stop terminates the subprocess early: SIGTERM to the process group
// first, SIGKILL once the grace period runs out. Stop reaps the process
// and returns its final status.
func (h *Handle) Stop() error {
	if h.c.Process != nil {
		_ = syscall.Kill(-h.c.Process.Pid, syscall.SIGTERM)
	}

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(h.grace):
		if h.c.Process != nil {
			_ = syscall.Kill(-h.c.Process.Pid, syscall.SIGKILL)
		}
		return <-done
	}
}

// Stderr returns the retained tail of the subprocess's standard error.
func (h *Handle) Stderr() []byte { return h.stderr.Bytes() }

// ExitCode reports the subprocess exit code, or -1 before it has exited.
func (h *Handle) ExitCode() int {
	if h.c.ProcessState == nil {
		return -1
	}
	return h.c.ProcessState.ExitCode()
}

// Duration reports how long the subprocess has been running.
func (h *Handle) Duration() time.Duration { return time.Since(h.start) }

// tailBuffer is an io.Writer that keeps only the last max bytes written.
// Writes arrive from the exec copy goroutine, reads from the caller.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
