// Package runner drives a single fixture's executable to completion,
// feeding scripted stdin and draining stdout and stderr concurrently so
// that neither side of the pipes can block the other.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deixis/jftest/internal/fixture"
)

// Default values used when a Runner field is left at zero.
const (
	DefaultKillGrace = 2 * time.Second
	DefaultMaxOutput = 16 << 20 // 16 MiB per stream
)

// segfaultExitCode is the conventional 128+SIGSEGV status a shell reports
// for a child killed by a segmentation fault.
const segfaultExitCode = 128 + int(syscall.SIGSEGV)

// Runner executes fixtures as subprocesses.
type Runner struct {
	Workspace string        // working directory for children; empty inherits the caller's
	Timeout   time.Duration // per-execution limit; zero disables it
	MaxOutput int           // bytes kept per stream; zero uses DefaultMaxOutput
	KillGrace time.Duration // wait after a kill before pipes are force-closed
}

// Execute runs f and returns everything observed about it. It never
// returns an error: a process that cannot be started is reported with
// Termination LaunchFailed and empty streams.
func (r *Runner) Execute(ctx context.Context, f fixture.Fixture) *Result {
	argv := f.Argv()
	res := &Result{
		RunID:    uuid.New().String(),
		Argv:     argv,
		ExitCode: -1,
		Timeout:  r.Timeout,
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Workspace
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return launchFailure(res, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return launchFailure(res, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return launchFailure(res, err)
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	stdout := &limitWriter{limit: maxOutput}
	stderr := &limitWriter{limit: maxOutput}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return launchFailure(res, err)
	}

	// Killing the process group normally closes every write end of the
	// output pipes. A descendant that left the group can keep them open,
	// so once the grace period is over the read ends are closed here.
	var closeOnce sync.Once
	closePipes := func() {
		closeOnce.Do(func() {
			_ = stdoutPipe.Close()
			_ = stderrPipe.Close()
			_ = stdin.Close()
		})
	}
	stopWatch := context.AfterFunc(ctx, func() {
		time.AfterFunc(r.killGrace(), closePipes)
	})
	defer stopWatch()

	var g errgroup.Group
	g.Go(func() error {
		feed(stdin, f.StdinLines())
		return nil
	})
	g.Go(func() error {
		return drain(stdout, stdoutPipe)
	})
	g.Go(func() error {
		return drain(stderr, stderrPipe)
	})
	ioErr := g.Wait()

	waitErr := cmd.Wait()
	res.Duration = time.Since(start)
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.Truncated = stdout.truncated || stderr.truncated

	if ctx.Err() == nil && ioErr != nil {
		res.Err = ioErr
	}

	state := cmd.ProcessState
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && (state == nil || !state.Exited()) {
		res.Termination = TimedOut
		return res
	}

	if state == nil {
		// Wait failed before the process could be reaped.
		res.Termination = LaunchFailed
		res.Err = waitErr
		return res
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		res.Termination = Signaled
		res.Signal = ws.Signal()
		res.ExitCode = 128 + int(ws.Signal())
		return res
	}

	res.ExitCode = state.ExitCode()
	if res.ExitCode == segfaultExitCode {
		res.Termination = Signaled
		res.Signal = syscall.SIGSEGV
		return res
	}
	res.Termination = Exited
	return res
}

func (r *Runner) killGrace() time.Duration {
	if r.KillGrace > 0 {
		return r.KillGrace
	}
	return DefaultKillGrace
}

func launchFailure(res *Result, err error) *Result {
	res.Termination = LaunchFailed
	res.Err = err
	res.Stdout = nil
	res.Stderr = nil
	return res
}

// feed writes lines to w and closes it. A write error means the child
// stopped reading (it exited or closed stdin); the remaining lines are
// dropped.
func feed(w io.WriteCloser, lines []string) {
	defer w.Close()
	for _, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return
		}
	}
}

// drain copies r into w until EOF. A read on a pipe end closed by the
// timeout watchdog ends the copy without error.
func drain(w io.Writer, r io.Reader) error {
	_, err := io.Copy(w, r)
	if err != nil && !isClosedPipe(err) {
		return err
	}
	return nil
}

func isClosedPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.EBADF) ||
		errors.Is(err, os.ErrClosed)
}

// limitWriter keeps up to limit bytes and silently discards the rest.
type limitWriter struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *limitWriter) Bytes() []byte {
	return w.buf.Bytes()
}
