package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/deixis/jftest/internal/fixture"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Workspace: t.TempDir(),
		Timeout:   10 * time.Second,
		MaxOutput: 1 << 20,
		KillGrace: 200 * time.Millisecond,
	}
}

func sh(script string, stdin ...string) fixture.Fixture {
	return fixture.Fixture{
		Name:       "sh",
		Executable: "/bin/sh",
		Args:       []string{"-c", script},
		Stdin:      stdin,
	}
}

func TestExecute_Success(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), fixture.Fixture{
		Name:       "echo-ok",
		Executable: "echo",
		Args:       []string{"hello"},
	})
	if res.Termination != Exited {
		t.Fatalf("Termination = %v, want exited (err: %v)", res.Termination, res.Err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if string(res.Stdout) != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), sh("echo oops >&2; exit 3"))
	if res.Termination != Exited {
		t.Fatalf("Termination = %v, want exited", res.Termination)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if string(res.Stderr) != "oops\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "oops\n")
	}
}

func TestExecute_BinaryNotFound(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), fixture.Fixture{Executable: "/no/such/binary"})
	if res.Termination != LaunchFailed {
		t.Fatalf("Termination = %v, want failed to launch", res.Termination)
	}
	if res.Err == nil {
		t.Fatal("Err is nil, want launch error")
	}
	if !strings.Contains(res.Err.Error(), "/no/such/binary") {
		t.Errorf("Err = %q, want to mention the binary path", res.Err)
	}
	if len(res.Stdout) != 0 || len(res.Stderr) != 0 {
		t.Errorf("streams = %q / %q, want empty", res.Stdout, res.Stderr)
	}
}

func TestExecute_NotExecutable(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(r.Workspace, "data.txt")
	if err := os.WriteFile(path, []byte("not a program"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(context.Background(), fixture.Fixture{Executable: path})
	if res.Termination != LaunchFailed {
		t.Fatalf("Termination = %v, want failed to launch", res.Termination)
	}
}

func TestExecute_StdinLines(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), fixture.Fixture{
		Executable: "cat",
		Stdin:      []string{"first", "second\n", ""},
	})
	if res.Termination != Exited {
		t.Fatalf("Termination = %v, want exited", res.Termination)
	}
	want := "first\nsecond\n\n"
	if string(res.Stdout) != want {
		t.Errorf("Stdout = %q, want %q", res.Stdout, want)
	}
}

func TestExecute_InteractiveQuit(t *testing.T) {
	r := newTestRunner(t)
	script := `while read line; do
  if [ "$line" = quit ]; then echo bye; exit 0; fi
  echo "got $line"
done
exit 1`
	res := r.Execute(context.Background(), sh(script, "a", "b", "quit", "never read"))
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	want := "got a\ngot b\nbye\n"
	if string(res.Stdout) != want {
		t.Errorf("Stdout = %q, want %q", res.Stdout, want)
	}
}

func TestExecute_EmptyStdinImmediateExit(t *testing.T) {
	r := newTestRunner(t)
	done := make(chan *Result, 1)
	go func() {
		done <- r.Execute(context.Background(), fixture.Fixture{Executable: "true"})
	}()
	select {
	case res := <-done:
		if res.Termination != Exited || res.ExitCode != 0 {
			t.Errorf("got %v/%d, want exited/0", res.Termination, res.ExitCode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute blocked on a child that exits immediately")
	}
}

func TestExecute_ChildIgnoresStdin(t *testing.T) {
	r := newTestRunner(t)
	// Far more input than a pipe buffer holds, for a child that never reads.
	line := strings.Repeat("x", 4096)
	lines := make([]string, 512)
	for i := range lines {
		lines[i] = line
	}
	res := r.Execute(context.Background(), fixture.Fixture{Executable: "true", Stdin: lines})
	if res.Termination != Exited {
		t.Fatalf("Termination = %v, want exited", res.Termination)
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil for a closed stdin", res.Err)
	}
}

func TestExecute_NoPipeDeadlock(t *testing.T) {
	r := newTestRunner(t)
	// The child fills both output pipes well beyond their buffers before
	// it reads any input, while the parent has a large input to deliver.
	script := `head -c 262144 /dev/zero; head -c 262144 /dev/zero >&2; cat >/dev/null; echo done`
	line := strings.Repeat("y", 1023)
	lines := make([]string, 256)
	for i := range lines {
		lines[i] = line
	}
	res := r.Execute(context.Background(), sh(script, lines...))
	if res.Termination != Exited {
		t.Fatalf("Termination = %v, want exited (err: %v)", res.Termination, res.Err)
	}
	if got := len(res.Stdout); got != 262144+len("done\n") {
		t.Errorf("len(Stdout) = %d, want %d", got, 262144+len("done\n"))
	}
	if got := len(res.Stderr); got != 262144 {
		t.Errorf("len(Stderr) = %d, want 262144", got)
	}
}

func TestExecute_Signal(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), sh("echo before; kill -SEGV $$"))
	if res.Termination != Signaled {
		t.Fatalf("Termination = %v, want signaled", res.Termination)
	}
	if res.Signal != syscall.SIGSEGV {
		t.Errorf("Signal = %v, want SIGSEGV", res.Signal)
	}
	if res.ExitCode != 139 {
		t.Errorf("ExitCode = %d, want 139", res.ExitCode)
	}
	if string(res.Stdout) != "before\n" {
		t.Errorf("Stdout = %q, want captured output before the crash", res.Stdout)
	}
}

func TestExecute_SegfaultExitCodeConvention(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), sh("exit 139"))
	if res.Termination != Signaled {
		t.Fatalf("Termination = %v, want signaled", res.Termination)
	}
	if res.Signal != syscall.SIGSEGV {
		t.Errorf("Signal = %v, want SIGSEGV", res.Signal)
	}
}

func TestExecute_Timeout(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 200 * time.Millisecond

	start := time.Now()
	res := r.Execute(context.Background(), sh("echo started; sleep 10"))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Execute took %v, want the timeout to stop it", elapsed)
	}
	if res.Termination != TimedOut {
		t.Fatalf("Termination = %v, want timed out", res.Termination)
	}
	if res.Timeout != 200*time.Millisecond {
		t.Errorf("Timeout = %v, want 200ms", res.Timeout)
	}
	if string(res.Stdout) != "started\n" {
		t.Errorf("Stdout = %q, want output captured before the kill", res.Stdout)
	}
}

func TestExecute_TimeoutKillsDescendants(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 200 * time.Millisecond

	start := time.Now()
	res := r.Execute(context.Background(), sh("sleep 10 & sleep 10; wait"))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Execute took %v, want descendants killed with the child", elapsed)
	}
	if res.Termination != TimedOut {
		t.Errorf("Termination = %v, want timed out", res.Termination)
	}
}

func TestExecute_TimeoutWhileBlockedOnStdin(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 200 * time.Millisecond

	// The child never reads; the parent's writes block on a full pipe
	// until the kill releases them.
	line := strings.Repeat("z", 4096)
	lines := make([]string, 256)
	for i := range lines {
		lines[i] = line
	}
	start := time.Now()
	res := r.Execute(context.Background(), sh("sleep 10", lines...))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Execute took %v, want the timeout to unblock stdin", elapsed)
	}
	if res.Termination != TimedOut {
		t.Errorf("Termination = %v, want timed out", res.Termination)
	}
}

func TestExecute_InputFile(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(r.Workspace, "in.txt")
	if err := os.WriteFile(path, []byte("from file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(context.Background(), fixture.Fixture{
		Executable: "/bin/sh",
		Args:       []string{"-c", `cat "$0"`},
		InputFile:  path,
	})
	if string(res.Stdout) != "from file\n" {
		t.Errorf("Stdout = %q, want the input file contents", res.Stdout)
	}
}

func TestExecute_WorkingDirectory(t *testing.T) {
	r := newTestRunner(t)
	res := r.Execute(context.Background(), fixture.Fixture{Executable: "pwd"})
	got := strings.TrimSpace(string(res.Stdout))
	want, err := filepath.EvalSymlinks(r.Workspace)
	if err != nil {
		t.Fatal(err)
	}
	if got != want && got != r.Workspace {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestExecute_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100

	res := r.Execute(context.Background(), sh("dd if=/dev/zero bs=200 count=1 2>/dev/null"))
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) != r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestExecute_Idempotent(t *testing.T) {
	r := newTestRunner(t)
	f := sh("cat; echo err >&2; exit 2", "one", "two")
	first := r.Execute(context.Background(), f)
	second := r.Execute(context.Background(), f)
	if !bytes.Equal(first.Stdout, second.Stdout) || !bytes.Equal(first.Stderr, second.Stderr) {
		t.Errorf("outputs differ between runs: %q/%q vs %q/%q", first.Stdout, first.Stderr, second.Stdout, second.Stderr)
	}
	if first.ExitCode != second.ExitCode || first.Termination != second.Termination {
		t.Errorf("status differs between runs: %v/%d vs %v/%d", first.Termination, first.ExitCode, second.Termination, second.ExitCode)
	}
	if first.RunID == second.RunID {
		t.Error("RunID reused across executions")
	}
}

func TestLimitWriter(t *testing.T) {
	w := &limitWriter{limit: 4}
	n, err := w.Write([]byte("ab"))
	if n != 2 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	n, err = w.Write([]byte("cdef"))
	if n != 4 || err != nil {
		t.Fatalf("Write = %d, %v; want all bytes reported consumed", n, err)
	}
	if string(w.Bytes()) != "abcd" {
		t.Errorf("Bytes = %q, want %q", w.Bytes(), "abcd")
	}
	if !w.truncated {
		t.Error("truncated = false, want true")
	}
}
