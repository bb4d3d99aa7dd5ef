package workflow

import (
	"strconv"

	"github.com/deixis/jftest/internal/fixture"
	"github.com/deixis/jftest/internal/runner"
)

// Classify compares an execution against its fixture and returns exactly
// one verdict. Checks run in a fixed order and the first match wins:
// launch failure, signal or timeout, stdout, stderr, exit code.
func Classify(f fixture.Fixture, res *runner.Result) Verdict {
	switch res.Termination {
	case runner.LaunchFailed:
		detail := "cannot execute " + strconv.Quote(f.Executable)
		if res.Err != nil {
			detail = res.Err.Error()
		}
		return Crashed{Cause: CauseLaunch, ExitCode: res.ExitCode, Detail: detail}
	case runner.TimedOut:
		return Crashed{Cause: CauseTimeout, ExitCode: res.ExitCode, Timeout: res.Timeout}
	case runner.Signaled:
		return Crashed{Cause: CauseSignal, Signal: res.Signal, ExitCode: res.ExitCode}
	}

	if stdout := string(res.Stdout); stdout != f.ExpectedStdout {
		return Failed{Reason: StdoutMismatch, Expected: f.ExpectedStdout, Actual: stdout}
	}
	if stderr := string(res.Stderr); stderr != f.ExpectedStderr {
		return Failed{Reason: StderrMismatch, Expected: f.ExpectedStderr, Actual: stderr}
	}
	if res.ExitCode != f.ExpectedCode {
		return Failed{
			Reason:   ExitCodeMismatch,
			Expected: strconv.Itoa(f.ExpectedCode),
			Actual:   strconv.Itoa(res.ExitCode),
		}
	}
	return Passed{}
}
