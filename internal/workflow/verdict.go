package workflow

import (
	"fmt"
	"syscall"
	"time"

	"github.com/deixis/jftest/internal/report"
)

// Kind is the tri-state outcome of one fixture.
type Kind int

const (
	KindPassed Kind = iota
	KindFailed
	KindCrashed
)

func (k Kind) String() string {
	switch k {
	case KindPassed:
		return "passed"
	case KindFailed:
		return "failed"
	case KindCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Verdict is the classification of one fixture run. It is one of
// Passed, Failed or Crashed.
type Verdict interface {
	Kind() Kind
	verdict()
}

// Passed means every expectation held.
type Passed struct{}

// Mismatch names the first expectation a run did not meet.
type Mismatch int

const (
	StdoutMismatch Mismatch = iota
	StderrMismatch
	ExitCodeMismatch
)

func (m Mismatch) String() string {
	switch m {
	case StdoutMismatch:
		return report.ReasonStdout
	case StderrMismatch:
		return report.ReasonStderr
	case ExitCodeMismatch:
		return report.ReasonExitCode
	default:
		return "unknown mismatch"
	}
}

// Failed means the process completed but its behaviour differed from the
// expectation. Expected and Actual hold the compared values; exit codes
// are rendered in decimal.
type Failed struct {
	Reason   Mismatch
	Expected string
	Actual   string
}

// CrashCause explains why a run is a crash rather than a mismatch.
type CrashCause int

const (
	CauseLaunch CrashCause = iota
	CauseSignal
	CauseTimeout
)

func (c CrashCause) String() string {
	switch c {
	case CauseLaunch:
		return report.ReasonLaunch
	case CauseSignal:
		return report.ReasonSignal
	case CauseTimeout:
		return report.ReasonTimeout
	default:
		return "unknown"
	}
}

// Crashed means the process never completed normally.
type Crashed struct {
	Cause    CrashCause
	Signal   syscall.Signal // set for CauseSignal
	ExitCode int            // 128+signal for CauseSignal
	Timeout  time.Duration  // set for CauseTimeout
	Detail   string         // launch error for CauseLaunch
}

func (Passed) Kind() Kind  { return KindPassed }
func (Failed) Kind() Kind  { return KindFailed }
func (Crashed) Kind() Kind { return KindCrashed }

func (Passed) verdict()  {}
func (Failed) verdict()  {}
func (Crashed) verdict() {}

func (c Crashed) String() string {
	switch c.Cause {
	case CauseSignal:
		return fmt.Sprintf("crashed with signal %d (%v)", c.ExitCode, c.Signal)
	case CauseTimeout:
		return fmt.Sprintf("timed out after %v", c.Timeout)
	default:
		return fmt.Sprintf("%s: %s", c.Cause, c.Detail)
	}
}
