package runner

import (
	"syscall"
	"time"
)

// Termination describes how a child process ended.
type Termination int

const (
	// Exited means the process returned an exit code on its own.
	Exited Termination = iota
	// Signaled means the process was terminated by a signal.
	Signaled
	// TimedOut means the process outlived the runner's timeout and was killed.
	TimedOut
	// LaunchFailed means the process could not be started at all.
	LaunchFailed
)

func (t Termination) String() string {
	switch t {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case TimedOut:
		return "timed out"
	case LaunchFailed:
		return "failed to launch"
	default:
		return "unknown"
	}
}

// Result holds the captured interaction with one child process.
type Result struct {
	RunID       string         // unique identifier for this execution
	Argv        []string       // command line that was launched
	Termination Termination    // how the process ended
	ExitCode    int            // exit code; 128+signal when Signaled, -1 when unknown
	Signal      syscall.Signal // terminating signal when Signaled
	Stdout      []byte         // captured stdout (may be truncated)
	Stderr      []byte         // captured stderr (may be truncated)
	Truncated   bool           // true if either stream exceeded the size cap
	Duration    time.Duration  // wall time from start to exit
	Timeout     time.Duration  // limit the process ran under; zero when none
	Err         error          // launch error, or an I/O error while draining
}
