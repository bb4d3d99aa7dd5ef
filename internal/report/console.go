package report

import (
	"fmt"
	"io"
	"strings"
)

// Diagnostic renders the one-message summary of a case, including the
// expected and actual values for failures.
func Diagnostic(c Case) string {
	var b strings.Builder
	switch c.Status {
	case Passed:
		fmt.Fprintf(&b, "Test %q passed", c.Name)
	case Failed:
		fmt.Fprintf(&b, "Test %q failed: %s", c.Name, c.Reason)
		switch c.Reason {
		case ReasonStdout:
			fmt.Fprintf(&b, "\nExpected output is:\n%s\nActual output is:\n%s", c.Expected, c.Actual)
		case ReasonStderr:
			fmt.Fprintf(&b, "\nExpected error output is:\n%s\nActual error output is:\n%s", c.Expected, c.Actual)
		default:
			fmt.Fprintf(&b, ": expected %s, actual %s", c.Expected, c.Actual)
		}
	case Crashed:
		fmt.Fprintf(&b, "Test %q crashed: ", c.Name)
		switch c.Reason {
		case ReasonSignal:
			fmt.Fprintf(&b, "the program crashed with signal %d", c.ExitCode)
			if c.Signal != "" {
				fmt.Fprintf(&b, " (%s)", c.Signal)
			}
		case ReasonTimeout:
			b.WriteString(c.Detail)
		default:
			fmt.Fprintf(&b, "the binary path %q is invalid", c.Binary)
			if c.Detail != "" {
				fmt.Fprintf(&b, " (%s)", c.Detail)
			}
		}
	default:
		fmt.Fprintf(&b, "Test %q: unknown status %q", c.Name, c.Status)
	}
	return b.String()
}

// Synthesis renders the final totals line.
func Synthesis(s Summary) string {
	return fmt.Sprintf("[====] Synthesis: Tested: %d | Passing: %d | Failing: %d | Crashing: %d",
		s.Total, s.Passed, s.Failed, s.Crashed)
}

// WriteConsole prints a diagnostic for every failed or crashed case (and
// for passed cases when verbose is set), then the synthesis line.
func WriteConsole(w io.Writer, result *RunResult, verbose bool) error {
	for _, c := range result.Cases {
		if c.Status == Passed && !verbose {
			continue
		}
		if _, err := fmt.Fprintln(w, Diagnostic(c)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Synthesis(result.Summary))
	return err
}
