package workflow

import (
	"errors"
	"time"

	"github.com/deixis/jftest/internal/fixture"
	"github.com/deixis/jftest/internal/report"
	"github.com/deixis/jftest/internal/runner"
)

// ErrRunFailed is returned to callers that want a non-nil error when at
// least one fixture failed or crashed.
var ErrRunFailed = errors.New("one or more tests failed")

// CaseResult ties a fixture to what was observed and how it was judged.
type CaseResult struct {
	Fixture fixture.Fixture
	Exec    *runner.Result
	Verdict Verdict
}

// Summary counts verdict kinds over a run.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Crashed int
}

// RunResult is the outcome of one Engine.Run.
type RunResult struct {
	ID      string
	Started time.Time
	Cases   []CaseResult
	Summary Summary
}

// Failed reports whether any verdict is Failed or Crashed.
func (r *RunResult) Failed() bool {
	return r.Summary.Failed > 0 || r.Summary.Crashed > 0
}

func summarize(cases []CaseResult) Summary {
	s := Summary{Total: len(cases)}
	for _, c := range cases {
		switch c.Verdict.Kind() {
		case KindPassed:
			s.Passed++
		case KindFailed:
			s.Failed++
		case KindCrashed:
			s.Crashed++
		}
	}
	return s
}

// Report converts the run into the form consumed by the report package.
func (r *RunResult) Report() *report.RunResult {
	rr := &report.RunResult{
		ID:      r.ID,
		Started: r.Started,
		Cases:   make([]report.Case, 0, len(r.Cases)),
		Summary: report.Summary{
			Total:   r.Summary.Total,
			Passed:  r.Summary.Passed,
			Failed:  r.Summary.Failed,
			Crashed: r.Summary.Crashed,
		},
	}
	for _, c := range r.Cases {
		rr.Cases = append(rr.Cases, toReportCase(c))
	}
	return rr
}

func toReportCase(c CaseResult) report.Case {
	rc := report.Case{
		Name:   c.Fixture.Name,
		Source: c.Fixture.Source,
		Binary: c.Fixture.Executable,
	}
	if c.Exec != nil {
		rc.Stdout = string(c.Exec.Stdout)
		rc.Stderr = string(c.Exec.Stderr)
		rc.ExitCode = c.Exec.ExitCode
		rc.Truncated = c.Exec.Truncated
		rc.Duration = c.Exec.Duration
	}

	switch v := c.Verdict.(type) {
	case Passed:
		rc.Status = report.Passed
	case Failed:
		rc.Status = report.Failed
		rc.Reason = v.Reason.String()
		rc.Expected = v.Expected
		rc.Actual = v.Actual
	case Crashed:
		rc.Status = report.Crashed
		rc.Reason = v.Cause.String()
		rc.ExitCode = v.ExitCode
		switch v.Cause {
		case CauseSignal:
			rc.Signal = v.Signal.String()
		case CauseTimeout:
			rc.Detail = v.String()
		default:
			rc.Detail = v.Detail
		}
	}
	return rc
}
