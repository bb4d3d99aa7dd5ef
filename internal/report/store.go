// Package report renders and persists the results of a jftest run:
// console diagnostics, JUnit XML for CI systems, and a run store that
// lets a past run be inspected test by test.
package report

import "time"

// Status is the tri-state outcome of one test case.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Crashed Status = "crashed"
)

// Reasons recorded in Case.Reason for failed and crashed cases.
const (
	ReasonStdout   = "stdout mismatch"
	ReasonStderr   = "stderr mismatch"
	ReasonExitCode = "return code mismatch"
	ReasonLaunch   = "binary not found/invalid"
	ReasonSignal   = "signal"
	ReasonTimeout  = "timeout"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult is the report-side view of one run: every case in execution
// order plus the totals.
type RunResult struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Cases   []Case    `json:"cases"`
	Summary Summary   `json:"summary"`
}

// Summary holds the aggregate counts of a run.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Crashed int `json:"crashed"`
}

// Case is one executed fixture with its captured streams and outcome.
type Case struct {
	Name   string `json:"name"`
	Source string `json:"source"` // fixture file base name; one JUnit suite per source
	Binary string `json:"binary"`

	Status Status `json:"status"`
	// Reason is one of the Reason constants. Empty when passed.
	Reason   string `json:"reason,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Detail   string `json:"detail,omitempty"`

	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exit_code"`
	Signal    string        `json:"signal,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether any case failed or crashed.
func (r *RunResult) Failed() bool {
	return r.Summary.Failed > 0 || r.Summary.Crashed > 0
}

// ByName returns every case called name, optionally restricted to one
// source file. Duplicate names are legal, so several cases may match.
func ByName(result *RunResult, name, source string) []Case {
	var out []Case
	for _, c := range result.Cases {
		if c.Name != name {
			continue
		}
		if source != "" && c.Source != source {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Suite is a group of cases sharing a source file.
type Suite struct {
	Name  string
	Cases []Case
}

// Suites groups the cases by source file, in order of first appearance.
func Suites(result *RunResult) []Suite {
	var suites []Suite
	index := make(map[string]int)
	for _, c := range result.Cases {
		i, ok := index[c.Source]
		if !ok {
			i = len(suites)
			index[c.Source] = i
			suites = append(suites, Suite{Name: c.Source})
		}
		suites[i].Cases = append(suites[i].Cases, c)
	}
	return suites
}
