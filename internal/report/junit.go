package report

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

// DefaultJUnitPath is where the JUnit report is written unless configured.
const DefaultJUnitPath = "jf_test.xml"

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Status    string        `xml:"status,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
	SystemErr string        `xml:"system-err,omitempty"`
}

type junitProblem struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// JUnit renders the run as a JUnit XML document with one test suite per
// fixture file.
func JUnit(result *RunResult) ([]byte, error) {
	doc := junitTestSuites{}
	var total time.Duration
	for _, s := range Suites(result) {
		suite := junitTestSuite{Name: s.Name}
		var elapsed time.Duration
		for _, c := range s.Cases {
			tc := junitTestCase{
				Name:      c.Name,
				Classname: s.Name,
				Time:      seconds(c.Duration),
				Status:    string(c.Status),
				SystemOut: c.Stdout,
				SystemErr: c.Stderr,
			}
			switch c.Status {
			case Failed:
				tc.Failure = &junitProblem{Type: c.Reason, Message: c.Reason, Body: Diagnostic(c)}
				suite.Failures++
			case Crashed:
				tc.Error = &junitProblem{Type: "crash", Message: c.Reason, Body: Diagnostic(c)}
				suite.Errors++
			}
			suite.Cases = append(suite.Cases, tc)
			elapsed += c.Duration
		}
		suite.Tests = len(s.Cases)
		suite.Time = seconds(elapsed)

		doc.Tests += suite.Tests
		doc.Failures += suite.Failures
		doc.Errors += suite.Errors
		total += elapsed
		doc.Suites = append(doc.Suites, suite)
	}
	doc.Time = seconds(total)

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshalling junit report: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// WriteJUnit writes the JUnit report for result to path.
func WriteJUnit(path string, result *RunResult) error {
	data, err := JUnit(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// RemoveJUnit deletes a previously written report. A missing file is not
// an error.
func RemoveJUnit(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
