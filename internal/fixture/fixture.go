// Package fixture loads and validates declarative test case files.
//
// A fixture file is a JSON (or YAML) array of test cases. Every file is
// checked against an embedded JSON Schema before decoding, so the rest of
// jftest only ever sees complete, well-typed fixtures.
package fixture

import "strings"

// Fixture describes one black-box test case.
type Fixture struct {
	Name           string   `json:"testName"`
	Executable     string   `json:"binaryPath"`
	Args           []string `json:"arguments"`
	InputFile      string   `json:"inputFile,omitempty"`
	Stdin          []string `json:"commandLineInputs"`
	ExpectedCode   int      `json:"expectedReturnCode"`
	ExpectedStdout string   `json:"expectedStdoutOutput"`
	ExpectedStderr string   `json:"expectedStderrOutput"`

	// Source is the base name of the file the fixture was read from.
	Source string `json:"-"`
}

// Argv returns the command line for the fixture: the executable, its
// arguments and, when set, the input file as the final operand.
func (f Fixture) Argv() []string {
	argv := make([]string, 0, len(f.Args)+2)
	argv = append(argv, f.Executable)
	argv = append(argv, f.Args...)
	if f.InputFile != "" {
		argv = append(argv, f.InputFile)
	}
	return argv
}

// StdinLines returns the scripted input with exactly one trailing newline
// per line.
func (f Fixture) StdinLines() []string {
	lines := make([]string, len(f.Stdin))
	for i, l := range f.Stdin {
		if !strings.HasSuffix(l, "\n") {
			l += "\n"
		}
		lines[i] = l
	}
	return lines
}
