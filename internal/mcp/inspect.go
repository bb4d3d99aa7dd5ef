package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/jftest/internal/report"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a jf_run result"`
	Test   string `json:"test" jsonschema:"the test name (testName in the fixture file)"`
	Source string `json:"source,omitempty" jsonschema:"fixture file base name, to disambiguate tests that share a name"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Test == "" {
		return errorResult("test is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	cases := report.ByName(result, params.Test, params.Source)
	if len(cases) == 0 {
		return textResult(fmt.Sprintf("No test named %q in run %s.", params.Test, params.RunID))
	}

	return textResult(formatInspectOutput(params.RunID, cases))
}

func formatInspectOutput(runID string, cases []report.Case) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	for _, c := range cases {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s (%s): %s\n", c.Name, c.Source, strings.ToUpper(string(c.Status)))
		fmt.Fprintf(&b, "Binary: %s\n", c.Binary)
		fmt.Fprintf(&b, "Return code: %d\n", c.ExitCode)
		if c.Signal != "" {
			fmt.Fprintf(&b, "Signal: %s\n", c.Signal)
		}
		fmt.Fprintf(&b, "Duration: %s\n", c.Duration)
		if c.Status != report.Passed {
			fmt.Fprintln(&b, report.Diagnostic(c))
		}

		writeBlock(&b, "Stdout", c.Stdout)
		writeBlock(&b, "Stderr", c.Stderr)
		if c.Truncated {
			fmt.Fprintln(&b, "(output truncated)")
		}
	}

	return b.String()
}

func writeBlock(b *strings.Builder, title, text string) {
	if text == "" {
		fmt.Fprintf(b, "%s: (empty)\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
