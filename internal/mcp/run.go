package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/jftest/internal/report"
)

type runParams struct {
	Files   []string `json:"files" jsonschema:"fixture files to run, absolute or relative to the workspace; tests run in file order then declaration order"`
	Verbose bool     `json:"verbose,omitempty" jsonschema:"also report passing tests"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if len(params.Files) == 0 {
		return errorResult("files is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fixtures, err := loadFixtures(h.resolve(params.Files))
	if err != nil {
		return errorResult(err.Error())
	}

	result, err := h.engine.Run(ctx, fixtures)
	if err != nil {
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}
	rr := result.Report()

	// Save results for jf_inspect.
	if err := h.store.Save(rr); err != nil {
		h.log.WithError(err).WithField("run", rr.ID).Warn("storing run")
	}

	return textResult(formatRun(rr, params.Verbose))
}

func formatRun(rr *report.RunResult, verbose bool) string {
	var b strings.Builder

	if rr.Failed() {
		fmt.Fprintln(&b, "Status: FAIL")
	} else {
		fmt.Fprintln(&b, "Status: PASS")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintln(&b)

	_ = report.WriteConsole(&b, rr, verbose)

	if rr.Failed() {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Failures:")
		for _, c := range rr.Cases {
			if c.Status == report.Passed {
				continue
			}
			fmt.Fprintf(&b, "  %s/%s: %s (%s)\n", c.Source, c.Name, c.Status, c.Reason)
		}
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Inspect with jf_inspect(run_id=%q, test=\"<test name>\").\n", rr.ID)
	} else {
		fmt.Fprintf(&b, "All %d tests passed in %s.\n", rr.Summary.Total, totalDuration(rr).Round(time.Millisecond))
	}

	return b.String()
}

func totalDuration(rr *report.RunResult) time.Duration {
	var d time.Duration
	for _, c := range rr.Cases {
		d += c.Duration
	}
	return d
}
