package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/jftest/internal/fixture"
)

type listParams struct {
	Files []string `json:"files" jsonschema:"fixture files to validate, absolute or relative to the workspace"`
}

func (h *handler) listHandler(ctx context.Context, req *mcp.CallToolRequest, params listParams) (*mcp.CallToolResult, any, error) {
	if len(params.Files) == 0 {
		return errorResult("files is required")
	}

	h.mu.Lock()
	files := h.resolve(params.Files)
	h.mu.Unlock()

	fixtures, err := loadFixtures(files)
	if err != nil {
		return errorResult(err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tests (%d):\n", len(fixtures))
	source := ""
	for _, f := range fixtures {
		if f.Source != source {
			source = f.Source
			fmt.Fprintf(&b, "%s:\n", source)
		}
		fmt.Fprintf(&b, "  %s: %s", f.Name, strings.Join(f.Argv(), " "))
		if n := len(f.Stdin); n > 0 {
			fmt.Fprintf(&b, " (%d input lines)", n)
		}
		fmt.Fprintf(&b, " -> return code %d\n", f.ExpectedCode)
	}

	return textResult(b.String())
}

func loadFixtures(files []string) ([]fixture.Fixture, error) {
	fixtures, err := fixture.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("loading fixtures: %w", err)
	}
	return fixtures, nil
}
