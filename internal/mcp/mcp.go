// Package mcp provides the jftest MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/deixis/jftest"
	"github.com/deixis/jftest/internal/config"
	"github.com/deixis/jftest/internal/report"
	"github.com/deixis/jftest/internal/runner"
	"github.com/deixis/jftest/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex // serialises runs and workspace updates
	engine    *workflow.Engine
	runner    *runner.Runner // retained for updateWorkspaceFromRoots
	store     report.Store
	workspace string
	log       logrus.FieldLogger
}

// NewServer creates an MCP server with all jftest tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, workspace string, log logrus.FieldLogger) *mcp.Server {
	if log == nil {
		l := logrus.New()
		l.SetLevel(cfg.LogLevel())
		log = l
	}
	h := &handler{
		engine: &workflow.Engine{
			Config: cfg,
			Runner: r,
			Log:    log,
		},
		runner:    r,
		store:     store,
		workspace: workspace,
		log:       log,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "jftest", Version: jftest.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "jf_list",
		Description: "Validate fixture files and list the tests they declare, in execution order.",
	}, h.listHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "jf_run",
		Description: `Run every test declared in the given fixture files and report the verdicts.

Each test launches its binary, feeds its input lines, and compares stdout, stderr and
the return code with the expectation. Results are stored for drill-down via jf_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "jf_inspect",
		Description: `Drill into one test of a previous jf_run.

Use the run_id from the jf_run output and the test name. Returns the full expected and
actual output, captured streams, return code and crash details.`,
	}, h.inspectHandler)

	return s
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's runner and config if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.log.WithError(err).WithField("workspace", workspace).Warn("ignoring client root")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.runner.Workspace = workspace
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()
	h.runner.KillGrace = loaded.Config.KillGrace()

	h.engine.Config = loaded.Config
	h.workspace = workspace
	h.log.WithField("workspace", workspace).Debug("workspace updated from client roots")
}

// resolve makes fixture paths relative to the workspace absolute.
// Callers hold h.mu.
func (h *handler) resolve(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		if f != "" && !filepath.IsAbs(f) && f[0] != '-' {
			f = filepath.Join(h.workspace, f)
		}
		out[i] = f
	}
	return out
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
