// Command jftest runs functional tests against compiled command-line
// programs and reports the verdicts on the console and as JUnit XML.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/deixis/jftest"
	"github.com/deixis/jftest/internal/config"
	"github.com/deixis/jftest/internal/fixture"
	jfmcp "github.com/deixis/jftest/internal/mcp"
	"github.com/deixis/jftest/internal/report"
	"github.com/deixis/jftest/internal/workflow"
)

// exitError is the status for any failed test, crashed test, or usage and
// configuration error.
const exitError = 84

// CLI defines the command-line interface parsed by kong.
type CLI struct {
	Debug   bool       `help:"Enable debug logging on stderr"`
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run the tests declared in fixture files (default)"`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Start the MCP server"`
	Version VersionCmd `cmd:"" help:"Print the version"`
}

type (
	// RunCmd defines the run command flags.
	RunCmd struct {
		Verbose bool          `short:"v" help:"Display the result of passed tests"`
		Delete  bool          `short:"d" help:"Do not generate the XML report and delete it if it exists"`
		Timeout time.Duration `help:"Per-test timeout, overrides the configured value (e.g. 10s)"`
		Report  string        `help:"Path of the JUnit XML report" placeholder:"PATH"`
		JSON    bool          `name:"json" help:"Print the run as JSON instead of console diagnostics"`
		Files   []string      `arg:"" optional:"" help:"Fixture files, run in the order given"`
	}

	// MCPCmd defines the mcp command flags.
	MCPCmd struct {
		HTTP         string `name:"http" help:"Serve streamable HTTP on this address (e.g. :9090) instead of stdio" placeholder:"ADDR"`
		Instructions bool   `help:"Print model instructions and exit"`
	}

	VersionCmd struct{}
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, dispatches to the selected command and returns the
// process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	// Without any argument there is nothing to do.
	if len(args) == 0 {
		return 0
	}

	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("jftest"),
		kong.Description("Functional test runner for command-line programs."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return exitWithError(stdout, err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return exitWithError(stdout, err)
	}

	workspace, err := os.Getwd()
	if err != nil {
		return exitWithError(stdout, fmt.Errorf("determining workspace: %w", err))
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return exitWithError(stdout, fmt.Errorf("loading config: %w", err))
	}
	log := newLogger(stderr, loaded.Config, cli.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch commandName(kctx.Command()) {
	case "run":
		err = runTests(ctx, cli.Run, loaded.Config, workspace, log, stdout)
	case "mcp":
		err = serve(ctx, cli.MCP, loaded.Config, workspace, log, stdout)
	case "version":
		fmt.Fprintln(stdout, jftest.Version)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, workflow.ErrRunFailed):
		return exitError
	default:
		return exitWithError(stdout, err)
	}
}

// commandName returns the leading word of a kong command path such as
// "run <files>".
func commandName(path string) string {
	name, _, _ := strings.Cut(path, " ")
	return name
}

func exitWithError(out io.Writer, err error) int {
	fmt.Fprintf(out, "Error: %v\n", err)
	return exitError
}

func newLogger(w io.Writer, cfg *config.Config, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(cfg.LogLevel())
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// --- run ---

func runTests(ctx context.Context, cmd RunCmd, cfg *config.Config, workspace string, log logrus.FieldLogger, out io.Writer) error {
	fixtures, err := fixture.Load(cmd.Files...)
	if err != nil {
		return err
	}

	r := workflow.NewRunner(cfg, workspace)
	if cmd.Timeout > 0 {
		r.Timeout = cmd.Timeout
	}
	eng := &workflow.Engine{Config: cfg, Runner: r, Log: log}

	result, err := eng.Run(ctx, fixtures)
	if err != nil {
		return err
	}
	rr := result.Report()

	if cmd.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rr); err != nil {
			return err
		}
	} else if err := report.WriteConsole(out, rr, cmd.Verbose); err != nil {
		return err
	}

	path := cfg.ReportPath()
	if cmd.Report != "" {
		path = cmd.Report
	}
	if cmd.Delete || cfg.Report.Disable {
		if err := report.RemoveJUnit(path); err != nil {
			return err
		}
	} else if err := report.WriteJUnit(path, rr); err != nil {
		return err
	}
	log.WithField("path", path).Debug("report updated")

	if rr.Failed() {
		return workflow.ErrRunFailed
	}
	return nil
}

// --- mcp ---

func serve(ctx context.Context, cmd MCPCmd, cfg *config.Config, workspace string, log *logrus.Logger, out io.Writer) error {
	if cmd.Instructions {
		fmt.Fprint(out, jfmcp.Instructions)
		return nil
	}

	store := report.NewLRUStore(cfg.StoreCapacity(), report.NewDiskStore(cfg.Store.Dir))
	r := workflow.NewRunner(cfg, workspace)
	server := jfmcp.NewServer(cfg, r, store, workspace, log)

	if cmd.HTTP != "" {
		return serveHTTP(ctx, server, cmd.HTTP, log)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log logrus.FieldLogger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.WithField("addr", addr).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
