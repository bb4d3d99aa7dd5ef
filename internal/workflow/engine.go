// Package workflow sequences a jftest run: it executes each fixture,
// classifies what happened, and aggregates the verdicts. It is consumed
// by both the CLI and the MCP server.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deixis/jftest/internal/config"
	"github.com/deixis/jftest/internal/fixture"
	"github.com/deixis/jftest/internal/runner"
)

// Executor runs one fixture to completion.
// Implemented by runner.Runner.
type Executor interface {
	Execute(ctx context.Context, f fixture.Fixture) *runner.Result
}

// Engine holds shared dependencies for a run.
type Engine struct {
	Config *config.Config
	Runner Executor
	Log    logrus.FieldLogger
}

// Run executes fixtures one at a time in the order given and classifies
// each. A failing or crashing fixture never stops the run. Cancelling
// ctx aborts the run as a whole; no partial result is returned.
func (e *Engine) Run(ctx context.Context, fixtures []fixture.Fixture) (*RunResult, error) {
	log := e.logger()
	rr := &RunResult{
		ID:      uuid.New().String(),
		Started: time.Now(),
		Cases:   make([]CaseResult, 0, len(fixtures)),
	}
	log = log.WithField("run", rr.ID)
	log.WithField("fixtures", len(fixtures)).Debug("run started")

	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted: %w", err)
		}

		res := e.Runner.Execute(ctx, f)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted: %w", err)
		}

		v := Classify(f, res)
		rr.Cases = append(rr.Cases, CaseResult{Fixture: f, Exec: res, Verdict: v})

		entry := log.WithFields(logrus.Fields{
			"test":     f.Name,
			"source":   f.Source,
			"verdict":  v.Kind(),
			"duration": res.Duration,
		})
		switch vv := v.(type) {
		case Crashed:
			entry.WithField("cause", vv.Cause).Debug(vv.String())
		case Failed:
			entry.WithField("reason", vv.Reason).Debug("fixture finished")
		default:
			entry.Debug("fixture finished")
		}
	}

	rr.Summary = summarize(rr.Cases)
	log.WithFields(logrus.Fields{
		"total":   rr.Summary.Total,
		"passed":  rr.Summary.Passed,
		"failed":  rr.Summary.Failed,
		"crashed": rr.Summary.Crashed,
	}).Debug("run finished")
	return rr, nil
}

func (e *Engine) logger() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// NewRunner builds the process driver described by cfg, rooted at
// workspace.
func NewRunner(cfg *config.Config, workspace string) *runner.Runner {
	return &runner.Runner{
		Workspace: workspace,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
		KillGrace: cfg.KillGrace(),
	}
}
