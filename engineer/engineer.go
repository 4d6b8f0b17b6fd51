/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engineer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/maige/agents/agenttrace"
	"chainguard.dev/maige/agents/executor"
	"chainguard.dev/maige/agents/metaagent"
	"chainguard.dev/maige/agents/toolcall"
	"chainguard.dev/maige/agents/toolcall/callbacks"
	"chainguard.dev/maige/codesearch"
	"chainguard.dev/maige/credguard"
	"chainguard.dev/maige/sandbox"
	"chainguard.dev/maige/websearch"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultTemplate is the sandbox image used when Deps.Template is empty.
	DefaultTemplate = "cgr.dev/chainguard/wolfi-base:latest"
	// DefaultCommandTimeout bounds a sandbox command when Deps.CommandTimeout is zero.
	DefaultCommandTimeout = 5 * time.Minute
	// DefaultRunTimeout bounds a run when Deps.RunTimeout is zero.
	DefaultRunTimeout = 30 * time.Minute
)

// ErrRunTimeout is returned by Run when the run outlives Deps.RunTimeout.
var ErrRunTimeout = errors.New("engineer run timed out")

var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "maige_agent_run_seconds",
	Help:    "Duration of engineer agent runs.",
	Buckets: prometheus.ExponentialBuckets(5, 2, 8),
}, []string{"outcome"})

// Identity is the git committer identity inside the sandbox.
type Identity struct {
	Email string
	Name  string
}

// CodeSearchFunc returns a searcher scoped to the index of the customer
// with the given store id.
type CodeSearchFunc func(customerID string) (codesearch.Searcher, error)

// Deps are the collaborators of an Executor. Web and Code are optional;
// their tools are left out when nil.
type Deps struct {
	Agent     metaagent.Agent[Task, string, Callbacks]
	Sandboxes sandbox.Provider
	GitHub    *github.Client
	Injector  *credguard.Injector
	Identity  Identity
	Template  string
	Web       websearch.Searcher
	Code      CodeSearchFunc

	CommandTimeout time.Duration
	RunTimeout     time.Duration
}

// Executor runs engineer tasks.
type Executor struct {
	Deps
}

// New validates deps and returns an Executor.
func New(deps Deps) (*Executor, error) {
	switch {
	case deps.Agent == nil:
		return nil, errors.New("agent is required")
	case deps.Sandboxes == nil:
		return nil, errors.New("sandbox provider is required")
	case deps.GitHub == nil:
		return nil, errors.New("GitHub client is required")
	case deps.Injector == nil:
		return nil, errors.New("credential injector is required")
	}
	if deps.Template == "" {
		deps.Template = DefaultTemplate
	}
	if deps.CommandTimeout <= 0 {
		deps.CommandTimeout = DefaultCommandTimeout
	}
	if deps.RunTimeout <= 0 {
		deps.RunTimeout = DefaultRunTimeout
	}
	return &Executor{Deps: deps}, nil
}

// Run executes task and returns the agent's final answer. The sandbox is
// released however the run ends, including on ErrRunTimeout.
func (e *Executor) Run(ctx context.Context, task Task) (answer string, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		switch {
		case errors.Is(err, executor.ErrStepBudget):
			outcome = "step_budget"
		case errors.Is(err, ErrRunTimeout):
			outcome = "timeout"
		case err != nil:
			outcome = "error"
		}
		runDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	log := clog.FromContext(ctx).With("task", task.ID, "repository", task.Repository())
	ctx = clog.WithLogger(ctx, log)
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		TaskID:     task.ID,
		Customer:   task.Customer,
		Repository: task.Repository(),
	})

	sb, err := e.Sandboxes.Provision(ctx, e.Template, func(m sandbox.Message) {
		line := e.Injector.Redact(m.Line)
		if m.Error {
			log.Warn(line)
		} else {
			log.Info(line)
		}
	})
	if err != nil {
		return "", fmt.Errorf("provisioning sandbox: %w", err)
	}
	defer func() {
		if err := sb.Close(context.WithoutCancel(ctx)); err != nil {
			log.With("error", err, "sandbox", sb.ID()).Warn("Failed to release sandbox")
		}
	}()
	log.With("sandbox", sb.ID()).Info("Sandbox ready")

	out, err := e.exec(ctx, sb, credguard.SetupCommand(e.Identity.Email, e.Identity.Name))
	if err != nil {
		return "", fmt.Errorf("setting git identity: %w", err)
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("setting git identity: exit code %d", out.ExitCode)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.RunTimeout)
	defer cancel()
	answer, err = e.Agent.Execute(runCtx, task, e.callbacks(runCtx, sb, task))
	if err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("running agent: %w after %s", ErrRunTimeout, e.RunTimeout)
		}
		return "", fmt.Errorf("running agent: %w", err)
	}
	return answer, nil
}

// exec runs cmd in sb bounded by CommandTimeout.
func (e *Executor) exec(ctx context.Context, sb sandbox.Sandbox, cmd string) (*sandbox.Output, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, e.CommandTimeout)
	defer cancel()
	out, err := sandbox.Run(cmdCtx, sb, cmd)
	if err != nil && ctx.Err() == nil && errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("command timed out after %s", e.CommandTimeout)
	}
	return out, err
}

func (e *Executor) callbacks(ctx context.Context, sb sandbox.Sandbox, task Task) Callbacks {
	var research callbacks.ResearchCallbacks
	if e.Web != nil {
		research.WebSearch = e.Web.Search
	}
	switch {
	case e.Code == nil:
	case task.CustomerID == "":
		clog.FromContext(ctx).Warn("Code search unavailable without a customer id")
	default:
		searcher, err := e.Code(task.CustomerID)
		if err != nil {
			clog.FromContext(ctx).With("error", err).Warn("Code search unavailable")
		} else {
			research.SearchCode = func(ctx context.Context, query string) (string, error) {
				docs, err := searcher.Search(ctx, query, task.Repo, codesearch.DefaultResults)
				if err != nil {
					return "", err
				}
				return codesearch.Format(docs)
			}
		}
	}

	gh := callbacks.GitHubCallbacks{
		Comment: func(ctx context.Context, number int, body string) (string, error) {
			c, _, err := e.GitHub.Issues.CreateComment(ctx, task.Owner, task.Repo, number, &github.IssueComment{
				Body: github.Ptr(body),
			})
			if err != nil {
				return "", err
			}
			return c.GetHTMLURL(), nil
		},
		API: func(ctx context.Context, method, path, body string) (string, error) {
			var payload any
			if body != "" {
				if !json.Valid([]byte(body)) {
					return "", errors.New("body is not valid JSON")
				}
				payload = json.RawMessage(body)
			}
			req, err := e.GitHub.NewRequest(method, path, payload)
			if err != nil {
				return "", err
			}
			var resp json.RawMessage
			if _, err := e.GitHub.Do(ctx, req, &resp); err != nil {
				return "", err
			}
			return string(resp), nil
		},
	}

	exec := func(ctx context.Context, cmd string) (string, error) {
		out, err := e.exec(ctx, sb, cmd)
		if err != nil {
			return "", err
		}
		return out.JSON()
	}
	shell := callbacks.SandboxCallbacks{
		Shell: exec,
		Git: func(ctx context.Context, cmd string) (string, error) {
			authed, err := e.Injector.Rewrite(cmd)
			if err != nil {
				return "", err
			}
			out, err := exec(ctx, authed)
			return e.Injector.Redact(out), err
		},
	}

	return toolcall.NewSandboxTools(
		toolcall.NewGitHubTools(
			toolcall.NewResearchTools(toolcall.EmptyTools{}, research),
			gh),
		shell)
}
