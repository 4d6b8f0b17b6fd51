/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"chainguard.dev/maige/agents/metaagent"
	"chainguard.dev/maige/codesearch"
	"chainguard.dev/maige/config"
	"chainguard.dev/maige/credguard"
	"chainguard.dev/maige/engineer"
	"chainguard.dev/maige/ghapp"
	"chainguard.dev/maige/sandbox/docker"
	"chainguard.dev/maige/store"
	"chainguard.dev/maige/store/sqlstore"
	"chainguard.dev/maige/websearch"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
)

type engineerFlags struct {
	customer string
	repo     string
	task     string
	taskFile string
}

func newEngineerCommand(cfg *config.Config) *cobra.Command {
	var f engineerFlags
	cmd := &cobra.Command{
		Use:   "engineer",
		Short: "Run the engineering agent on a repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateEngineer(); err != nil {
				return err
			}
			task, err := f.taskFor(cmd.InOrStdin())
			if err != nil {
				return err
			}
			answer, err := runEngineer(cmd.Context(), cfg, task)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.customer, "customer", "", "login of the customer that owns the repository (default: the repository owner)")
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository as owner/name")
	cmd.Flags().StringVar(&f.task, "task", "", "task description")
	cmd.Flags().StringVar(&f.taskFile, "task-file", "", `file holding the task description; "-" reads stdin`)
	_ = cmd.MarkFlagRequired("repo")
	cmd.MarkFlagsMutuallyExclusive("task", "task-file")
	return cmd
}

func (f engineerFlags) taskFor(stdin io.Reader) (engineer.Task, error) {
	owner, repo, ok := strings.Cut(f.repo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return engineer.Task{}, fmt.Errorf("--repo must be owner/name, got %q", f.repo)
	}

	input := f.task
	switch f.taskFile {
	case "":
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return engineer.Task{}, fmt.Errorf("reading task: %w", err)
		}
		input = string(b)
	default:
		b, err := os.ReadFile(f.taskFile)
		if err != nil {
			return engineer.Task{}, fmt.Errorf("reading task: %w", err)
		}
		input = string(b)
	}
	if strings.TrimSpace(input) == "" {
		return engineer.Task{}, errors.New("a task is required (--task or --task-file)")
	}

	customer := f.customer
	if customer == "" {
		customer = owner
	}
	return engineer.Task{
		ID:       uuid.NewString(),
		Customer: customer,
		Owner:    owner,
		Repo:     repo,
		Input:    input,
	}, nil
}

// customerID resolves the store id that code search indexes are keyed by.
func customerID(ctx context.Context, st store.Store, login string) (string, error) {
	c, err := st.GetCustomer(ctx, login)
	if err != nil {
		return "", fmt.Errorf("looking up customer %s: %w", login, err)
	}
	return c.ID, nil
}

func runEngineer(ctx context.Context, cfg *config.Config, task engineer.Task) (string, error) {
	defer httpmetrics.SetupTracer(ctx)()
	httpClient := &http.Client{Transport: httpmetrics.Transport}

	gh, err := ghapp.NewTokenClient(ctx, cfg.GitHub.AccessToken, githubOptions(cfg)...)
	if err != nil {
		return "", fmt.Errorf("creating GitHub client: %w", err)
	}
	sandboxes, err := docker.New()
	if err != nil {
		return "", err
	}

	agent, err := metaagent.New[engineer.Task, string, engineer.Callbacks](
		cfg.EngineerModel,
		metaagent.Keys{OpenAI: cfg.OpenAIKey, Anthropic: cfg.AnthropicKey},
		metaagent.Config[string, engineer.Callbacks]{
			SystemInstructions: engineer.Directive,
			UserPrompt:         engineer.TaskPrompt,
			Tools:              engineer.Tools(),
			HTTPClient:         httpClient,
		},
	)
	if err != nil {
		return "", fmt.Errorf("creating agent: %w", err)
	}

	deps := engineer.Deps{
		Agent:     agent,
		Sandboxes: sandboxes,
		GitHub:    gh.REST(),
		Injector:  credguard.NewInjector(cfg.GitHub.AccessToken),
		Identity:  engineer.Identity{Email: cfg.GitHub.Email, Name: cfg.GitHub.Username},
		Template:  cfg.SandboxTemplate,

		CommandTimeout: cfg.CommandTimeout,
		RunTimeout:     cfg.RunTimeout,
	}
	if cfg.SerpAPIKey != "" {
		deps.Web = websearch.NewSerpAPI(cfg.SerpAPIKey, websearch.WithHTTPClient(httpClient))
	}
	if cfg.WeaviateHost != "" && cfg.OpenAIKey != "" && cfg.DatabaseURL != "" {
		st, err := sqlstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return "", err
		}
		defer st.Close()
		switch id, err := customerID(ctx, st, task.Customer); {
		case errors.Is(err, store.ErrNotFound):
			clog.FromContext(ctx).With("customer", task.Customer).Warn("Unknown customer, code search disabled")
		case err != nil:
			return "", err
		default:
			task.CustomerID = id
		}

		embedder := codesearch.NewOpenAIEmbedder(openai.NewClient(
			option.WithAPIKey(cfg.OpenAIKey),
			option.WithHTTPClient(httpClient),
		))
		wcfg := weaviate.Config{Scheme: cfg.WeaviateScheme, Host: cfg.WeaviateHost}
		deps.Code = func(customerID string) (codesearch.Searcher, error) {
			return codesearch.NewWeaviate(wcfg, embedder, customerID)
		}
	}

	ex, err := engineer.New(deps)
	if err != nil {
		return "", err
	}
	return ex.Run(ctx, task)
}
