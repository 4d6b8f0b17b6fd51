/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/maige/agents/executor"
	"chainguard.dev/maige/agents/executor/claudeexecutor"
	"chainguard.dev/maige/agents/executor/openaiexecutor"
	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
)

// Agent runs a request with a set of tool callbacks.
type Agent[Req promptbuilder.Bindable, Resp, CB any] interface {
	Execute(ctx context.Context, request Req, callbacks CB) (Resp, error)
}

// Provider names the API a model is served by.
type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
)

// ProviderFor maps a model name to its provider.
func ProviderFor(model string) (Provider, error) {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude-"):
		return Anthropic, nil
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return OpenAI, nil
	default:
		return "", fmt.Errorf("unsupported model: %q (expected gpt-*, o* or claude-*)", model)
	}
}

// New creates an agent backed by the executor for model.
func New[Req promptbuilder.Bindable, Resp, CB any](model string, keys Keys, config Config[Resp, CB]) (Agent[Req, Resp, CB], error) {
	if config.Tools == nil {
		return nil, errors.New("tools provider cannot be nil")
	}
	provider, err := ProviderFor(model)
	if err != nil {
		return nil, err
	}

	var exec executor.Interface[Req, Resp]
	switch provider {
	case Anthropic:
		exec, err = newClaude[Req](model, keys.Anthropic, config)
	case OpenAI:
		exec, err = newOpenAI[Req](model, keys.OpenAI, config)
	}
	if err != nil {
		return nil, err
	}
	return &agent[Req, Resp, CB]{exec: exec, tools: config.Tools}, nil
}

type agent[Req promptbuilder.Bindable, Resp, CB any] struct {
	exec  executor.Interface[Req, Resp]
	tools toolcall.ToolProvider[Resp, CB]
}

func (a *agent[Req, Resp, CB]) Execute(ctx context.Context, request Req, callbacks CB) (Resp, error) {
	return a.exec.Execute(ctx, request, a.tools.Tools(callbacks))
}

func newOpenAI[Req promptbuilder.Bindable, Resp, CB any](model, key string, config Config[Resp, CB]) (executor.Interface[Req, Resp], error) {
	if key == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(key)}
	if config.HTTPClient != nil {
		opts = append(opts, openaioption.WithHTTPClient(config.HTTPClient))
	}

	execOpts := []openaiexecutor.Option[Req, Resp]{openaiexecutor.WithModel[Req, Resp](model)}
	if config.SystemInstructions != nil {
		execOpts = append(execOpts, openaiexecutor.WithSystemInstructions[Req, Resp](config.SystemInstructions))
	}
	if config.Temperature != nil {
		execOpts = append(execOpts, openaiexecutor.WithTemperature[Req, Resp](*config.Temperature))
	}
	if config.MaxSteps > 0 {
		execOpts = append(execOpts, openaiexecutor.WithMaxSteps[Req, Resp](config.MaxSteps))
	}
	if config.Enricher != nil {
		execOpts = append(execOpts, openaiexecutor.WithAttributeEnricher[Req, Resp](config.Enricher))
	}

	exec, err := openaiexecutor.New[Req, Resp](openai.NewClient(opts...), config.UserPrompt, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI executor: %w", err)
	}
	return exec, nil
}

func newClaude[Req promptbuilder.Bindable, Resp, CB any](model, key string, config Config[Resp, CB]) (executor.Interface[Req, Resp], error) {
	if key == "" {
		return nil, errors.New("missing Anthropic API key")
	}
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(key)}
	if config.HTTPClient != nil {
		opts = append(opts, anthropicoption.WithHTTPClient(config.HTTPClient))
	}

	execOpts := []claudeexecutor.Option[Req, Resp]{claudeexecutor.WithModel[Req, Resp](model)}
	if config.SystemInstructions != nil {
		execOpts = append(execOpts, claudeexecutor.WithSystemInstructions[Req, Resp](config.SystemInstructions))
	}
	if config.Temperature != nil {
		execOpts = append(execOpts, claudeexecutor.WithTemperature[Req, Resp](*config.Temperature))
	}
	if config.MaxSteps > 0 {
		execOpts = append(execOpts, claudeexecutor.WithMaxSteps[Req, Resp](config.MaxSteps))
	}
	if config.Enricher != nil {
		execOpts = append(execOpts, claudeexecutor.WithAttributeEnricher[Req, Resp](config.Enricher))
	}

	exec, err := claudeexecutor.New[Req, Resp](anthropic.NewClient(opts...), config.UserPrompt, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating Claude executor: %w", err)
	}
	return exec, nil
}
