/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/maige/agents/agenttrace"
	"chainguard.dev/maige/agents/executor"
	"chainguard.dev/maige/agents/executor/retry"
	"chainguard.dev/maige/agents/metrics"
	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
	"chainguard.dev/maige/agents/toolcall/claudetool"
	"chainguard.dev/maige/agents/toolcall/params"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// DefaultModel is used unless WithModel is given.
const DefaultModel = "claude-sonnet-4-5"

type agent[Request promptbuilder.Bindable, Response any] struct {
	client         anthropic.Client
	model          string
	system         *promptbuilder.Prompt
	prompt         *promptbuilder.Prompt
	maxTokens      int64
	temperature    float64
	thinkingBudget *int64
	maxSteps       int
	genai          *metrics.GenAI
	retry          retry.Config
}

// New creates an executor for prompt. The request given to Execute is bound
// into prompt on every run.
func New[Request promptbuilder.Bindable, Response any](
	client anthropic.Client,
	prompt *promptbuilder.Prompt,
	opts ...Option[Request, Response],
) (executor.Interface[Request, Response], error) {
	if prompt == nil {
		return nil, errors.New("prompt cannot be nil")
	}

	e := &agent[Request, Response]{
		client:      client,
		model:       DefaultModel,
		prompt:      prompt,
		maxTokens:   8192,
		temperature: 0.7,
		maxSteps:    executor.DefaultMaxSteps,
		genai:       metrics.NewGenAI(context.Background(), metrics.MeterName),
		retry:       retry.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return e, nil
}

func (e *agent[Request, Response]) params(prompt string, tools []anthropic.ToolUnionParam) (anthropic.MessageNewParams, error) {
	p := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   e.maxTokens,
		Temperature: anthropic.Float(e.temperature),
		Tools:       tools,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if e.system != nil {
		system, err := e.system.Build()
		if err != nil {
			return p, fmt.Errorf("building system prompt: %w", err)
		}
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if e.thinkingBudget != nil {
		// Extended thinking requires temperature 1.
		p.Temperature = anthropic.Float(1)
		p.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{BudgetTokens: *e.thinkingBudget},
		}
	}
	return p, nil
}

// Execute runs the conversation until the model answers without tool calls.
func (e *agent[Request, Response]) Execute(
	ctx context.Context,
	request Request,
	tools map[string]toolcall.Tool[Response],
) (response Response, err error) {
	log := clog.FromContext(ctx).With("model", e.model)

	bound, err := request.Bind(e.prompt)
	if err != nil {
		return response, fmt.Errorf("failed to bind request to prompt: %w", err)
	}
	prompt, err := bound.Build()
	if err != nil {
		return response, fmt.Errorf("failed to build prompt: %w", err)
	}

	trace := agenttrace.StartTrace[Response](ctx, prompt)
	defer func() { trace.Complete(response, err) }()

	req, err := e.params(prompt, claudetool.Definitions(tools))
	if err != nil {
		return response, err
	}

	var result Response
	for step := range e.maxSteps {
		start := time.Now()
		msg, err := retry.Value(ctx, e.retry, "claude.messages", isRetryable, func() (*anthropic.Message, error) {
			return e.client.Messages.New(ctx, req)
		})
		if err != nil {
			return response, fmt.Errorf("calling Claude: %w", err)
		}
		e.genai.RecordStep(ctx, e.model, time.Since(start))
		e.genai.RecordTokens(ctx, e.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
		trace.RecordStep(e.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)

		var (
			text string
			uses []anthropic.ToolUseBlock
		)
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				text = block.Text
			case "tool_use":
				uses = append(uses, anthropic.ToolUseBlock{ID: block.ID, Name: block.Name, Input: block.Input})
			case "thinking":
				trace.AddReasoning(block.Thinking)
			}
		}

		if len(uses) == 0 {
			if text == "" {
				return response, errors.New("no content in Claude's response")
			}
			log.With("steps", step+1).Info("Claude agent finished")
			return executor.ParseAnswer[Response](text)
		}

		req.Messages = append(req.Messages, msg.ToParam())
		results := make([]anthropic.ContentBlockParamUnion, 0, len(uses))
		for _, use := range uses {
			log.With("tool", use.Name, "id", use.ID).Info("Executing tool call")

			var out map[string]any
			call, err := claudetool.Call(use)
			if err != nil {
				trace.BadToolCall(use.ID, use.Name, nil, err)
				out = params.Error("%v", err)
			} else {
				out = toolcall.Invoke(ctx, tools, call, trace, &result)
			}
			e.genai.RecordToolCall(ctx, e.model, use.Name, toolError(out))

			block, err := claudetool.Result(use.ID, out)
			if err != nil {
				return response, err
			}
			results = append(results, block)
		}
		req.Messages = append(req.Messages, anthropic.NewUserMessage(results...))
	}
	return response, executor.ErrStepBudget
}

func toolError(out map[string]any) error {
	if msg, ok := out["error"].(string); ok {
		return errors.New(msg)
	}
	return nil
}
