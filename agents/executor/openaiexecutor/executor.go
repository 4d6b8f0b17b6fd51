/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

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
	"chainguard.dev/maige/agents/toolcall/openaitool"
	"chainguard.dev/maige/agents/toolcall/params"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
)

// DefaultModel is used unless WithModel is given.
const DefaultModel = "gpt-4-1106-preview"

type agent[Request promptbuilder.Bindable, Response any] struct {
	client      openai.Client
	model       string
	system      *promptbuilder.Prompt
	prompt      *promptbuilder.Prompt
	temperature float64
	maxTokens   int64
	maxSteps    int
	genai       *metrics.GenAI
	retry       retry.Config
}

// New creates an executor for prompt.
func New[Request promptbuilder.Bindable, Response any](
	client openai.Client,
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

func (e *agent[Request, Response]) request(prompt string, tools []openai.ChatCompletionToolParam) (openai.ChatCompletionNewParams, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if e.system != nil {
		system, err := e.system.Build()
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("building system prompt: %w", err)
		}
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	req := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(e.model),
		Messages:    msgs,
		Temperature: openai.Float(e.temperature),
	}
	if len(tools) > 0 {
		req.Tools = tools
	}
	if e.maxTokens > 0 {
		req.MaxTokens = openai.Int(e.maxTokens)
	}
	return req, nil
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

	req, err := e.request(prompt, openaitool.Definitions(tools))
	if err != nil {
		return response, err
	}

	var result Response
	for step := range e.maxSteps {
		start := time.Now()
		completion, err := retry.Value(ctx, e.retry, "openai.chat", isRetryable, func() (*openai.ChatCompletion, error) {
			return e.client.Chat.Completions.New(ctx, req)
		})
		if err != nil {
			return response, fmt.Errorf("calling OpenAI: %w", err)
		}
		e.genai.RecordStep(ctx, e.model, time.Since(start))
		e.genai.RecordTokens(ctx, e.model, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
		trace.RecordStep(e.model, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

		if len(completion.Choices) == 0 {
			return response, errors.New("no choices in OpenAI response")
		}
		msg := completion.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			if msg.Content == "" {
				return response, errors.New("no content in OpenAI response")
			}
			log.With("steps", step+1).Info("OpenAI agent finished")
			return executor.ParseAnswer[Response](msg.Content)
		}

		req.Messages = append(req.Messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			log.With("tool", tc.Function.Name, "id", tc.ID).Info("Executing tool call")

			var out map[string]any
			call, err := openaitool.Call(tc)
			if err != nil {
				trace.BadToolCall(tc.ID, tc.Function.Name, nil, err)
				out = params.Error("%v", err)
			} else {
				out = toolcall.Invoke(ctx, tools, call, trace, &result)
			}
			e.genai.RecordToolCall(ctx, e.model, tc.Function.Name, toolError(out))

			reply, err := openaitool.Result(tc.ID, out)
			if err != nil {
				return response, err
			}
			req.Messages = append(req.Messages, reply)
		}
	}
	return response, executor.ErrStepBudget
}

func toolError(out map[string]any) error {
	if msg, ok := out["error"].(string); ok {
		return errors.New(msg)
	}
	return nil
}
