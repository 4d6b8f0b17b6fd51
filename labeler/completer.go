/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package labeler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/maige/agents/executor/retry"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
)

// DefaultModel is the completion model used for labeling.
const DefaultModel = "gpt-3.5-turbo"

// Completer returns the model's answer to a single-message prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter calls the chat completions API with fixed decoding
// parameters.
type OpenAICompleter struct {
	client    openai.Client
	model     string
	maxTokens int64
	retry     retry.Config
}

var _ Completer = (*OpenAICompleter)(nil)

// CompleterOption configures an OpenAICompleter.
type CompleterOption func(*OpenAICompleter)

// WithModel overrides DefaultModel.
func WithModel(model string) CompleterOption {
	return func(c *OpenAICompleter) { c.model = model }
}

// WithRetryConfig overrides the retry policy for rate limits and transient
// server errors.
func WithRetryConfig(cfg retry.Config) CompleterOption {
	return func(c *OpenAICompleter) { c.retry = cfg }
}

// NewOpenAICompleter returns a Completer using client.
func NewOpenAICompleter(client openai.Client, opts ...CompleterOption) *OpenAICompleter {
	c := &OpenAICompleter{
		client:    client,
		model:     DefaultModel,
		maxTokens: 200,
		retry: retry.Config{
			MaxRetries:  2,
			BaseBackoff: 500 * time.Millisecond,
			MaxBackoff:  5 * time.Second,
			MaxJitter:   250 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:      openai.Float(0.7),
		TopP:             openai.Float(1),
		FrequencyPenalty: openai.Float(0),
		PresencePenalty:  openai.Float(0),
		MaxTokens:        openai.Int(c.maxTokens),
		N:                openai.Int(1),
	}

	completion, err := retry.Value(ctx, c.retry, "label_completion", IsRetryable, func() (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	clog.FromContext(ctx).With("model", c.model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens).
		Info("Completed label prompt")
	return completion.Choices[0].Message.Content, nil
}

// IsRetryable reports whether err is an OpenAI rate limit or transient
// server error.
func IsRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}

// StatusCode returns the HTTP status of an OpenAI API error, or 0.
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
