/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/maige/agents/executor/retry"
	"chainguard.dev/maige/agents/metrics"
	"chainguard.dev/maige/agents/promptbuilder"
)

// Option is a functional option for configuring the executor
type Option[Request promptbuilder.Bindable, Response any] func(*agent[Request, Response]) error

// WithModel overrides the default model.
func WithModel[Request promptbuilder.Bindable, Response any](model string) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		e.model = model
		return nil
	}
}

// WithMaxTokens caps each response.
func WithMaxTokens[Request promptbuilder.Bindable, Response any](tokens int64) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		e.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature, between 0 and 1.
func WithTemperature[Request promptbuilder.Bindable, Response any](temp float64) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if temp < 0 || temp > 1 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		e.temperature = temp
		return nil
	}
}

// WithSystemInstructions sets the system prompt.
func WithSystemInstructions[Request promptbuilder.Bindable, Response any](prompt *promptbuilder.Prompt) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if prompt == nil {
			return errors.New("system instructions prompt cannot be nil")
		}
		e.system = prompt
		return nil
	}
}

// WithThinking enables extended thinking with the given token budget.
// Thinking output is kept on the trace as reasoning.
func WithThinking[Request promptbuilder.Bindable, Response any](budget int64) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if budget < 1024 {
			return fmt.Errorf("thinking budget must be at least 1024, got %d", budget)
		}
		if budget >= e.maxTokens {
			return fmt.Errorf("thinking budget (%d) must be less than max tokens (%d)", budget, e.maxTokens)
		}
		e.thinkingBudget = &budget
		return nil
	}
}

// WithMaxSteps bounds the number of model round trips.
func WithMaxSteps[Request promptbuilder.Bindable, Response any](steps int) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if steps <= 0 {
			return fmt.Errorf("max steps must be positive, got %d", steps)
		}
		e.maxSteps = steps
		return nil
	}
}

// WithAttributeEnricher adds caller attributes to recorded metrics.
func WithAttributeEnricher[Request promptbuilder.Bindable, Response any](enricher metrics.AttributeEnricher) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		e.genai.SetAttributeEnricher(enricher)
		return nil
	}
}

// WithRetryConfig sets backoff for transient API errors.
func WithRetryConfig[Request promptbuilder.Bindable, Response any](cfg retry.Config) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.retry = cfg
		return nil
	}
}
