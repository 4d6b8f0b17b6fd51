/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"errors"
	"fmt"

	"chainguard.dev/maige/agents/executor/retry"
	"chainguard.dev/maige/agents/metrics"
	"chainguard.dev/maige/agents/promptbuilder"
)

// Option is a functional option for configuring the executor
type Option[Request promptbuilder.Bindable, Response any] func(*agent[Request, Response]) error

// WithModel overrides DefaultModel.
func WithModel[Request promptbuilder.Bindable, Response any](model string) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		e.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature, between 0 and 2.
func WithTemperature[Request promptbuilder.Bindable, Response any](temp float64) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		e.temperature = temp
		return nil
	}
}

// WithMaxTokens caps each completion. Zero leaves it to the model.
func WithMaxTokens[Request promptbuilder.Bindable, Response any](tokens int64) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if tokens < 0 {
			return fmt.Errorf("max tokens cannot be negative, got %d", tokens)
		}
		e.maxTokens = tokens
		return nil
	}
}

// WithSystemInstructions sets the system message.
func WithSystemInstructions[Request promptbuilder.Bindable, Response any](prompt *promptbuilder.Prompt) Option[Request, Response] {
	return func(e *agent[Request, Response]) error {
		if prompt == nil {
			return errors.New("system instructions prompt cannot be nil")
		}
		e.system = prompt
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
