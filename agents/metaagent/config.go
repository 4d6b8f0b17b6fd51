/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"net/http"

	"chainguard.dev/maige/agents/metrics"
	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
)

// Keys holds provider API keys. Only the key for the selected model is
// required.
type Keys struct {
	OpenAI    string
	Anthropic string
}

// Config defines the configuration for a meta-agent instance.
type Config[Resp, CB any] struct {
	SystemInstructions *promptbuilder.Prompt
	// UserPrompt is bound with the request on every run.
	UserPrompt *promptbuilder.Prompt
	Tools      toolcall.ToolProvider[Resp, CB]

	// Temperature defaults to 0.7 when nil.
	Temperature *float64
	// MaxSteps defaults to executor.DefaultMaxSteps when zero.
	MaxSteps int
	Enricher metrics.AttributeEnricher
	// HTTPClient is used for provider calls when set.
	HTTPClient *http.Client
}
