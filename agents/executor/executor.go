/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package executor holds what every model-specific executor shares: the
// Interface agents program against, the step budget and final answer parsing.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
)

// DefaultMaxSteps bounds the model round trips of one run.
const DefaultMaxSteps = 15

// ErrStepBudget is returned when the model is still calling tools after
// the last allowed step.
var ErrStepBudget = errors.New("agent exceeded its step budget")

// Interface runs one agent conversation.
type Interface[Request promptbuilder.Bindable, Response any] interface {
	Execute(ctx context.Context, request Request, tools map[string]toolcall.Tool[Response]) (Response, error)
}

// ParseAnswer converts the model's final text into a Response. String
// responses are returned as is; anything else is decoded from the first JSON
// object in the text, with or without a code fence.
func ParseAnswer[Response any](text string) (Response, error) {
	var resp Response
	if p, ok := any(&resp).(*string); ok {
		*p = text
		return resp, nil
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return resp, fmt.Errorf("no JSON object in response: %q", clip(text))
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return resp, fmt.Errorf("decoding response: %w", err)
	}
	return resp, nil
}

func clip(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
