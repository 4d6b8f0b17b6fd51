/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaitool converts toolcall definitions and calls to and from
// the OpenAI chat completion types.
package openaitool

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"chainguard.dev/maige/agents/toolcall"
	"github.com/openai/openai-go"
)

// Definitions returns the function tools for a request, sorted by name.
func Definitions[Resp any](tools map[string]toolcall.Tool[Resp]) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, name := range slices.Sorted(maps.Keys(tools)) {
		def := tools[name].Def
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.Schema()),
			},
		})
	}
	return out
}

// Call decodes a function call's JSON arguments.
func Call(tc openai.ChatCompletionMessageToolCall) (toolcall.ToolCall, error) {
	call := toolcall.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: map[string]any{}}
	if tc.Function.Arguments == "" {
		return call, nil
	}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Args); err != nil {
		return call, fmt.Errorf("decoding %s arguments: %w", tc.Function.Name, err)
	}
	return call, nil
}

// Result encodes a handler's response as a tool message.
func Result(id string, out map[string]any) (openai.ChatCompletionMessageParamUnion, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("encoding tool result: %w", err)
	}
	return openai.ToolMessage(string(b), id), nil
}
