/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudetool converts toolcall definitions and calls to and from
// the Anthropic SDK types.
package claudetool

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"chainguard.dev/maige/agents/toolcall"
	"github.com/anthropics/anthropic-sdk-go"
)

// Definitions returns the tool params for a request, sorted by name.
func Definitions[Resp any](tools map[string]toolcall.Tool[Resp]) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, name := range slices.Sorted(maps.Keys(tools)) {
		def := tools[name].Def
		schema := def.Schema()
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
					Required:   schema["required"].([]string),
				},
			},
		})
	}
	return out
}

// Call decodes a tool_use block.
func Call(block anthropic.ToolUseBlock) (toolcall.ToolCall, error) {
	call := toolcall.ToolCall{ID: block.ID, Name: block.Name, Args: map[string]any{}}
	if len(block.Input) == 0 {
		return call, nil
	}
	if err := json.Unmarshal(block.Input, &call.Args); err != nil {
		return call, fmt.Errorf("decoding %s input: %w", block.Name, err)
	}
	return call, nil
}

// Result encodes a handler's response as a tool_result block.
func Result(id string, out map[string]any) (anthropic.ContentBlockParamUnion, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("encoding tool result: %w", err)
	}
	_, failed := out["error"]
	return anthropic.NewToolResultBlock(id, string(b), failed), nil
}
