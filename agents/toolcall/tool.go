/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"fmt"

	"chainguard.dev/maige/agents/agenttrace"
	"chainguard.dev/maige/agents/toolcall/params"
)

// ToolCall is a provider-independent representation of a tool call.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Definition describes a tool's schema (name, description, parameters).
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Parameter describes a single tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "number"
	Description string
	Required    bool
}

// Schema renders the parameters as a JSON schema object.
func (d Definition) Schema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := []string{}
	for _, p := range d.Parameters {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Tool defines a tool once with a single handler that works with any provider.
type Tool[Resp any] struct {
	Def     Definition
	Handler func(ctx context.Context, call ToolCall, trace *agenttrace.Trace[Resp], result *Resp) map[string]any
}

// Invoke runs the handler registered for call.Name. Unknown tools are
// recorded as bad calls and answered with an error the model can read.
func Invoke[Resp any](ctx context.Context, tools map[string]Tool[Resp], call ToolCall, trace *agenttrace.Trace[Resp], result *Resp) map[string]any {
	t, ok := tools[call.Name]
	if !ok {
		trace.BadToolCall(call.ID, call.Name, call.Args, fmt.Errorf("unknown tool %q", call.Name))
		return params.Error("unknown tool %q", call.Name)
	}
	return t.Handler(ctx, call, trace, result)
}

// Param extracts a required parameter from the tool call args.
// On error, records a bad tool call on the trace and returns an error response.
func Param[T any](call ToolCall, trace interface {
	BadToolCall(string, string, map[string]any, error)
}, name string) (T, map[string]any) {
	v, err := params.Extract[T](call.Args, name)
	if err != nil {
		trace.BadToolCall(call.ID, call.Name, call.Args, err)
		return v, params.Error("%s", err)
	}
	return v, nil
}

// OptionalParam extracts an optional parameter from the tool call args.
func OptionalParam[T any](call ToolCall, name string, defaultValue T) (T, map[string]any) {
	v, err := params.ExtractOptional[T](call.Args, name, defaultValue)
	if err != nil {
		return v, params.Error("%s", err)
	}
	return v, nil
}

// run wraps a callback returning text as a traced tool call.
func run[Resp any](ctx context.Context, trace *agenttrace.Trace[Resp], call ToolCall, fn func(context.Context) (string, error)) map[string]any {
	tc := trace.StartToolCall(call.ID, call.Name, call.Args)
	out, err := fn(ctx)
	if err != nil {
		tc.Complete(nil, err)
		return params.Error("%s failed: %v", call.Name, err)
	}
	tc.Complete(out, nil)
	return map[string]any{"output": out}
}
