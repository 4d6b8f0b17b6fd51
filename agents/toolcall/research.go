/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"

	"chainguard.dev/maige/agents/agenttrace"
	"chainguard.dev/maige/agents/toolcall/callbacks"
)

// ResearchTools wraps a base tools type and adds search callbacks.
type ResearchTools[T any] struct {
	base T
	callbacks.ResearchCallbacks
}

// NewResearchTools creates a ResearchTools wrapping base.
func NewResearchTools[T any](base T, cb callbacks.ResearchCallbacks) ResearchTools[T] {
	return ResearchTools[T]{base: base, ResearchCallbacks: cb}
}

type researchToolsProvider[Resp, T any] struct {
	base ToolProvider[Resp, T]
}

var _ ToolProvider[any, ResearchTools[any]] = (*researchToolsProvider[any, any])(nil)

// NewResearchToolsProvider adds web_search and search_code on top of base.
func NewResearchToolsProvider[Resp, T any](base ToolProvider[Resp, T]) ToolProvider[Resp, ResearchTools[T]] {
	return researchToolsProvider[Resp, T]{base: base}
}

func (p researchToolsProvider[Resp, T]) Tools(cb ResearchTools[T]) map[string]Tool[Resp] {
	tools := p.base.Tools(cb.base)
	if cb.HasWebSearch() {
		tools["web_search"] = queryTool[Resp]("web_search",
			"Search the internet. Useful for current events, documentation and error messages.",
			"The search query", cb.WebSearch)
	}
	if cb.HasSearchCode() {
		tools["search_code"] = queryTool[Resp]("search_code",
			"Search the codebase by query. Uses vector similarity; format queries to make use of this.",
			"The query to search", cb.SearchCode)
	}
	return tools
}

func queryTool[Resp any](name, desc, queryDesc string, fn func(context.Context, string) (string, error)) Tool[Resp] {
	return Tool[Resp]{
		Def: Definition{
			Name:        name,
			Description: desc,
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: queryDesc, Required: true},
			},
		},
		Handler: func(ctx context.Context, call ToolCall, trace *agenttrace.Trace[Resp], _ *Resp) map[string]any {
			query, errResp := Param[string](call, trace, "query")
			if errResp != nil {
				return errResp
			}
			return run(ctx, trace, call, func(ctx context.Context) (string, error) {
				return fn(ctx, query)
			})
		},
	}
}
