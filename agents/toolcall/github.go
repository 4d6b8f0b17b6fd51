/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"chainguard.dev/maige/agents/agenttrace"
	"chainguard.dev/maige/agents/toolcall/callbacks"
	"chainguard.dev/maige/agents/toolcall/params"
)

// GitHubTools wraps a base tools type and adds repository callbacks.
type GitHubTools[T any] struct {
	base T
	callbacks.GitHubCallbacks
}

// NewGitHubTools creates a GitHubTools wrapping base.
func NewGitHubTools[T any](base T, cb callbacks.GitHubCallbacks) GitHubTools[T] {
	return GitHubTools[T]{base: base, GitHubCallbacks: cb}
}

type githubToolsProvider[Resp, T any] struct {
	base ToolProvider[Resp, T]
}

var _ ToolProvider[any, GitHubTools[any]] = (*githubToolsProvider[any, any])(nil)

// NewGitHubToolsProvider adds comment and github_api on top of base.
func NewGitHubToolsProvider[Resp, T any](base ToolProvider[Resp, T]) ToolProvider[Resp, GitHubTools[T]] {
	return githubToolsProvider[Resp, T]{base: base}
}

func (p githubToolsProvider[Resp, T]) Tools(cb GitHubTools[T]) map[string]Tool[Resp] {
	tools := p.base.Tools(cb.base)
	if cb.HasComment() {
		tools["comment"] = commentTool[Resp](cb.Comment)
	}
	if cb.HasAPI() {
		tools["github_api"] = githubAPITool[Resp](cb.API)
	}
	return tools
}

func commentTool[Resp any](comment func(context.Context, int, string) (string, error)) Tool[Resp] {
	return Tool[Resp]{
		Def: Definition{
			Name:        "comment",
			Description: "Post a comment on an issue or pull request in this repository.",
			Parameters: []Parameter{
				{Name: "issue_number", Type: "integer", Description: "The issue or pull request number", Required: true},
				{Name: "body", Type: "string", Description: "Markdown body of the comment", Required: true},
			},
		},
		Handler: func(ctx context.Context, call ToolCall, trace *agenttrace.Trace[Resp], _ *Resp) map[string]any {
			number, errResp := Param[int](call, trace, "issue_number")
			if errResp != nil {
				return errResp
			}
			body, errResp := Param[string](call, trace, "body")
			if errResp != nil {
				return errResp
			}
			return run(ctx, trace, call, func(ctx context.Context) (string, error) {
				return comment(ctx, number, body)
			})
		},
	}
}

var apiMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete}

func githubAPITool[Resp any](api func(context.Context, string, string, string) (string, error)) Tool[Resp] {
	return Tool[Resp]{
		Def: Definition{
			Name:        "github_api",
			Description: "Call the GitHub REST API, e.g. to read issues, open pull requests or list files.",
			Parameters: []Parameter{
				{Name: "method", Type: "string", Description: "HTTP method: GET, POST, PATCH, PUT or DELETE", Required: true},
				{Name: "path", Type: "string", Description: "API path, e.g. repos/{owner}/{repo}/pulls", Required: true},
				{Name: "body", Type: "string", Description: "JSON request body, if any"},
			},
		},
		Handler: func(ctx context.Context, call ToolCall, trace *agenttrace.Trace[Resp], _ *Resp) map[string]any {
			method, errResp := Param[string](call, trace, "method")
			if errResp != nil {
				return errResp
			}
			method = strings.ToUpper(method)
			if !slices.Contains(apiMethods, method) {
				return params.Error("unsupported method %q", method)
			}
			path, errResp := Param[string](call, trace, "path")
			if errResp != nil {
				return errResp
			}
			body, errResp := OptionalParam(call, "body", "")
			if errResp != nil {
				return errResp
			}
			return run(ctx, trace, call, func(ctx context.Context) (string, error) {
				return api(ctx, method, strings.TrimPrefix(path, "/"), body)
			})
		},
	}
}
