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

// SandboxTools wraps a base tools type and adds command callbacks.
type SandboxTools[T any] struct {
	base T
	callbacks.SandboxCallbacks
}

// NewSandboxTools creates a SandboxTools wrapping base.
func NewSandboxTools[T any](base T, cb callbacks.SandboxCallbacks) SandboxTools[T] {
	return SandboxTools[T]{base: base, SandboxCallbacks: cb}
}

type sandboxToolsProvider[Resp, T any] struct {
	base ToolProvider[Resp, T]
}

var _ ToolProvider[any, SandboxTools[any]] = (*sandboxToolsProvider[any, any])(nil)

// NewSandboxToolsProvider adds shell and git on top of base.
func NewSandboxToolsProvider[Resp, T any](base ToolProvider[Resp, T]) ToolProvider[Resp, SandboxTools[T]] {
	return sandboxToolsProvider[Resp, T]{base: base}
}

func (p sandboxToolsProvider[Resp, T]) Tools(cb SandboxTools[T]) map[string]Tool[Resp] {
	tools := p.base.Tools(cb.base)
	if cb.HasShell() {
		tools["shell"] = commandTool[Resp]("shell", "Executes a shell command.", cb.Shell)
	}
	if cb.HasGit() {
		tools["git"] = commandTool[Resp]("git",
			`Executes a shell command with git logged in. Commands must begin with "git ".`, cb.Git)
	}
	return tools
}

func commandTool[Resp any](name, desc string, exec func(context.Context, string) (string, error)) Tool[Resp] {
	return Tool[Resp]{
		Def: Definition{
			Name:        name,
			Description: desc,
			Parameters: []Parameter{
				{Name: "command", Type: "string", Description: "The command to run", Required: true},
			},
		},
		Handler: func(ctx context.Context, call ToolCall, trace *agenttrace.Trace[Resp], _ *Resp) map[string]any {
			cmd, errResp := Param[string](call, trace, "command")
			if errResp != nil {
				return errResp
			}
			return run(ctx, trace, call, func(ctx context.Context) (string, error) {
				return exec(ctx, cmd)
			})
		},
	}
}
