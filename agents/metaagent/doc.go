/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metaagent picks the executor for a model name so callers can
// switch providers through configuration alone.
//
//	agent, err := metaagent.New[Task, string, Callbacks]("gpt-4-1106-preview", keys, metaagent.Config[string, Callbacks]{
//		SystemInstructions: directive,
//		UserPrompt:         taskPrompt,
//		Tools:              provider,
//	})
//	answer, err := agent.Execute(ctx, task, callbacks)
package metaagent
