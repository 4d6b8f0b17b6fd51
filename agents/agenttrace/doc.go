/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace records what an agent did during one run: the prompt, each
tool call with its arguments and result, token usage, and the final answer.

Every trace and tool call is also an OpenTelemetry span, so runs show up in
whatever trace backend the process exports to. Completed traces are handed to
a Tracer, which by default logs a summary with clog.

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		TaskID:     task.ID,
		Customer:   task.Customer,
		Repository: task.Repository,
	})
	trace := agenttrace.StartTrace[string](ctx, prompt)
	tc := trace.StartToolCall(call.ID, "shell", call.Args)
	tc.Complete(output, err)
	trace.Complete(answer, err)
*/
package agenttrace
