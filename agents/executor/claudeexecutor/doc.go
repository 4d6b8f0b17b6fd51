/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package claudeexecutor runs a tool-calling agent conversation against the
Anthropic Messages API.

The request is bound into the prompt template and sent as the first user
message. Every assistant turn that asks for tools is answered with their
results; the first turn without tool calls ends the run and its text becomes
the Response. Runs are bounded by WithMaxSteps.

	exec, err := claudeexecutor.New[Task, string](client, prompt,
		claudeexecutor.WithModel[Task, string]("claude-sonnet-4-5"),
		claudeexecutor.WithSystemInstructions[Task, string](directive),
	)
	answer, err := exec.Execute(ctx, task, tools)
*/
package claudeexecutor
