/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiexecutor runs a tool-calling agent conversation against the
// OpenAI chat completions API. It follows the same contract as
// claudeexecutor: tool calls are answered until the model replies with text,
// bounded by WithMaxSteps.
package openaiexecutor
