/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package toolcall defines agent tools once, independent of the model
// provider, and composes them into stacks.
//
// A stack starts from NewEmptyToolsProvider and wraps one provider per group
// of tools. Each layer adds its tools only when the matching callback is set:
//
//	provider := toolcall.NewSandboxToolsProvider(
//		toolcall.NewGitHubToolsProvider(
//			toolcall.NewResearchToolsProvider(
//				toolcall.NewEmptyToolsProvider[string]())))
//
//	tools := provider.Tools(toolcall.NewSandboxTools(
//		toolcall.NewGitHubTools(
//			toolcall.NewResearchTools(toolcall.EmptyTools{}, research),
//			github),
//		sandbox))
//
// The claudetool and openaitool packages convert the result into SDK types.
package toolcall
