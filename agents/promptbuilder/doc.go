/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder assembles LLM prompts from templates with {{name}}
// placeholders.
//
// Raw strings can only be bound from string literals. Anything that may carry
// user-controlled text (issue titles and bodies, label names, task
// instructions) is bound as structured XML, JSON or YAML so it is escaped and
// clearly delimited inside the prompt:
//
//	p := promptbuilder.MustNew(`Label this issue:
//	{{issue}}`)
//	p, err := p.Bind("issue", promptbuilder.XML(issue))
//	text, err := p.Build()
//
// Prompts are immutable; every Bind returns a new Prompt.
package promptbuilder
