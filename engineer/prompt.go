/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package engineer

import (
	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
)

// Directive is the system prompt of every run.
var Directive = promptbuilder.MustNew(
	"You are a 100x AI engineer. " +
		"You use the internet, shell, and git to solve problems. " +
		"You recover flexibly from errors. " +
		"You follow instructions without taking them too literally. " +
		"You obey the 3 laws of robotics.")

// TaskPrompt frames the task for the model.
var TaskPrompt = promptbuilder.MustNew(`You are working on the GitHub repository {{repository}}.

{{task}}`)

// Task is one unit of work for the agent.
type Task struct {
	ID string
	// Customer is the login of the account that owns the repository.
	Customer string
	// CustomerID is the customer's store id. Code search is scoped to it
	// and is left out when it is empty.
	CustomerID string
	Owner      string
	Repo       string
	Input      string
}

// Repository returns owner/repo.
func (t Task) Repository() string { return t.Owner + "/" + t.Repo }

// Bind fills TaskPrompt. The input is user text, so it is bound as XML.
func (t Task) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	p, err := p.Bind("repository", func() (string, error) { return t.Repository(), nil })
	if err != nil {
		return nil, err
	}
	return p.Bind("task", promptbuilder.XML(struct {
		XMLName struct{} `xml:"task"`
		Text    string   `xml:",chardata"`
	}{Text: t.Input}))
}

// Callbacks is the tool stack of the engineer agent.
type Callbacks = toolcall.SandboxTools[toolcall.GitHubTools[toolcall.ResearchTools[toolcall.EmptyTools]]]

// Tools returns the provider for Callbacks.
func Tools() toolcall.ToolProvider[string, Callbacks] {
	return toolcall.NewSandboxToolsProvider(
		toolcall.NewGitHubToolsProvider(
			toolcall.NewResearchToolsProvider(
				toolcall.NewEmptyToolsProvider[string]())))
}
