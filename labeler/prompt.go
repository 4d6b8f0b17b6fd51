/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package labeler

import (
	"encoding/xml"
	"fmt"

	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/ghapp"
)

var labelPrompt = promptbuilder.MustNew(`You are tasked with labelling a GitHub issue based on its title and body.
The repository is:
{{repository}}
The possible labels are:
{{labels}}
Please choose one that represents the type of issue, examples: bug, feature request, or question.
Please choose a second label that represents the code area affected.

Here is the issue:
{{issue}}

Please answer in the format "type, category" with only the names of the labels, without explanation. For example: "bug, frontend".`)

type repositoryXML struct {
	XMLName xml.Name `xml:"repository"`
	Owner   string   `xml:"owner"`
	Name    string   `xml:"name"`
}

type issueXML struct {
	XMLName xml.Name `xml:"issue"`
	Title   string   `xml:"title"`
	Body    string   `xml:"body"`
}

// Request is one issue to label.
type Request struct {
	Owner string
	Repo  string
	// IssueID is the issue's GraphQL node id.
	IssueID string
	Title   string
	Body    string
}

// BuildPrompt renders the labeling prompt. The body is truncated to
// MaxBodyLength characters.
func BuildPrompt(req Request, labels []ghapp.Label) (string, error) {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}

	p, err := labelPrompt.Bind("repository", promptbuilder.XML(repositoryXML{Owner: req.Owner, Name: req.Repo}))
	if err != nil {
		return "", err
	}
	if p, err = p.Bind("labels", promptbuilder.YAML(names)); err != nil {
		return "", err
	}
	if p, err = p.Bind("issue", promptbuilder.XML(issueXML{Title: req.Title, Body: Truncate(req.Body, MaxBodyLength)})); err != nil {
		return "", err
	}
	s, err := p.Build()
	if err != nil {
		return "", fmt.Errorf("building label prompt: %w", err)
	}
	return s, nil
}
