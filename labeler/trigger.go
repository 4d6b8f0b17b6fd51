/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package labeler

import (
	"strings"

	"chainguard.dev/maige/event"
)

// TriggerToken must appear in a comment for it to request labeling.
const TriggerToken = "/label"

// trustedAssociations are the author associations with write access or
// higher. Comments from anyone else never reach the model.
var trustedAssociations = map[string]bool{
	"OWNER":        true,
	"MEMBER":       true,
	"COLLABORATOR": true,
}

// Skip explains why an event does not request labeling. The zero value means
// it does.
type Skip string

const (
	SkipNotTriggered    Skip = "Non-label comment received"
	SkipNotCollaborator Skip = "Comment from non-collaborator received"
)

// Triggered checks the labeling preconditions for ev. Newly opened issues
// always qualify; comments must contain TriggerToken and come from a trusted
// author.
func Triggered(ev *event.Issue) Skip {
	if ev.Comment == nil {
		return ""
	}
	if !strings.Contains(ev.Comment.Body, TriggerToken) {
		return SkipNotTriggered
	}
	if !trustedAssociations[strings.ToUpper(ev.Comment.AuthorAssociation)] {
		return SkipNotCollaborator
	}
	return ""
}
