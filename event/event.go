/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package event decodes GitHub webhook deliveries into a closed set of typed
// events. Anything outside that set decodes to Other.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-github/v84/github"
)

// Kind identifies an event by "<event>.<action>".
type Kind string

const (
	InstallationCreated Kind = "installation.created"
	InstallationDeleted Kind = "installation.deleted"
	RepositoriesAdded   Kind = "installation_repositories.added"
	RepositoriesRemoved Kind = "installation_repositories.removed"
	IssueOpened         Kind = "issues.opened"
	CommentCreated      Kind = "issue_comment.created"
	Other               Kind = "other"
)

// ErrMalformed is wrapped by Parse when a delivery of a known kind is missing
// required fields or is not valid JSON.
var ErrMalformed = errors.New("malformed webhook payload")

// Event is one of *Installation, *Issue or *Unhandled.
type Event interface {
	Kind() Kind
	sealed()
}

// Repository identifies a repository in a delivery.
type Repository struct {
	NodeID   string
	Name     string
	FullName string
	Owner    string
	Private  bool
}

// Installation is an installation lifecycle or repository selection change.
type Installation struct {
	kind           Kind
	InstallationID int64
	// Account is the login of the account the app is installed on.
	Account string
	// Repositories is populated for InstallationCreated.
	Repositories []Repository
	// Added and Removed are populated for RepositoriesAdded/RepositoriesRemoved.
	Added   []Repository
	Removed []Repository
}

func (i *Installation) Kind() Kind { return i.kind }
func (*Installation) sealed()      {}

// Comment is the comment that triggered an issue_comment delivery.
type Comment struct {
	Body string
	// AuthorAssociation is the platform-reported relationship of the author
	// with the repository, e.g. OWNER, MEMBER, COLLABORATOR, NONE.
	AuthorAssociation string
}

// Issue is a newly opened issue or a newly created comment on one.
type Issue struct {
	kind           Kind
	InstallationID int64
	Repository     Repository
	NodeID         string
	Number         int
	Title          string
	Body           string
	// Comment is set for CommentCreated.
	Comment *Comment
}

func (i *Issue) Kind() Kind { return i.kind }
func (*Issue) sealed()      {}

// Unhandled is any delivery this service does not act on.
type Unhandled struct {
	Name   string
	Action string
}

func (*Unhandled) Kind() Kind { return Other }
func (*Unhandled) sealed()    {}

func repository(r *github.Repository) Repository {
	return Repository{
		NodeID:   r.GetNodeID(),
		Name:     r.GetName(),
		FullName: r.GetFullName(),
		Owner:    r.GetOwner().GetLogin(),
		Private:  r.GetPrivate(),
	}
}

func repositories(rs []*github.Repository) []Repository {
	var out []Repository
	for _, r := range rs {
		out = append(out, repository(r))
	}
	return out
}

// envelope holds the fields shared by every delivery. It is used to infer
// the event family when the header is missing and to report the action of
// unhandled deliveries.
type envelope struct {
	Action       string               `json:"action"`
	Installation *github.Installation `json:"installation"`
	Issue        *github.Issue        `json:"issue"`
	Comment      *github.IssueComment `json:"comment"`
}

// Parse decodes body, using name (the X-GitHub-Event header) to pick the
// event family. When name is empty the family is inferred from the payload
// shape.
func Parse(name string, body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if name == "" {
		name = env.inferName()
	}

	switch name {
	case "installation", "installation_repositories", "issues", "issue_comment":
	default:
		return &Unhandled{Name: name, Action: env.Action}, nil
	}

	payload, err := github.ParseWebHook(name, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch e := payload.(type) {
	case *github.InstallationEvent:
		switch e.GetAction() {
		case "created":
			return installation(InstallationCreated, e.GetInstallation(), e.Repositories, nil, nil)
		case "deleted":
			return installation(InstallationDeleted, e.GetInstallation(), e.Repositories, nil, nil)
		}
	case *github.InstallationRepositoriesEvent:
		switch e.GetAction() {
		case "added":
			return installation(RepositoriesAdded, e.GetInstallation(), nil, e.RepositoriesAdded, e.RepositoriesRemoved)
		case "removed":
			return installation(RepositoriesRemoved, e.GetInstallation(), nil, e.RepositoriesAdded, e.RepositoriesRemoved)
		}
	case *github.IssuesEvent:
		if e.GetAction() == "opened" && e.Issue != nil {
			return issue(IssueOpened, e.GetInstallation(), e.GetRepo(), e.Issue, nil)
		}
	case *github.IssueCommentEvent:
		if e.GetAction() == "created" && e.Comment != nil && e.Issue != nil {
			return issue(CommentCreated, e.GetInstallation(), e.GetRepo(), e.Issue, e.Comment)
		}
	}
	return &Unhandled{Name: name, Action: env.Action}, nil
}

func (e *envelope) inferName() string {
	account := e.Installation.GetAccount().GetLogin()
	switch {
	case account != "" && (e.Action == "added" || e.Action == "removed"):
		return "installation_repositories"
	case account != "":
		return "installation"
	case e.Comment != nil:
		return "issue_comment"
	case e.Issue != nil:
		return "issues"
	}
	return ""
}

func installation(kind Kind, inst *github.Installation, repos, added, removed []*github.Repository) (Event, error) {
	login := inst.GetAccount().GetLogin()
	if login == "" {
		return nil, fmt.Errorf("%w: %s without installation.account.login", ErrMalformed, kind)
	}
	return &Installation{
		kind:           kind,
		InstallationID: inst.GetID(),
		Account:        login,
		Repositories:   repositories(repos),
		Added:          repositories(added),
		Removed:        repositories(removed),
	}, nil
}

func issue(kind Kind, inst *github.Installation, repo *github.Repository, is *github.Issue, comment *github.IssueComment) (Event, error) {
	switch {
	case repo.GetName() == "" || repo.GetOwner().GetLogin() == "":
		return nil, fmt.Errorf("%w: %s without repository owner and name", ErrMalformed, kind)
	case is.GetNodeID() == "":
		return nil, fmt.Errorf("%w: %s without issue.node_id", ErrMalformed, kind)
	case inst.GetID() == 0:
		return nil, fmt.Errorf("%w: %s without installation.id", ErrMalformed, kind)
	}
	ev := &Issue{
		kind:           kind,
		InstallationID: inst.GetID(),
		Repository:     repository(repo),
		NodeID:         is.GetNodeID(),
		Number:         is.GetNumber(),
		Title:          is.GetTitle(),
		Body:           is.GetBody(),
	}
	if comment != nil {
		ev.Comment = &Comment{
			Body:              comment.GetBody(),
			AuthorAssociation: comment.GetAuthorAssociation(),
		}
	}
	return ev, nil
}
