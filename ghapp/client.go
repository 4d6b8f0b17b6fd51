/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ghapp provides GitHub clients authenticated as a GitHub App
// installation or as the service account, and the handful of GraphQL
// operations the labeler and usage gate need.
package ghapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// MaxLabels bounds the label query. Repositories with more labels only have
// their first page considered.
const MaxLabels = 100

// Label is a repository label.
type Label struct {
	ID   string
	Name string
}

// Client wraps the REST and GraphQL clients for one identity.
type Client struct {
	gql  *githubv4.Client
	rest *github.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL string
}

// WithBaseURL points both APIs at a GitHub Enterprise or test server. The
// GraphQL endpoint is baseURL + "/graphql".
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// NewClient returns a Client that sends requests with httpClient.
func NewClient(httpClient *http.Client, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rest := github.NewClient(httpClient)
	gql := githubv4.NewClient(httpClient)
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing base url: %w", err)
		}
		rest.BaseURL = u
		gql = githubv4.NewEnterpriseClient(o.baseURL+"/graphql", httpClient)
	}
	return &Client{gql: gql, rest: rest}, nil
}

// NewTokenClient returns a Client authenticated with a static access token.
func NewTokenClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClient(oauth2.NewClient(ctx, src), opts...)
}

// REST returns the underlying go-github client.
func (c *Client) REST() *github.Client {
	return c.rest
}

// ListLabels returns up to MaxLabels labels of owner/name.
func (c *Client) ListLabels(ctx context.Context, owner, name string) ([]Label, error) {
	var query struct {
		Repository *struct {
			Labels *struct {
				Nodes []struct {
					ID   githubv4.ID
					Name githubv4.String
				}
			} `graphql:"labels(first: 100)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	variables := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}
	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	if query.Repository == nil || query.Repository.Labels == nil {
		return nil, errors.New("labels missing from response")
	}

	labels := make([]Label, 0, len(query.Repository.Labels.Nodes))
	for _, n := range query.Repository.Labels.Nodes {
		labels = append(labels, Label{ID: fmt.Sprint(n.ID), Name: string(n.Name)})
	}
	return labels, nil
}

// AddLabels attaches labelIDs to the issue or pull request labelableID.
func (c *Client) AddLabels(ctx context.Context, labelableID string, labelIDs ...string) error {
	if len(labelIDs) == 0 {
		return errors.New("no labels to add")
	}
	var mutation struct {
		AddLabelsToLabelable struct {
			ClientMutationID *githubv4.String
		} `graphql:"addLabelsToLabelable(input: $input)"`
	}
	ids := make([]githubv4.ID, 0, len(labelIDs))
	for _, id := range labelIDs {
		ids = append(ids, githubv4.ID(id))
	}
	input := githubv4.AddLabelsToLabelableInput{
		LabelableID: githubv4.ID(labelableID),
		LabelIDs:    ids,
	}
	if err := c.gql.Mutate(ctx, &mutation, input, nil); err != nil {
		return fmt.Errorf("adding labels: %w", err)
	}
	return nil
}

// CreateIssue opens an issue on the repository with node id repoID and
// returns the new issue's node id.
func (c *Client) CreateIssue(ctx context.Context, repoID, title, body string) (string, error) {
	var mutation struct {
		CreateIssue struct {
			Issue *struct {
				ID githubv4.ID
			}
		} `graphql:"createIssue(input: $input)"`
	}
	input := githubv4.CreateIssueInput{
		RepositoryID: githubv4.ID(repoID),
		Title:        githubv4.String(title),
		Body:         githubv4.NewString(githubv4.String(body)),
	}
	if err := c.gql.Mutate(ctx, &mutation, input, nil); err != nil {
		return "", fmt.Errorf("creating issue: %w", err)
	}
	if mutation.CreateIssue.Issue == nil {
		return "", errors.New("issue missing from createIssue response")
	}
	return fmt.Sprint(mutation.CreateIssue.Issue.ID), nil
}

// Apps mints installation-scoped clients for a GitHub App.
type Apps struct {
	appID      int64
	privateKey []byte
	transport  http.RoundTripper
	opts       []Option
}

// NewApps returns Apps for the app appID signing with the PEM privateKey.
// transport carries the token exchange and API requests; nil means
// http.DefaultTransport.
func NewApps(appID int64, privateKey []byte, transport http.RoundTripper, opts ...Option) *Apps {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Apps{appID: appID, privateKey: privateKey, transport: transport, opts: opts}
}

// Installation returns a Client acting as installationID.
func (a *Apps) Installation(_ context.Context, installationID int64) (*Client, error) {
	itr, err := ghinstallation.New(a.transport, a.appID, installationID, a.privateKey)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	var o options
	for _, opt := range a.opts {
		opt(&o)
	}
	if o.baseURL != "" {
		itr.BaseURL = o.baseURL
	}
	return NewClient(&http.Client{Transport: itr}, a.opts...)
}
