/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package callbacks holds the function sets that back agent tools. It has
// no dependencies so agents can declare what they need without importing
// sandbox or GitHub clients.
package callbacks

import "context"

// ResearchCallbacks look things up.
type ResearchCallbacks struct {
	// WebSearch answers a query from the web.
	WebSearch func(ctx context.Context, query string) (string, error)
	// SearchCode returns indexed code chunks from the task's repository.
	SearchCode func(ctx context.Context, query string) (string, error)
}

// HasWebSearch reports whether WebSearch is set.
func (r ResearchCallbacks) HasWebSearch() bool { return r.WebSearch != nil }

// HasSearchCode reports whether SearchCode is set.
func (r ResearchCallbacks) HasSearchCode() bool { return r.SearchCode != nil }

// GitHubCallbacks act on the task's repository through the REST API.
type GitHubCallbacks struct {
	// Comment posts body on an issue or pull request and returns its URL.
	Comment func(ctx context.Context, number int, body string) (string, error)
	// API performs a request against the REST API and returns the response body.
	API func(ctx context.Context, method, path, body string) (string, error)
}

// HasComment reports whether Comment is set.
func (g GitHubCallbacks) HasComment() bool { return g.Comment != nil }

// HasAPI reports whether API is set.
func (g GitHubCallbacks) HasAPI() bool { return g.API != nil }

// SandboxCallbacks run commands in the task's sandbox. Both return the
// JSON encoded output of the process.
type SandboxCallbacks struct {
	Shell func(ctx context.Context, command string) (string, error)
	Git   func(ctx context.Context, command string) (string, error)
}

// HasShell reports whether Shell is set.
func (s SandboxCallbacks) HasShell() bool { return s.Shell != nil }

// HasGit reports whether Git is set.
func (s SandboxCallbacks) HasGit() bool { return s.Git != nil }
