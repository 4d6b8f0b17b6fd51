/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package credguard adds GitHub credentials to git commands run by the agent
// without exposing them to anything but git itself.
package credguard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const gitPrefix = "git "

// ErrNotGit is returned for commands that do not start with "git ".
var ErrNotGit = errors.New(`commands must begin with "git "`)

// Injector rewrites git commands to authenticate with a personal access token.
type Injector struct {
	secrets []string
	header  string
}

// NewInjector returns an Injector for token.
func NewInjector(token string) *Injector {
	basic := base64.StdEncoding.EncodeToString([]byte("pat:" + token))
	return &Injector{
		secrets: []string{basic, token},
		header:  fmt.Sprintf(`-c http.extraHeader="AUTHORIZATION: basic %s"`, basic),
	}
}

// Rewrite inserts the auth header flag after the leading "git ". Only the
// first occurrence is rewritten, so a command such as
// `git log && echo 'git '` cannot echo the credential.
func (i *Injector) Rewrite(cmd string) (string, error) {
	if !strings.HasPrefix(cmd, gitPrefix) {
		return "", ErrNotGit
	}
	return strings.Replace(cmd, gitPrefix, gitPrefix+i.header+" ", 1), nil
}

// Redact masks the credential in command output, e.g. from `git config --list`.
func (i *Injector) Redact(out string) string {
	for _, s := range i.secrets {
		if s != "" {
			out = strings.ReplaceAll(out, s, "[REDACTED]")
		}
	}
	return out
}

// SetupCommand returns the one-time command that sets the committer identity.
func SetupCommand(email, name string) string {
	return fmt.Sprintf("git config --global user.email %q && git config --global user.name %q", email, name)
}
