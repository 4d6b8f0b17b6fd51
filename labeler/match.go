/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package labeler

import (
	"strings"

	"chainguard.dev/maige/ghapp"
)

// Matcher resolves one answer token to a label.
type Matcher interface {
	Match(token string, labels []ghapp.Label) (ghapp.Label, bool)
}

// ContainsMatcher resolves a token to the first label whose lowercased name
// contains it. The token is expected to be lowercased already.
type ContainsMatcher struct{}

func (ContainsMatcher) Match(token string, labels []ghapp.Label) (ghapp.Label, bool) {
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l.Name), token) {
			return l, true
		}
	}
	return ghapp.Label{}, false
}

// ExactMatcher resolves a token to the first label whose name equals it,
// ignoring case.
type ExactMatcher struct{}

func (ExactMatcher) Match(token string, labels []ghapp.Label) (ghapp.Label, bool) {
	for _, l := range labels {
		if strings.EqualFold(l.Name, token) {
			return l, true
		}
	}
	return ghapp.Label{}, false
}

// ParseAnswer splits a model answer on commas into trimmed, lowercased
// tokens. Surrounding quotes are dropped and empty tokens are skipped, since
// an empty token would be contained in every label name.
func ParseAnswer(answer string) []string {
	var tokens []string
	for _, part := range strings.Split(answer, ",") {
		t := strings.ToLower(strings.Trim(strings.TrimSpace(part), "\"'`"))
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// Resolve maps tokens to labels in token order, skipping unmatched tokens.
func Resolve(m Matcher, tokens []string, labels []ghapp.Label) []ghapp.Label {
	var out []ghapp.Label
	for _, t := range tokens {
		if l, ok := m.Match(t, labels); ok {
			out = append(out, l)
		}
	}
	return out
}
