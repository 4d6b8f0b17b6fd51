/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package labeler

import (
	"context"
	"fmt"

	"chainguard.dev/maige/apperr"
	"chainguard.dev/maige/ghapp"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var labelsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "maige",
	Name:      "labels_applied_total",
	Help:      "Labels attached to issues by the labeling pipeline.",
})

// Labels lists and attaches repository labels.
type Labels interface {
	ListLabels(ctx context.Context, owner, name string) ([]ghapp.Label, error)
	AddLabels(ctx context.Context, labelableID string, labelIDs ...string) error
}

// Usage records one consumed operation for a customer.
type Usage interface {
	Record(ctx context.Context, customer string) error
}

// Result describes a successful labeling.
type Result struct {
	Answer string
	Tokens []string
	// Resolved holds every label the answer resolved to, in token order.
	Resolved []ghapp.Label
	// Applied is the label attached to the issue, always Resolved[0].
	Applied ghapp.Label
}

// Pipeline labels issues.
type Pipeline struct {
	completer Completer
	usage     Usage
	matcher   Matcher
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMatcher replaces the default ContainsMatcher.
func WithMatcher(m Matcher) Option {
	return func(p *Pipeline) { p.matcher = m }
}

// New returns a Pipeline.
func New(completer Completer, usage Usage, opts ...Option) *Pipeline {
	p := &Pipeline{
		completer: completer,
		usage:     usage,
		matcher:   ContainsMatcher{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Label selects and attaches a label for req using labels, then records one
// unit of usage for req.Owner. Nothing is recorded unless the label was
// attached.
func (p *Pipeline) Label(ctx context.Context, labels Labels, req Request) (*Result, error) {
	log := clog.FromContext(ctx).With("owner", req.Owner, "repo", req.Repo)

	existing, err := labels.ListLabels(ctx, req.Owner, req.Repo)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "list labels", "Could not get labels", err)
	}
	if len(existing) == 0 {
		// Nothing can resolve, so the completion is skipped.
		return nil, apperr.New(apperr.Resolution, "resolve labels", "Could not find labels")
	}

	prompt, err := BuildPrompt(req, existing)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	answer, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "complete",
			fmt.Sprintf("OpenAI API error: %d", StatusCode(err)), err)
	}
	log.With("answer", answer).Info("Model answered")

	tokens := ParseAnswer(answer)
	resolved := Resolve(p.matcher, tokens, existing)
	if len(resolved) == 0 {
		log.With("answer", answer).Warn("Answer matched no labels")
		return nil, apperr.New(apperr.Resolution, "resolve labels", "Could not find labels")
	}
	if len(resolved) > 1 {
		log.With("category", resolved[1].Name).Info("Category label resolved but not applied")
	}

	applied := resolved[0]
	if err := labels.AddLabels(ctx, req.IssueID, applied.ID); err != nil {
		log.With("error", err).Error("Could not add labels")
		return nil, apperr.Wrap(apperr.Upstream, "add labels", "Could not add labels", err)
	}
	labelsApplied.Inc()

	if err := p.usage.Record(ctx, req.Owner); err != nil {
		// Non-fatal: the label is already attached.
		log.With("error", err).Error("Could not record usage")
	}

	return &Result{
		Answer:   answer,
		Tokens:   tokens,
		Resolved: resolved,
		Applied:  applied,
	}, nil
}
