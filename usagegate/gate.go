/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package usagegate meters labeling operations per customer and opens a
// one-time billing warning when a customer goes over its limit.
package usagegate

import (
	"context"
	"fmt"
	"time"

	"chainguard.dev/maige/apperr"
	"chainguard.dev/maige/billing"
	"chainguard.dev/maige/store"
	"github.com/chainguard-dev/clog"
)

// WarningTitle is the title of the billing-warning issue.
const WarningTitle = "Maige Usage"

// IssueOpener opens an issue on a repository identified by node id.
type IssueOpener interface {
	CreateIssue(ctx context.Context, repoID, title, body string) (string, error)
}

// Gate decides whether a customer may consume another labeling operation.
type Gate struct {
	store  store.Store
	linker billing.Linker
	now    func() time.Time
}

// New returns a Gate.
func New(s store.Store, linker billing.Linker) *Gate {
	return &Gate{store: s, linker: linker, now: time.Now}
}

// Check returns nil when customer is under its limit. Over the limit it opens
// the billing warning on repoID once, then returns a QuotaExceeded error. The
// warning is claimed in the store before it is opened, so concurrent events
// for the same customer open at most one issue. When the warning cannot be
// opened the claim is released and Check returns an Upstream error, so a
// later event retries it.
func (g *Gate) Check(ctx context.Context, customer *store.Customer, issues IssueOpener, repoID string) error {
	if !customer.OverLimit() {
		return nil
	}
	log := clog.FromContext(ctx).With("customer", customer.Name, "usage", customer.Usage, "limit", customer.UsageLimit)

	if !customer.UsageWarned {
		opened, err := g.warn(ctx, customer, issues, repoID)
		if err != nil {
			log.With("error", err).Warn("Could not open usage issue")
			return apperr.Wrap(apperr.Upstream, "open usage issue", "Could not open usage issue", err)
		}
		if opened {
			log.Info("Usage issue opened")
		}
	}

	log.Warn("Usage limit exceeded")
	return apperr.New(apperr.QuotaExceeded, "usage gate", "Please add payment info to continue.")
}

// warn reports whether this call opened the warning issue.
func (g *Gate) warn(ctx context.Context, customer *store.Customer, issues IssueOpener, repoID string) (bool, error) {
	claimed, err := g.store.ClaimUsageWarning(ctx, customer.ID)
	if err != nil {
		return false, fmt.Errorf("claiming usage warning: %w", err)
	}
	customer.UsageWarned = true
	if !claimed {
		return false, nil
	}

	if err := g.open(ctx, customer, issues, repoID); err != nil {
		if rerr := g.store.ReleaseUsageWarning(context.WithoutCancel(ctx), customer.ID); rerr != nil {
			clog.FromContext(ctx).With("error", rerr).Error("Could not release usage warning")
		}
		customer.UsageWarned = false
		return false, err
	}
	return true, nil
}

func (g *Gate) open(ctx context.Context, customer *store.Customer, issues IssueOpener, repoID string) error {
	link, err := g.linker.PaymentLink(ctx, customer.ID, billing.PlanBase)
	if err != nil {
		return err
	}
	_, err = issues.CreateIssue(ctx, repoID, WarningTitle, WarningBody(link))
	return err
}

// Record consumes one operation for the customer named name. It must only be
// called after a label was applied.
func (g *Gate) Record(ctx context.Context, name string) error {
	if err := g.store.IncrementUsage(ctx, name, g.now()); err != nil {
		return fmt.Errorf("incrementing usage for %s: %w", name, err)
	}
	return nil
}

// WarningBody renders the billing-warning issue body.
func WarningBody(paymentLink string) string {
	return "Thanks for trying [Maige](https://maige.app).\n\n" +
		"Running GPT-based services is pricey. At this point, we ask you to add payment info to continue using Maige.\n\n" +
		fmt.Sprintf("[Add payment info](%s)\n\n", paymentLink) +
		"Feel free to close this issue."
}
