/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package billing generates payment links for customers that exceeded their
// usage.
package billing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// PlanBase is the plan offered in billing-warning issues.
const PlanBase = "base"

// Linker creates a payment link for a customer and plan.
type Linker interface {
	PaymentLink(ctx context.Context, customerID, plan string) (string, error)
}

// Stripe creates Stripe payment links.
type Stripe struct {
	api    *client.API
	prices map[string]string
}

var _ Linker = (*Stripe)(nil)

// Option configures the Stripe backend.
type Option func(*stripe.BackendConfig)

// WithBackendURL points API calls at url instead of api.stripe.com.
func WithBackendURL(url string) Option {
	return func(c *stripe.BackendConfig) { c.URL = stripe.String(url) }
}

// WithHTTPClient sets the client API calls are made with.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *stripe.BackendConfig) { c.HTTPClient = hc }
}

// NewStripe returns a Stripe linker. prices maps plan names to Stripe price ids.
func NewStripe(secretKey string, prices map[string]string, opts ...Option) *Stripe {
	var backends *stripe.Backends
	if len(opts) > 0 {
		cfg := &stripe.BackendConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
		}
	}
	return &Stripe{
		api:    client.New(secretKey, backends),
		prices: prices,
	}
}

// PaymentLink creates a single-quantity payment link for plan, tagged with the
// customer id so the checkout webhook can attribute it.
func (s *Stripe) PaymentLink(ctx context.Context, customerID, plan string) (string, error) {
	price, ok := s.prices[plan]
	if !ok || price == "" {
		return "", fmt.Errorf("no price configured for plan %q", plan)
	}

	params := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{{
			Price:    stripe.String(price),
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata("customerId", customerID)

	link, err := s.api.PaymentLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("creating payment link: %w", err)
	}
	return link.URL, nil
}
