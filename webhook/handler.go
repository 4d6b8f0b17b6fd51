/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package webhook serves GitHub App webhook deliveries: it verifies the
// signature, keeps customers and projects in sync with installations, and
// labels new issues for customers within their usage limit.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chainguard.dev/maige/apperr"
	"chainguard.dev/maige/dedupe"
	"chainguard.dev/maige/event"
	"chainguard.dev/maige/installsync"
	"chainguard.dev/maige/labeler"
	"chainguard.dev/maige/store"
	"chainguard.dev/maige/usagegate"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// EventHeader names the event family of a delivery.
	EventHeader = "X-GitHub-Event"
	// DeliveryHeader carries the unique id of a delivery, reused on redelivery.
	DeliveryHeader = "X-GitHub-Delivery"

	// maxBodyBytes matches GitHub's payload cap.
	maxBodyBytes = 25 << 20

	// DefaultUpstreamTimeout bounds the downstream calls of one delivery.
	DefaultUpstreamTimeout = 30 * time.Second
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "maige",
	Name:      "webhook_deliveries_total",
	Help:      "Webhook deliveries by event kind and response status.",
}, []string{"kind", "status"})

// InstallationClient is what the handler needs from an installation-scoped
// GitHub client.
type InstallationClient interface {
	labeler.Labels
	usagegate.IssueOpener
}

// Installations mints installation-scoped clients.
type Installations interface {
	Installation(ctx context.Context, installationID int64) (InstallationClient, error)
}

// InstallationsFunc adapts a function to Installations.
type InstallationsFunc func(ctx context.Context, installationID int64) (InstallationClient, error)

func (f InstallationsFunc) Installation(ctx context.Context, id int64) (InstallationClient, error) {
	return f(ctx, id)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	// Secret is the webhook secret shared with GitHub.
	Secret string
	// OpenAIKey must be set for any delivery to be processed.
	OpenAIKey     string
	Store         store.Store
	Installations Installations
	Gate          *usagegate.Gate
	Pipeline      *labeler.Pipeline
}

// Handler is an http.Handler for webhook deliveries.
type Handler struct {
	Deps
	sync    *installsync.Synchronizer
	deduper dedupe.Deduper
	timeout time.Duration
}

var _ http.Handler = (*Handler)(nil)

// Option configures a Handler.
type Option func(*Handler)

// WithDeduper enables delivery dedupe.
func WithDeduper(d dedupe.Deduper) Option {
	return func(h *Handler) { h.deduper = d }
}

// WithUpstreamTimeout overrides DefaultUpstreamTimeout.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// New returns a Handler.
func New(deps Deps, opts ...Option) *Handler {
	h := &Handler{
		Deps:    deps,
		sync:    installsync.New(deps.Store),
		timeout: DefaultUpstreamTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type response struct {
	Message string `json:"message"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.reply(ctx, w, event.Other, http.StatusMethodNotAllowed, "Only POST requests are accepted.")
		return
	}
	if h.OpenAIKey == "" {
		h.reply(ctx, w, event.Other, http.StatusInternalServerError, "Missing OpenAI API key")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.reply(ctx, w, event.Other, http.StatusBadRequest, "Could not read request body")
		return
	}
	if !ValidSignature(body, r.Header.Get(SignatureHeader), h.Secret) {
		h.reply(ctx, w, event.Other, http.StatusForbidden, "Bad GitHub webhook secret.")
		return
	}

	ev, err := event.Parse(r.Header.Get(EventHeader), body)
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Rejecting malformed delivery")
		h.reply(ctx, w, event.Other, http.StatusBadRequest, "Malformed webhook payload")
		return
	}

	delivery := r.Header.Get(DeliveryHeader)
	log := clog.FromContext(ctx).With("delivery", delivery, "kind", ev.Kind())
	ctx = clog.WithLogger(ctx, log)

	reserved := false
	if h.deduper != nil && delivery != "" {
		first, err := h.deduper.Reserve(ctx, delivery)
		switch {
		case err != nil:
			log.With("error", err).Warn("Could not reserve delivery, processing anyway")
		case !first:
			h.reply(ctx, w, ev.Kind(), http.StatusAccepted, "Duplicate delivery")
			return
		default:
			reserved = true
		}
	}

	status, msg := h.process(ctx, ev)
	if status >= http.StatusInternalServerError && reserved {
		// Let a redelivery retry the failed work. The request context may be
		// done by now.
		if err := h.deduper.Release(context.WithoutCancel(ctx), delivery); err != nil {
			log.With("error", err).Warn("Could not release delivery")
		}
	}
	h.reply(ctx, w, ev.Kind(), status, msg)
}

// process runs ev to completion and returns the response status and message.
func (h *Handler) process(ctx context.Context, ev event.Event) (int, string) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		status int
		msg    string
		err    error
	)
	switch ev := ev.(type) {
	case *event.Installation:
		status, msg, err = h.installation(ctx, ev)
	case *event.Issue:
		status, msg, err = h.issue(ctx, ev)
	default:
		return http.StatusAccepted, "Webhook received"
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && apperr.KindOf(err) == apperr.Unknown {
			err = apperr.Wrap(apperr.Upstream, "webhook", "Upstream timeout", err)
		}
		clog.FromContext(ctx).With("error", err, "kind", apperr.KindOf(err).String()).Error("Delivery failed")
		return statusFor(err), apperr.MessageOf(err, "Internal error")
	}
	return status, msg
}

func (h *Handler) installation(ctx context.Context, ev *event.Installation) (int, string, error) {
	res, err := h.sync.Sync(ctx, ev)
	if err != nil {
		return 0, "", err
	}
	if res.Outcome == installsync.CustomerAdded {
		return http.StatusOK, res.Message, nil
	}
	return http.StatusCreated, res.Message, nil
}

func (h *Handler) issue(ctx context.Context, ev *event.Issue) (int, string, error) {
	if skip := labeler.Triggered(ev); skip != "" {
		return http.StatusAccepted, string(skip), nil
	}

	log := clog.FromContext(ctx).With("repository", ev.Repository.FullName, "issue", ev.Number)
	ctx = clog.WithLogger(ctx, log)

	customer, err := h.Store.GetCustomer(ctx, ev.Repository.Owner)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.With("customer", ev.Repository.Owner).Warn("Could not find customer")
		return 0, "", apperr.Wrap(apperr.NotFound, "get customer", "Could not find customer", err)
	case err != nil:
		return 0, "", apperr.Wrap(apperr.Upstream, "get customer", "Could not find customer", err)
	}

	client, err := h.Installations.Installation(ctx, ev.InstallationID)
	if err != nil {
		return 0, "", apperr.Wrap(apperr.Upstream, "installation client",
			fmt.Sprintf("Could not authenticate installation %d", ev.InstallationID), err)
	}

	if err := h.Gate.Check(ctx, customer, client, ev.Repository.NodeID); err != nil {
		return 0, "", err
	}

	if _, err := h.Pipeline.Label(ctx, client, labeler.Request{
		Owner:   ev.Repository.Owner,
		Repo:    ev.Repository.Name,
		IssueID: ev.NodeID,
		Title:   ev.Title,
		Body:    ev.Body,
	}); err != nil {
		return 0, "", err
	}
	return http.StatusOK, "Webhook received. Labels added.", nil
}

func (h *Handler) reply(ctx context.Context, w http.ResponseWriter, kind event.Kind, status int, msg string) {
	deliveries.WithLabelValues(string(kind), strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Message: msg}); err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Could not write response")
	}
}
