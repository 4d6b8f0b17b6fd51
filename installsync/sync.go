/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package installsync reconciles customer and project records with GitHub App
// installation events.
package installsync

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"chainguard.dev/maige/apperr"
	"chainguard.dev/maige/event"
	"chainguard.dev/maige/store"
	"github.com/chainguard-dev/clog"
)

// Outcome describes what a sync did.
type Outcome int

const (
	// CustomerAdded means a new customer and its projects were created.
	CustomerAdded Outcome = iota + 1
	// CustomerDeleted means the uninstall was acknowledged. The customer row
	// may or may not have existed.
	CustomerDeleted
	// ProjectsSynced means the customer's project set was reconciled.
	ProjectsSynced
)

// Result is returned by Sync.
type Result struct {
	Outcome Outcome
	Message string
	// Created and Removed list the project names applied by ProjectsSynced.
	Created []string
	Removed []string
}

// Synchronizer applies installation events to a store.
type Synchronizer struct {
	store store.Store
}

// New returns a Synchronizer backed by s.
func New(s store.Store) *Synchronizer {
	return &Synchronizer{store: s}
}

// Sync applies ev.
func (s *Synchronizer) Sync(ctx context.Context, ev *event.Installation) (*Result, error) {
	log := clog.FromContext(ctx).With("account", ev.Account, "kind", ev.Kind())

	switch ev.Kind() {
	case event.InstallationCreated:
		names := repoNames(ev.Repositories)
		if _, err := s.store.CreateCustomer(ctx, ev.Account, names); err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "create customer",
				fmt.Sprintf("Could not add customer %s", ev.Account), err)
		}
		log.With("projects", len(names)).Info("Added customer")
		return &Result{
			Outcome: CustomerAdded,
			Message: fmt.Sprintf("Added customer %s", ev.Account),
			Created: names,
		}, nil

	case event.InstallationDeleted:
		// Uninstall acknowledgements are never retried by the platform, so a
		// failed or duplicate delete is logged and reported as done.
		if err := s.store.DeleteCustomer(ctx, ev.Account); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("Customer already deleted")
			} else {
				log.With("error", err).Error("Failed to delete customer")
			}
		}
		return &Result{
			Outcome: CustomerDeleted,
			Message: fmt.Sprintf("Deleted customer %s", ev.Account),
		}, nil

	case event.RepositoriesAdded, event.RepositoriesRemoved:
		return s.syncProjects(ctx, ev)

	default:
		return nil, apperr.New(apperr.Invalid, "installation sync",
			fmt.Sprintf("unsupported installation event %s", ev.Kind()))
	}
}

func (s *Synchronizer) syncProjects(ctx context.Context, ev *event.Installation) (*Result, error) {
	log := clog.FromContext(ctx).With("account", ev.Account)

	customer, err := s.store.UpsertCustomer(ctx, ev.Account)
	if err != nil || customer == nil || customer.ID == "" {
		if err == nil {
			err = errors.New("store returned no customer id")
		}
		return nil, apperr.Wrap(apperr.Upstream, "upsert customer",
			fmt.Sprintf("Could not find or create customer %s", ev.Account), err)
	}

	removed := repoNames(ev.Removed)
	var created []string

	apply := func(st store.Store) error {
		existing, err := st.ListProjects(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		created = NewRepos(ev.Added, existing)
		if err := st.CreateProjects(ctx, customer.ID, created); err != nil {
			return fmt.Errorf("creating projects: %w", err)
		}
		if err := st.DeleteProjects(ctx, customer.ID, removed); err != nil {
			return fmt.Errorf("deleting projects: %w", err)
		}
		return nil
	}

	if tx, ok := s.store.(store.Transactor); ok {
		err = tx.InTx(ctx, apply)
	} else {
		// Without a transaction creation runs before deletion; a partial
		// application is repaired when the platform redelivers the event.
		log.Warn("Store has no transactions, applying project sync without one")
		err = apply(s.store)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "sync projects",
			fmt.Sprintf("Could not update repos for %s", ev.Account), err)
	}

	log.With("created", len(created), "removed", len(removed)).Info("Updated repos")
	return &Result{
		Outcome: ProjectsSynced,
		Message: fmt.Sprintf("Updated repos for %s", ev.Account),
		Created: created,
		Removed: removed,
	}, nil
}

// NewRepos returns the names in added that are not already projects, in
// order, without duplicates.
func NewRepos(added []event.Repository, existing []store.Project) []string {
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.Name] = struct{}{}
	}
	var out []string
	for _, r := range added {
		if _, ok := known[r.Name]; ok {
			continue
		}
		known[r.Name] = struct{}{}
		out = append(out, r.Name)
	}
	return out
}

func repoNames(repos []event.Repository) []string {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		if !slices.Contains(names, r.Name) {
			names = append(names, r.Name)
		}
	}
	return names
}
