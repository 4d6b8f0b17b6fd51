/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package memstore is an in-process store.Store used for local development
// and tests.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"chainguard.dev/maige/store"
	"github.com/google/uuid"
)

type state struct {
	customers map[string]store.Customer           // by name
	projects  map[string]map[string]store.Project // customer id -> name -> project
}

func (s state) clone() state {
	c := state{
		customers: maps.Clone(s.customers),
		projects:  make(map[string]map[string]store.Project, len(s.projects)),
	}
	for id, ps := range s.projects {
		c.projects[id] = maps.Clone(ps)
	}
	return c
}

// Store keeps customers and projects in memory.
type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		state: state{
			customers: map[string]store.Customer{},
			projects:  map[string]map[string]store.Project{},
		},
		now: time.Now,
	}
}

func (s *Store) CreateCustomer(_ context.Context, name string, projects []string) (*store.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.customers[name]; ok {
		return nil, fmt.Errorf("customer %q already exists", name)
	}
	c := s.newCustomer(name)
	s.addProjects(c.ID, projects)
	return &c, nil
}

func (s *Store) UpsertCustomer(_ context.Context, name string) (*store.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.state.customers[name]; ok {
		return &c, nil
	}
	c := s.newCustomer(name)
	return &c, nil
}

func (s *Store) GetCustomer(_ context.Context, name string) (*store.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.customers[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) DeleteCustomer(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.customers[name]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.state.customers, name)
	delete(s.state.projects, c.ID)
	return nil
}

func (s *Store) ListProjects(_ context.Context, customerID string) ([]store.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := slices.Collect(maps.Values(s.state.projects[customerID]))
	slices.SortFunc(ps, func(a, b store.Project) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return ps, nil
}

func (s *Store) CreateProjects(_ context.Context, customerID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCustomerID(customerID) {
		return fmt.Errorf("customer %s: %w", customerID, store.ErrNotFound)
	}
	s.addProjects(customerID, names)
	return nil
}

func (s *Store) DeleteProjects(_ context.Context, customerID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range names {
		delete(s.state.projects[customerID], n)
	}
	return nil
}

func (s *Store) ClaimUsageWarning(_ context.Context, customerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setWarned(customerID, true)
}

func (s *Store) ReleaseUsageWarning(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.setWarned(customerID, false)
	return err
}

// setWarned reports whether the flag changed. s.mu must be held.
func (s *Store) setWarned(customerID string, warned bool) (bool, error) {
	for name, c := range s.state.customers {
		if c.ID == customerID {
			if c.UsageWarned == warned {
				return false, nil
			}
			c.UsageWarned = warned
			s.state.customers[name] = c
			return true, nil
		}
	}
	return false, fmt.Errorf("customer %s: %w", customerID, store.ErrNotFound)
}

func (s *Store) IncrementUsage(_ context.Context, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.customers[name]
	if !ok {
		return store.ErrNotFound
	}
	c.Usage++
	c.UsageUpdatedAt = at
	s.state.customers[name] = c
	return nil
}

// SetUsage overwrites the usage fields of a customer. It exists for seeding
// fixtures; production code only increments.
func (s *Store) SetUsage(name string, usage, limit int64, warned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.customers[name]
	if !ok {
		return store.ErrNotFound
	}
	c.Usage, c.UsageLimit, c.UsageWarned = usage, limit, warned
	s.state.customers[name] = c
	return nil
}

// InTx runs fn against a copy of the current state and publishes the copy
// only when fn succeeds. Other callers block until fn returns.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) newCustomer(name string) store.Customer {
	now := s.now()
	c := store.Customer{
		ID:             uuid.NewString(),
		Name:           name,
		UsageLimit:     store.DefaultUsageLimit,
		UsageUpdatedAt: now,
		CreatedAt:      now,
	}
	s.state.customers[name] = c
	return c
}

func (s *Store) hasCustomerID(id string) bool {
	for _, c := range s.state.customers {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) addProjects(customerID string, names []string) {
	ps, ok := s.state.projects[customerID]
	if !ok {
		ps = map[string]store.Project{}
		s.state.projects[customerID] = ps
	}
	for _, n := range names {
		if _, exists := ps[n]; exists {
			continue
		}
		ps[n] = store.Project{
			ID:         uuid.NewString(),
			Name:       n,
			CustomerID: customerID,
			CreatedAt:  s.now(),
		}
	}
}
