/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package storetest is a conformance suite for store.Store implementations.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chainguard.dev/maige/store"
	"github.com/google/go-cmp/cmp"
)

// Factory returns an empty, ready-to-use store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run exercises every store.Store operation against stores made by f.
func Run(t *testing.T, f Factory) {
	tests := map[string]func(*testing.T, store.Store){
		"create and get":     testCreateAndGet,
		"duplicate customer": testDuplicateCustomer,
		"upsert":             testUpsert,
		"not found":          testNotFound,
		"projects":           testProjects,
		"delete customer":    testDeleteCustomer,
		"usage":              testUsage,
		"concurrent usage":   testConcurrentUsage,
		"warning claim":      testWarningClaim,
		"transaction":        testTransaction,
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := f(t)
			t.Cleanup(func() { s.Close() })
			tt(t, s)
		})
	}
}

func projectNames(t *testing.T, s store.Store, customerID string) []string {
	t.Helper()
	ps, err := s.ListProjects(context.Background(), customerID)
	if err != nil {
		t.Fatalf("ListProjects() = %v", err)
	}
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.CustomerID != customerID {
			t.Errorf("project %s has customer %s, want %s", p.Name, p.CustomerID, customerID)
		}
		names = append(names, p.Name)
	}
	return names
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "acme", []string{"widgets", "gadgets"})
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}
	if c.ID == "" || c.Name != "acme" || c.Usage != 0 || c.UsageWarned {
		t.Errorf("CreateCustomer() = %+v", c)
	}
	if c.UsageLimit <= 0 {
		t.Errorf("UsageLimit = %d, want a positive default", c.UsageLimit)
	}

	got, err := s.GetCustomer(ctx, "acme")
	if err != nil {
		t.Fatalf("GetCustomer() = %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("GetCustomer().ID = %s, want %s", got.ID, c.ID)
	}
	if diff := cmp.Diff([]string{"gadgets", "widgets"}, projectNames(t, s, c.ID)); diff != "" {
		t.Errorf("ListProjects() (-want +got):\n%s", diff)
	}
}

func testDuplicateCustomer(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.CreateCustomer(ctx, "acme", nil); err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}
	if _, err := s.CreateCustomer(ctx, "acme", []string{"widgets"}); err == nil {
		t.Error("second CreateCustomer() succeeded")
	}
}

func testUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	first, err := s.UpsertCustomer(ctx, "acme")
	if err != nil {
		t.Fatalf("UpsertCustomer() = %v", err)
	}
	if err := s.IncrementUsage(ctx, "acme", time.Now()); err != nil {
		t.Fatalf("IncrementUsage() = %v", err)
	}
	second, err := s.UpsertCustomer(ctx, "acme")
	if err != nil {
		t.Fatalf("UpsertCustomer() = %v", err)
	}
	if second.ID != first.ID || second.Usage != 1 {
		t.Errorf("UpsertCustomer() of an existing customer = %+v, want id %s and usage 1", second, first.ID)
	}
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	for name, err := range map[string]error{
		"GetCustomer": func() error {
			_, err := s.GetCustomer(ctx, "ghost")
			return err
		}(),
		"DeleteCustomer": s.DeleteCustomer(ctx, "ghost"),
		"IncrementUsage": s.IncrementUsage(ctx, "ghost", time.Now()),
		"ClaimUsageWarning": func() error {
			_, err := s.ClaimUsageWarning(ctx, "no-such-id")
			return err
		}(),
		"ReleaseUsageWarning": s.ReleaseUsageWarning(ctx, "no-such-id"),
	} {
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s() = %v, want ErrNotFound", name, err)
		}
	}
}

func testProjects(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "acme", []string{"widgets"})
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}
	if err := s.CreateProjects(ctx, c.ID, []string{"widgets", "sprockets", "gizmos"}); err != nil {
		t.Fatalf("CreateProjects() = %v", err)
	}
	if diff := cmp.Diff([]string{"gizmos", "sprockets", "widgets"}, projectNames(t, s, c.ID)); diff != "" {
		t.Errorf("after create (-want +got):\n%s", diff)
	}

	if err := s.DeleteProjects(ctx, c.ID, []string{"widgets", "absent"}); err != nil {
		t.Fatalf("DeleteProjects() = %v", err)
	}
	if diff := cmp.Diff([]string{"gizmos", "sprockets"}, projectNames(t, s, c.ID)); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}
}

func testDeleteCustomer(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "acme", []string{"widgets", "gadgets"})
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}
	other, err := s.CreateCustomer(ctx, "globex", []string{"widgets"})
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}

	if err := s.DeleteCustomer(ctx, "acme"); err != nil {
		t.Fatalf("DeleteCustomer() = %v", err)
	}
	if _, err := s.GetCustomer(ctx, "acme"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCustomer() after delete = %v, want ErrNotFound", err)
	}
	if got := projectNames(t, s, c.ID); len(got) != 0 {
		t.Errorf("projects of a deleted customer = %v", got)
	}
	if diff := cmp.Diff([]string{"widgets"}, projectNames(t, s, other.ID)); diff != "" {
		t.Errorf("other customer's projects (-want +got):\n%s", diff)
	}
}

func testUsage(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "acme", nil)
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}
	at := time.Now().Add(time.Hour).Truncate(time.Second)
	for range 3 {
		if err := s.IncrementUsage(ctx, "acme", at); err != nil {
			t.Fatalf("IncrementUsage() = %v", err)
		}
	}
	if claimed, err := s.ClaimUsageWarning(ctx, c.ID); err != nil || !claimed {
		t.Fatalf("ClaimUsageWarning() = %v, %v, want true", claimed, err)
	}

	got, err := s.GetCustomer(ctx, "acme")
	if err != nil {
		t.Fatalf("GetCustomer() = %v", err)
	}
	if got.Usage != 3 || !got.UsageWarned {
		t.Errorf("GetCustomer() = usage %d warned %v, want 3 true", got.Usage, got.UsageWarned)
	}
	if !got.UsageUpdatedAt.Equal(at) {
		t.Errorf("UsageUpdatedAt = %v, want %v", got.UsageUpdatedAt, at)
	}
}

func testWarningClaim(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "acme", nil)
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}

	const n = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimUsageWarning(ctx, c.ID)
			if err != nil {
				t.Errorf("ClaimUsageWarning() = %v", err)
				return
			}
			if claimed {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if claims != 1 {
		t.Fatalf("%d concurrent claims succeeded, want 1", claims)
	}

	if err := s.ReleaseUsageWarning(ctx, c.ID); err != nil {
		t.Fatalf("ReleaseUsageWarning() = %v", err)
	}
	got, err := s.GetCustomer(ctx, "acme")
	if err != nil {
		t.Fatalf("GetCustomer() = %v", err)
	}
	if got.UsageWarned {
		t.Error("UsageWarned still set after release")
	}
	if claimed, err := s.ClaimUsageWarning(ctx, c.ID); err != nil || !claimed {
		t.Errorf("ClaimUsageWarning() after release = %v, %v, want true", claimed, err)
	}
}

func testConcurrentUsage(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.CreateCustomer(ctx, "acme", nil); err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.IncrementUsage(ctx, "acme", time.Now())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("IncrementUsage() = %v", err)
		}
	}

	got, err := s.GetCustomer(ctx, "acme")
	if err != nil {
		t.Fatalf("GetCustomer() = %v", err)
	}
	if got.Usage != n {
		t.Errorf("Usage = %d, want %d", got.Usage, n)
	}
}

func testTransaction(t *testing.T, s store.Store) {
	tx, ok := s.(store.Transactor)
	if !ok {
		t.Skip("store does not implement store.Transactor")
	}
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "acme", []string{"widgets"})
	if err != nil {
		t.Fatalf("CreateCustomer() = %v", err)
	}

	boom := errors.New("boom")
	err = tx.InTx(ctx, func(s store.Store) error {
		if err := s.CreateProjects(ctx, c.ID, []string{"gadgets"}); err != nil {
			return err
		}
		if _, err := s.CreateCustomer(ctx, "globex", nil); err != nil {
			return err
		}
		return fmt.Errorf("aborting: %w", boom)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() = %v, want %v", err, boom)
	}
	if diff := cmp.Diff([]string{"widgets"}, projectNames(t, s, c.ID)); diff != "" {
		t.Errorf("rolled back projects (-want +got):\n%s", diff)
	}
	if _, err := s.GetCustomer(ctx, "globex"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rolled back customer: GetCustomer() = %v, want ErrNotFound", err)
	}

	if err := tx.InTx(ctx, func(s store.Store) error {
		return s.CreateProjects(ctx, c.ID, []string{"gadgets"})
	}); err != nil {
		t.Fatalf("InTx() = %v", err)
	}
	if diff := cmp.Diff([]string{"gadgets", "widgets"}, projectNames(t, s, c.ID)); diff != "" {
		t.Errorf("committed projects (-want +got):\n%s", diff)
	}
}
