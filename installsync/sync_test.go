/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package installsync

import (
	"context"
	"errors"
	"testing"

	"chainguard.dev/maige/apperr"
	"chainguard.dev/maige/event"
	"chainguard.dev/maige/store"
	"chainguard.dev/maige/store/memstore"
	"github.com/google/go-cmp/cmp"
)

func repos(names ...string) []event.Repository {
	out := make([]event.Repository, 0, len(names))
	for _, n := range names {
		out = append(out, event.Repository{Name: n, FullName: "acme/" + n})
	}
	return out
}

func parse(t *testing.T, name, body string) *event.Installation {
	t.Helper()
	ev, err := event.Parse(name, []byte(body))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	inst, ok := ev.(*event.Installation)
	if !ok {
		t.Fatalf("Parse() = %T, want *event.Installation", ev)
	}
	return inst
}

func projectNames(t *testing.T, s store.Store, account string) []string {
	t.Helper()
	ctx := context.Background()
	c, err := s.GetCustomer(ctx, account)
	if err != nil {
		t.Fatalf("GetCustomer() = %v", err)
	}
	ps, err := s.ListProjects(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListProjects() = %v", err)
	}
	var names []string
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return names
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	sync := New(s)

	res, err := sync.Sync(ctx, parse(t, "installation", `{"action": "created",
		"installation": {"id": 1, "account": {"login": "acme"}},
		"repositories": [{"name": "widgets"}, {"name": "gadgets"}, {"name": "widgets"}]}`))
	if err != nil {
		t.Fatalf("Sync(created) = %v", err)
	}
	if res.Outcome != CustomerAdded || res.Message != "Added customer acme" {
		t.Errorf("Sync(created) = %+v", res)
	}
	if diff := cmp.Diff([]string{"gadgets", "widgets"}, projectNames(t, s, "acme")); diff != "" {
		t.Errorf("projects (-want +got):\n%s", diff)
	}

	res, err = sync.Sync(ctx, parse(t, "installation_repositories", `{"action": "added",
		"installation": {"id": 1, "account": {"login": "acme"}},
		"repositories_added": [{"name": "widgets"}, {"name": "gizmos"}]}`))
	if err != nil {
		t.Fatalf("Sync(added) = %v", err)
	}
	if res.Outcome != ProjectsSynced || res.Message != "Updated repos for acme" {
		t.Errorf("Sync(added) = %+v", res)
	}
	if diff := cmp.Diff([]string{"gizmos"}, res.Created); diff != "" {
		t.Errorf("Created (-want +got):\n%s", diff)
	}

	if _, err := sync.Sync(ctx, parse(t, "installation_repositories", `{"action": "removed",
		"installation": {"id": 1, "account": {"login": "acme"}},
		"repositories_removed": [{"name": "widgets"}]}`)); err != nil {
		t.Fatalf("Sync(removed) = %v", err)
	}
	if diff := cmp.Diff([]string{"gadgets", "gizmos"}, projectNames(t, s, "acme")); diff != "" {
		t.Errorf("projects (-want +got):\n%s", diff)
	}

	deleted := parse(t, "installation", `{"action": "deleted", "installation": {"id": 1, "account": {"login": "acme"}}}`)
	for range 2 {
		res, err := sync.Sync(ctx, deleted)
		if err != nil {
			t.Fatalf("Sync(deleted) = %v", err)
		}
		if res.Outcome != CustomerDeleted || res.Message != "Deleted customer acme" {
			t.Errorf("Sync(deleted) = %+v", res)
		}
	}
	if _, err := s.GetCustomer(ctx, "acme"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCustomer() after uninstall = %v", err)
	}
}

func TestAddedForUnknownCustomer(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := New(s).Sync(ctx, parse(t, "installation_repositories", `{"action": "added",
		"installation": {"id": 1, "account": {"login": "globex"}},
		"repositories_added": [{"name": "rockets"}]}`))
	if err != nil {
		t.Fatalf("Sync() = %v", err)
	}
	if diff := cmp.Diff([]string{"rockets"}, res.Created); diff != "" {
		t.Errorf("Created (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rockets"}, projectNames(t, s, "globex")); diff != "" {
		t.Errorf("projects (-want +got):\n%s", diff)
	}
}

func TestDuplicateInstallIsUpstreamError(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ev := parse(t, "installation", `{"action": "created", "installation": {"id": 1, "account": {"login": "acme"}}}`)

	if _, err := New(s).Sync(ctx, ev); err != nil {
		t.Fatal(err)
	}
	_, err := New(s).Sync(ctx, ev)
	if !apperr.Is(err, apperr.Upstream) {
		t.Fatalf("Sync() = %v, want an Upstream error", err)
	}
	if got := apperr.MessageOf(err, ""); got != "Could not add customer acme" {
		t.Errorf("MessageOf() = %q", got)
	}
}

// failingStore fails CreateProjects and has no transactions.
type failingStore struct {
	store.Store
}

func (failingStore) CreateProjects(context.Context, string, []string) error {
	return errors.New("disk full")
}

func TestSyncProjectsFailure(t *testing.T) {
	ctx := context.Background()
	s := failingStore{Store: memstore.New()}

	_, err := New(s).Sync(ctx, parse(t, "installation_repositories", `{"action": "added",
		"installation": {"id": 1, "account": {"login": "acme"}},
		"repositories_added": [{"name": "widgets"}]}`))
	if !apperr.Is(err, apperr.Upstream) {
		t.Fatalf("Sync() = %v, want an Upstream error", err)
	}
	if got := apperr.MessageOf(err, ""); got != "Could not update repos for acme" {
		t.Errorf("MessageOf() = %q", got)
	}
}

func TestNewRepos(t *testing.T) {
	existing := []store.Project{{Name: "widgets"}, {Name: "gadgets"}}
	got := NewRepos(repos("widgets", "gizmos", "rockets", "gizmos"), existing)
	if diff := cmp.Diff([]string{"gizmos", "rockets"}, got); diff != "" {
		t.Errorf("NewRepos() (-want +got):\n%s", diff)
	}
	if got := NewRepos(nil, existing); len(got) != 0 {
		t.Errorf("NewRepos(nil) = %v", got)
	}
}

func TestSyncIsolatesCustomers(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	sync := New(s)

	for _, body := range []string{
		`{"action": "created", "installation": {"id": 2, "account": {"login": "globex"}}, "repositories": [{"name": "a"}]}`,
		`{"action": "created", "installation": {"id": 1, "account": {"login": "acme"}}}`,
	} {
		if _, err := sync.Sync(ctx, parse(t, "installation", body)); err != nil {
			t.Fatal(err)
		}
	}
	for _, body := range []string{
		`{"action": "added", "installation": {"id": 1, "account": {"login": "acme"}}, "repositories_added": [{"name": "a"}, {"name": "b"}]}`,
		`{"action": "removed", "installation": {"id": 1, "account": {"login": "acme"}}, "repositories_removed": [{"name": "a"}]}`,
	} {
		if _, err := sync.Sync(ctx, parse(t, "installation_repositories", body)); err != nil {
			t.Fatal(err)
		}
	}

	if diff := cmp.Diff([]string{"b"}, projectNames(t, s, "acme")); diff != "" {
		t.Errorf("acme projects (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, projectNames(t, s, "globex")); diff != "" {
		t.Errorf("globex projects (-want +got):\n%s", diff)
	}
}
