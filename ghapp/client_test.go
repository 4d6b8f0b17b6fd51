/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghapp

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeGitHub answers GraphQL requests with canned data keyed by the first
// operation name found in the query.
type fakeGitHub struct {
	t         *testing.T
	mu        sync.Mutex
	requests  []gqlRequest
	auth      []string
	responses map[string]string
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/app/installations/42/access_tokens" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "ghs_installation", "expires_at": "2099-01-01T00:00:00Z"}`))
		return
	}
	if r.URL.Path != "/graphql" {
		f.t.Errorf("unexpected path %s", r.URL.Path)
		http.NotFound(w, r)
		return
	}
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Fatalf("decoding request: %v", err)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	for op, resp := range f.responses {
		if strings.Contains(req.Query, op) {
			w.Write([]byte(resp))
			return
		}
	}
	f.t.Errorf("no response for query %s", req.Query)
	w.Write([]byte(`{"errors": [{"message": "unexpected query"}]}`))
}

func newFake(t *testing.T, responses map[string]string) (*fakeGitHub, *httptest.Server) {
	f := &fakeGitHub{t: t, responses: responses}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestListLabels(t *testing.T) {
	f, srv := newFake(t, map[string]string{
		"labels(first: 100)": `{"data": {"repository": {"labels": {"nodes": [
			{"id": "LA_1", "name": "bug"},
			{"id": "LA_2", "name": "enhancement"}
		]}}}}`,
	})
	c, err := NewTokenClient(context.Background(), "ghp_test", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.ListLabels(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("ListLabels() = %v", err)
	}
	want := []Label{{ID: "LA_1", Name: "bug"}, {ID: "LA_2", Name: "enhancement"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListLabels() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"owner": "acme", "name": "widgets"}, f.requests[0].Variables); diff != "" {
		t.Errorf("variables (-want +got):\n%s", diff)
	}
	if f.auth[0] != "Bearer ghp_test" {
		t.Errorf("Authorization = %q", f.auth[0])
	}
}

func TestListLabelsMissingRepository(t *testing.T) {
	_, srv := newFake(t, map[string]string{
		"labels(first: 100)": `{"data": {"repository": null}}`,
	})
	c, err := NewTokenClient(context.Background(), "ghp_test", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListLabels(context.Background(), "acme", "gone"); err == nil {
		t.Error("ListLabels() of a missing repository succeeded")
	}
}

func TestMutations(t *testing.T) {
	f, srv := newFake(t, map[string]string{
		"addLabelsToLabelable": `{"data": {"addLabelsToLabelable": {"clientMutationId": null}}}`,
		"createIssue":          `{"data": {"createIssue": {"issue": {"id": "I_new"}}}}`,
	})
	c, err := NewTokenClient(context.Background(), "ghp_test", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.AddLabels(ctx, "I_1", "LA_1", "LA_2"); err != nil {
		t.Fatalf("AddLabels() = %v", err)
	}
	wantInput := map[string]any{"labelableId": "I_1", "labelIds": []any{"LA_1", "LA_2"}}
	if diff := cmp.Diff(wantInput, f.requests[0].Variables["input"]); diff != "" {
		t.Errorf("addLabels input (-want +got):\n%s", diff)
	}
	if err := c.AddLabels(ctx, "I_1"); err == nil {
		t.Error("AddLabels() without labels succeeded")
	}

	id, err := c.CreateIssue(ctx, "R_1", "Maige Usage", "Please pay.")
	if err != nil {
		t.Fatalf("CreateIssue() = %v", err)
	}
	if id != "I_new" {
		t.Errorf("CreateIssue() = %q", id)
	}
	wantInput = map[string]any{"repositoryId": "R_1", "title": "Maige Usage", "body": "Please pay."}
	if diff := cmp.Diff(wantInput, f.requests[1].Variables["input"]); diff != "" {
		t.Errorf("createIssue input (-want +got):\n%s", diff)
	}
}

func TestAppsInstallation(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	f, srv := newFake(t, map[string]string{
		"createIssue": `{"data": {"createIssue": {"issue": {"id": "I_new"}}}}`,
	})
	apps := NewApps(1234, pemKey, nil, WithBaseURL(srv.URL))

	c, err := apps.Installation(context.Background(), 42)
	if err != nil {
		t.Fatalf("Installation() = %v", err)
	}
	if _, err := c.CreateIssue(context.Background(), "R_1", "t", "b"); err != nil {
		t.Fatalf("CreateIssue() = %v", err)
	}
	if f.auth[0] != "token ghs_installation" {
		t.Errorf("Authorization = %q, want the installation token", f.auth[0])
	}
	if got := c.REST().BaseURL.String(); got != srv.URL+"/" {
		t.Errorf("REST base URL = %s", got)
	}
}

func TestAppsBadKey(t *testing.T) {
	if _, err := NewApps(1234, []byte("not a key"), nil).Installation(context.Background(), 42); err == nil {
		t.Error("Installation() with a bad key succeeded")
	}
}
