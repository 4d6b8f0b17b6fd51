/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package codesearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
)

type fixedEmbedder []float32

func (f fixedEmbedder) Embed(context.Context, string) ([]float32, error) { return f, nil }

func TestFormat(t *testing.T) {
	got, err := Format(nil)
	if err != nil || got != NoResults {
		t.Errorf("Format(nil) = %q, %v", got, err)
	}

	got, err = Format([]Document{{Source: "a.go", Text: "package a"}, {Source: "b.go", Text: "package b"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"source":"a.go","text":"package a"}` + "\n\n" + `{"source":"b.go","text":"package b"}`
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestWeaviateSearch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/graphql" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		json.Unmarshal(body, &req)
		query = req.Query
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"Get":{"CodeSearch":[{"source":"main.go","text":"func main() {}"}]}}}`))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	s, err := NewWeaviate(weaviate.Config{Scheme: u.Scheme, Host: u.Host}, fixedEmbedder{0.1, 0.2}, "cust-1")
	if err != nil {
		t.Fatalf("NewWeaviate() = %v", err)
	}

	got, err := s.Search(context.Background(), "entry point", "widgets", 0)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if diff := cmp.Diff([]Document{{Source: "main.go", Text: "func main() {}"}}, got); diff != "" {
		t.Errorf("Search() (-want +got):\n%s", diff)
	}
	for _, want := range []string{"CodeSearch", "cust-1", "widgets", "nearVector", "limit"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
}

func TestWeaviateSearchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"Get":{"CodeSearch":[]}}}`))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	s, err := NewWeaviate(weaviate.Config{Scheme: u.Scheme, Host: u.Host}, fixedEmbedder{1}, "cust-1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Search(context.Background(), "anything", "widgets", 5)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() = %v, want none", got)
	}
}
