/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSerpAPISearch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{{
		name: "answer box",
		body: `{"answer_box":{"type":"weather_result","location":"San Francisco, CA"},"organic_results":[{"snippet":"ignored"}]}`,
		want: `{"type":"weather_result","location":"San Francisco, CA"}`,
	}, {
		name: "knowledge graph",
		body: `{"knowledge_graph":{"description":"A programming language."}}`,
		want: "A programming language.",
	}, {
		name: "organic",
		body: `{"organic_results":[{"title":"Go","snippet":"Build simple, secure, scalable systems."}]}`,
		want: "Build simple, secure, scalable systems.",
	}, {
		name: "nothing",
		body: `{}`,
		want: NoResult,
	}, {
		name:    "api error",
		status:  http.StatusUnauthorized,
		body:    `{"error":"Invalid API key."}`,
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("q"); got != "weather in san francisco" {
					t.Errorf("q = %q", got)
				}
				if got := r.URL.Query().Get("api_key"); got != "key" {
					t.Errorf("api_key = %q", got)
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewSerpAPI("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client())).
				Search(context.Background(), "weather in san francisco")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Search() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.name == "answer box" {
				var a, b any
				json.Unmarshal([]byte(got), &a)
				json.Unmarshal([]byte(tt.want), &b)
				if diff := cmp.Diff(b, a); diff != "" {
					t.Errorf("Search() answer box (-want +got):\n%s", diff)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Search() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerpAPISearchHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewSerpAPI("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client())).Search(ctx, "stalled")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() = %v, want context.DeadlineExceeded", err)
	}
}
