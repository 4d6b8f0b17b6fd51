/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package websearch answers free-text queries with a web search engine.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the SerpAPI search endpoint.
const DefaultBaseURL = "https://serpapi.com/search"

// NoResult is returned when the engine had nothing useful.
const NoResult = "No good search result found"

// Searcher answers a query with text a model can read.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Searcher = (*SerpAPI)(nil)

// Option configures SerpAPI.
type Option func(*SerpAPI)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(s *SerpAPI) { s.baseURL = u }
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SerpAPI) { s.client = c }
}

// NewSerpAPI returns a SerpAPI searcher.
func NewSerpAPI(apiKey string, opts ...Option) *SerpAPI {
	s := &SerpAPI{apiKey: apiKey, baseURL: DefaultBaseURL, client: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type serpResponse struct {
	Error          string          `json:"error"`
	AnswerBox      json.RawMessage `json:"answer_box"`
	KnowledgeGraph *struct {
		Description string `json:"description"`
	} `json:"knowledge_graph"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search returns, in order of preference, the answer box as JSON, the
// knowledge graph description, or the first organic snippet.
func (s *SerpAPI) Search(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("searching: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	var sr serpResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if sr.Error != "" {
		return "", fmt.Errorf("serpapi: %s", sr.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serpapi: status %d", resp.StatusCode)
	}

	switch {
	case len(sr.AnswerBox) > 0 && string(sr.AnswerBox) != "null":
		return string(sr.AnswerBox), nil
	case sr.KnowledgeGraph != nil && sr.KnowledgeGraph.Description != "":
		return sr.KnowledgeGraph.Description, nil
	case len(sr.OrganicResults) > 0 && sr.OrganicResults[0].Snippet != "":
		return sr.OrganicResults[0].Snippet, nil
	}
	return NoResult, nil
}
