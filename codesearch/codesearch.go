/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package codesearch queries a customer's indexed repositories by vector
// similarity. Indexing happens elsewhere; this package only reads.
package codesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
)

const (
	// DefaultClass is the Weaviate class holding code chunks.
	DefaultClass = "CodeSearch"
	// DefaultResults is the number of chunks returned per query.
	DefaultResults = 3
	// NoResults is the formatted answer for an empty result set.
	NoResults = "No results found"
)

// Document is one indexed code chunk.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Searcher finds code chunks of one repository similar to a query.
type Searcher interface {
	Search(ctx context.Context, query, repository string, limit int) ([]Document, error)
}

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder embeds with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder uses text-embedding-ada-002, which the index was built
// with.
func NewOpenAIEmbedder(client openai.Client) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: openai.EmbeddingModelTextEmbeddingAda002}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding query: empty response")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Weaviate searches the chunks a customer indexed.
type Weaviate struct {
	client   *weaviate.Client
	embedder Embedder
	class    string
	userID   string
}

var _ Searcher = (*Weaviate)(nil)

// NewWeaviate returns a Searcher scoped to the customer userID.
func NewWeaviate(cfg weaviate.Config, embedder Embedder, userID string) (*Weaviate, error) {
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}
	return &Weaviate{client: client, embedder: embedder, class: DefaultClass, userID: userID}, nil
}

func (w *Weaviate) Search(ctx context.Context, query, repository string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = DefaultResults
	}
	vec, err := w.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().WithPath([]string{"userId"}).WithOperator(filters.Equal).WithValueText(w.userID),
			filters.Where().WithPath([]string{"repository"}).WithOperator(filters.Equal).WithValueText(repository),
		})

	resp, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "source"}, graphql.Field{Name: "text"}).
		WithWhere(where).
		WithNearVector(w.client.GraphQL().NearVectorArgBuilder().WithVector(vec)).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", w.class, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("querying %s: %s", w.class, strings.Join(msgs, "; "))
	}

	raw, err := json.Marshal(resp.Data["Get"])
	if err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	var byClass map[string][]Document
	if err := json.Unmarshal(raw, &byClass); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	docs := byClass[w.class]
	clog.FromContext(ctx).With("repository", repository, "results", len(docs)).Info("Searched code")
	return docs, nil
}

// Format renders docs as JSON objects separated by blank lines.
func Format(docs []Document) (string, error) {
	if len(docs) == 0 {
		return NoResults, nil
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n\n"), nil
}
