/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package dedupe remembers webhook delivery ids so a redelivered event is
// processed once.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a delivery id is remembered. GitHub redeliveries
// are manual and rarely older than a day.
const DefaultTTL = 24 * time.Hour

// Deduper reserves delivery ids.
type Deduper interface {
	// Reserve records id and reports whether this is its first reservation.
	Reserve(ctx context.Context, id string) (bool, error)
	// Release forgets id so a later redelivery is processed again.
	Release(ctx context.Context, id string) error
}

// Redis stores reservations as keys with an expiry.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Deduper = (*Redis)(nil)

// NewRedis connects to the redis server at rawURL
// (redis://[:password@]host:port/db).
func NewRedis(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &Redis{
		client: redis.NewClient(opts),
		prefix: "maige:delivery:",
		ttl:    DefaultTTL,
	}, nil
}

func (r *Redis) Reserve(ctx context.Context, id string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+id, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserving delivery %s: %w", id, err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("releasing delivery %s: %w", id, err)
	}
	return nil
}

// Close closes the redis connection pool.
func (r *Redis) Close() error { return r.client.Close() }

// Memory keeps reservations in process. It is used when no redis server is
// configured, and only dedupes within one replica.
type Memory struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

var _ Deduper = (*Memory)(nil)

// NewMemory returns an empty in-process Deduper.
func NewMemory() *Memory {
	return &Memory{
		seen: make(map[string]time.Time),
		ttl:  DefaultTTL,
		now:  time.Now,
	}
}

func (m *Memory) Reserve(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.seen {
		if now.After(exp) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = now.Add(m.ttl)
	return true, nil
}

func (m *Memory) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
	return nil
}
