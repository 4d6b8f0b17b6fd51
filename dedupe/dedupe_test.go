/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func exercise(t *testing.T, d Deduper) {
	t.Helper()
	ctx := context.Background()

	if ok, err := d.Reserve(ctx, "a"); err != nil || !ok {
		t.Fatalf("first Reserve(a) = %v, %v; want true", ok, err)
	}
	if ok, err := d.Reserve(ctx, "a"); err != nil || ok {
		t.Fatalf("second Reserve(a) = %v, %v; want false", ok, err)
	}
	if ok, err := d.Reserve(ctx, "b"); err != nil || !ok {
		t.Fatalf("Reserve(b) = %v, %v; want true", ok, err)
	}
	if err := d.Release(ctx, "a"); err != nil {
		t.Fatalf("Release(a) = %v", err)
	}
	if ok, err := d.Reserve(ctx, "a"); err != nil || !ok {
		t.Fatalf("Reserve(a) after release = %v, %v; want true", ok, err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if ok, _ := m.Reserve(context.Background(), "a"); !ok {
		t.Fatal("first Reserve(a) = false")
	}
	now = now.Add(DefaultTTL + time.Minute)
	if ok, _ := m.Reserve(context.Background(), "a"); !ok {
		t.Error("Reserve(a) after expiry = false, want true")
	}
}

func TestRedis(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	r, err := NewRedis("redis://" + server.Addr() + "/0")
	if err != nil {
		t.Fatalf("NewRedis() = %v", err)
	}
	t.Cleanup(func() { r.Close() })

	exercise(t, r)

	if ttl := server.TTL("maige:delivery:b"); ttl != DefaultTTL {
		t.Errorf("TTL = %v, want %v", ttl, DefaultTTL)
	}
}

func TestNewRedisBadURL(t *testing.T) {
	if _, err := NewRedis("http://nope"); err == nil {
		t.Error("NewRedis() = nil error for non-redis url")
	}
}
