/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry retries model API calls that fail with rate limit or
// transient server errors.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config controls backoff between attempts.
type Config struct {
	// MaxRetries is the number of attempts after the first; 0 disables retry.
	MaxRetries int
	// BaseBackoff doubles after every failed attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the doubled backoff.
	MaxBackoff time.Duration
	// MaxJitter bounds the random delay added to each backoff.
	MaxJitter time.Duration
}

// Validate rejects negative settings.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0, c.MaxBackoff < 0, c.MaxJitter < 0:
		return errors.New("backoff durations cannot be negative")
	}
	return nil
}

// Default suits provider rate limits, which take seconds to clear.
func Default() Config {
	return Config{
		MaxRetries:  5,
		BaseBackoff: time.Second,
		MaxBackoff:  time.Minute,
		MaxJitter:   500 * time.Millisecond,
	}
}

// StatusCodes reports whether an HTTP status is worth retrying. The
// executors use it with their provider's error type.
func StatusCodes(codes ...int) func(int) bool {
	return func(code int) bool { return slices.Contains(codes, code) }
}

func (c Config) backoff(attempt int) time.Duration {
	d := min(c.BaseBackoff<<attempt, c.MaxBackoff)
	if c.MaxJitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter))); err == nil {
			d += time.Duration(n.Int64())
		}
	}
	return d
}

// Value calls fn until it succeeds, fails with an error retryable rejects,
// or the retries run out.
func Value[T any](ctx context.Context, cfg Config, op string, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 0; ; attempt++ {
		out, err = fn()
		if err == nil || !retryable(err) {
			return out, err
		}
		if attempt >= cfg.MaxRetries {
			return out, fmt.Errorf("%s failed after %d retries: %w", op, cfg.MaxRetries, err)
		}

		wait := cfg.backoff(attempt)
		clog.FromContext(ctx).With("op", op, "attempt", attempt+1, "backoff", wait, "error", err).
			Warn("Transient model API error, backing off")

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Do is Value for operations without a result.
func Do(ctx context.Context, cfg Config, op string, retryable func(error) bool, fn func() error) error {
	_, err := Value(ctx, cfg, op, retryable, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
