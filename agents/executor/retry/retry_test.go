/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chainguard.dev/maige/agents/executor/retry"
)

func fast() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func always(error) bool { return true }
func never(error) bool  { return false }

func TestValue(t *testing.T) {
	errBusy := errors.New("529 overloaded")

	tests := []struct {
		name         string
		failures     int
		retryable    func(error) bool
		wantAttempts int
		wantErr      bool
	}{
		{name: "first try", failures: 0, retryable: always, wantAttempts: 1},
		{name: "recovers", failures: 2, retryable: always, wantAttempts: 3},
		{name: "exhausted", failures: 10, retryable: always, wantAttempts: 4, wantErr: true},
		{name: "permanent", failures: 10, retryable: never, wantAttempts: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			got, err := retry.Value(context.Background(), fast(), "complete", tt.retryable, func() (string, error) {
				attempts++
				if attempts <= tt.failures {
					return "", errBusy
				}
				return "ok", nil
			})
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if tt.wantErr {
				if !errors.Is(err, errBusy) {
					t.Errorf("err = %v, want wrapped %v", err, errBusy)
				}
				return
			}
			if err != nil || got != "ok" {
				t.Errorf("Value() = %q, %v", got, err)
			}
		})
	}
}

func TestValueExhaustedMessage(t *testing.T) {
	err := retry.Do(context.Background(), fast(), "complete", always, func() error {
		return errors.New("503")
	})
	if err == nil || !strings.HasPrefix(err.Error(), "complete failed after 3 retries") {
		t.Errorf("Do() = %v", err)
	}
}

func TestValueCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fast()
	cfg.BaseBackoff, cfg.MaxBackoff = time.Hour, time.Hour

	err := retry.Do(ctx, cfg, "complete", always, func() error {
		cancel()
		return errors.New("429")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	if err := retry.Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
	if err := (retry.Config{MaxRetries: -1}).Validate(); err == nil {
		t.Error("negative retries accepted")
	}
	if err := (retry.Config{MaxJitter: -time.Second}).Validate(); err == nil {
		t.Error("negative jitter accepted")
	}
}

func TestStatusCodes(t *testing.T) {
	ok := retry.StatusCodes(429, 503)
	if !ok(429) || !ok(503) || ok(400) {
		t.Error("StatusCodes matched the wrong codes")
	}
}
