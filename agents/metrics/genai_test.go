/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestGenAIRecords(t *testing.T) {
	ctx := context.Background()
	m := NewGenAI(ctx, MeterName)

	var calls int
	m.SetAttributeEnricher(func(_ context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		calls++
		return append(base, attribute.String("customer", "acme"))
	})

	m.RecordTokens(ctx, "gpt-4", 10, 2)
	m.RecordToolCall(ctx, "gpt-4", "shell", nil)
	m.RecordToolCall(ctx, "gpt-4", "shell", errors.New("exit 1"))
	m.RecordStep(ctx, "gpt-4", 150*time.Millisecond)

	if calls != 4 {
		t.Errorf("enricher called %d times, want 4", calls)
	}
}

func TestGenAIWithoutEnricher(t *testing.T) {
	ctx := context.Background()
	m := NewGenAI(ctx, MeterName)
	m.RecordTokens(ctx, "claude-3", 1, 1)
	m.RecordToolCall(ctx, "claude-3", "git", nil)
}
