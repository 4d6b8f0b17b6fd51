/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext identifies the task an agent run belongs to.
type ExecutionContext struct {
	TaskID     string `json:"task_id,omitempty"`
	Customer   string `json:"customer,omitempty"`
	Repository string `json:"repository,omitempty"`
}

// SpanAttributes returns the non-empty fields as span attributes.
func (e ExecutionContext) SpanAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if e.TaskID != "" {
		attrs = append(attrs, attribute.String("task_id", e.TaskID))
	}
	if e.Customer != "" {
		attrs = append(attrs, attribute.String("customer", e.Customer))
	}
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	return attrs
}

// EnrichAttributes adds the bounded fields to metric attributes. The task id
// is left out: every run would create a new series.
func (e ExecutionContext) EnrichAttributes(base []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(base), len(base)+2)
	copy(attrs, base)
	if e.Customer != "" {
		attrs = append(attrs, attribute.String("customer", e.Customer))
	}
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	return attrs
}

type executionContextKey struct{}

// WithExecutionContext attaches e to ctx.
func WithExecutionContext(ctx context.Context, e ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey{}, e)
}

// GetExecutionContext returns the ExecutionContext attached to ctx, or the
// zero value.
func GetExecutionContext(ctx context.Context) ExecutionContext {
	e, _ := ctx.Value(executionContextKey{}).(ExecutionContext)
	return e
}
