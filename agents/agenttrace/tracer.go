/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"sync"

	"github.com/chainguard-dev/clog"
)

// Tracer creates traces and receives them when they complete.
type Tracer[T any] interface {
	NewTrace(ctx context.Context, prompt string) *Trace[T]
	RecordTrace(trace *Trace[T])
}

type byCode[T any] struct {
	callbacks []func(*Trace[T])
}

// ByCode returns a Tracer that runs each callback, in parallel, when a trace
// completes. RecordTrace returns once all callbacks have.
func ByCode[T any](callbacks ...func(*Trace[T])) Tracer[T] {
	return &byCode[T]{callbacks: callbacks}
}

func (b *byCode[T]) NewTrace(ctx context.Context, prompt string) *Trace[T] {
	return newTrace[T](ctx, b, prompt)
}

func (b *byCode[T]) RecordTrace(trace *Trace[T]) {
	var wg sync.WaitGroup
	for _, cb := range b.callbacks {
		if cb == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb(trace)
		}()
	}
	wg.Wait()
}

// NewLogTracer returns a Tracer that logs a summary of each completed trace.
func NewLogTracer[T any](ctx context.Context) Tracer[T] {
	log := clog.FromContext(ctx)
	return ByCode[T](func(trace *Trace[T]) {
		l := log.With(
			"trace_id", trace.ID,
			"duration_ms", trace.Duration().Milliseconds(),
			"steps", trace.Steps,
			"tool_calls", len(trace.ToolCalls),
		)
		if trace.Error != nil {
			l.With("error", trace.Error).Warn("Agent run failed", "trace", trace.String())
			return
		}
		l.Info("Agent run completed", "trace", trace.String())
	})
}

// tracerKey is generic so tracers for different result types coexist in one
// context.
type tracerKey[T any] struct{}

// WithTracer attaches t to ctx for StartTrace[T].
func WithTracer[T any](ctx context.Context, t Tracer[T]) context.Context {
	return context.WithValue(ctx, tracerKey[T]{}, t)
}

// TracerFromContext returns the Tracer[T] attached to ctx, or a log tracer.
func TracerFromContext[T any](ctx context.Context) Tracer[T] {
	if t, ok := ctx.Value(tracerKey[T]{}).(Tracer[T]); ok {
		return t
	}
	return NewLogTracer[T](ctx)
}

// StartTrace starts a trace with the Tracer in ctx.
func StartTrace[T any](ctx context.Context, prompt string) *Trace[T] {
	return TracerFromContext[T](ctx).NewTrace(ctx, prompt)
}
