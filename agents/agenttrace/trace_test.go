/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
)

type recorder[T any] struct {
	mu     sync.Mutex
	traces []*Trace[T]
}

func (r *recorder[T]) NewTrace(ctx context.Context, prompt string) *Trace[T] {
	return newTrace[T](ctx, r, prompt)
}

func (r *recorder[T]) RecordTrace(t *Trace[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, t)
}

func TestStartTraceUsesContextTracer(t *testing.T) {
	rec := &recorder[string]{}
	ctx := WithTracer[string](context.Background(), rec)
	ctx = WithExecutionContext(ctx, ExecutionContext{TaskID: "t-1", Customer: "acme", Repository: "widgets"})

	trace := StartTrace[string](ctx, "fix the build")
	tc := trace.StartToolCall("call-1", "shell", map[string]any{"cmd": "ls"})
	tc.Complete("README.md", nil)
	trace.BadToolCall("call-2", "teleport", nil, errors.New("unknown tool"))
	trace.RecordStep("gpt-4", 100, 20)
	trace.RecordStep("gpt-4", 150, 30)

	if len(rec.traces) != 0 {
		t.Fatalf("recorded %d traces before completion", len(rec.traces))
	}
	trace.Complete("done", nil)

	if len(rec.traces) != 1 || rec.traces[0] != trace {
		t.Fatalf("recorded = %v, want the trace", rec.traces)
	}
	if trace.ExecContext.TaskID != "t-1" {
		t.Errorf("TaskID = %q", trace.ExecContext.TaskID)
	}
	if len(trace.ToolCalls) != 2 || trace.ToolCalls[1].Error == nil {
		t.Errorf("tool calls = %+v", trace.ToolCalls)
	}
	if trace.Steps != 2 || trace.InputTokens != 250 || trace.OutputTokens != 50 {
		t.Errorf("steps = %d, tokens = %d+%d", trace.Steps, trace.InputTokens, trace.OutputTokens)
	}
}

func TestTracersByType(t *testing.T) {
	strs, ints := &recorder[string]{}, &recorder[int]{}
	ctx := WithTracer[string](context.Background(), strs)
	ctx = WithTracer[int](ctx, ints)

	StartTrace[string](ctx, "a").Complete("x", nil)
	StartTrace[int](ctx, "b").Complete(42, nil)

	if len(strs.traces) != 1 || strs.traces[0].Result != "x" {
		t.Errorf("string traces = %v", strs.traces)
	}
	if len(ints.traces) != 1 || ints.traces[0].Result != 42 {
		t.Errorf("int traces = %v", ints.traces)
	}
}

func TestDefaultTracer(t *testing.T) {
	trace := StartTrace[string](context.Background(), "prompt")
	if trace == nil {
		t.Fatal("StartTrace() = nil")
	}
	trace.Complete("", errors.New("boom"))
}

func TestByCodeRunsCallbacksInParallel(t *testing.T) {
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	cb := func(*Trace[string]) {
		started <- struct{}{}
		<-release
	}
	tr := ByCode[string](cb, nil, cb, cb)
	trace := tr.NewTrace(context.Background(), "p")

	done := make(chan struct{})
	go func() {
		trace.Complete("r", nil)
		close(done)
	}()

	timeout := time.After(time.Second)
	for range 3 {
		select {
		case <-started:
		case <-timeout:
			t.Fatal("callbacks did not start in parallel")
		}
	}
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Complete did not return")
	}
}

func TestEnrichAttributes(t *testing.T) {
	e := ExecutionContext{TaskID: "t-1", Customer: "acme", Repository: "widgets"}
	got := e.EnrichAttributes([]attribute.KeyValue{attribute.String("model", "gpt-4")})
	want := []attribute.KeyValue{
		attribute.String("model", "gpt-4"),
		attribute.String("customer", "acme"),
		attribute.String("repository", "widgets"),
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b attribute.KeyValue) bool {
		return a.Key == b.Key && a.Value.Emit() == b.Value.Emit()
	})); diff != "" {
		t.Errorf("EnrichAttributes() (-want +got):\n%s", diff)
	}
}

func TestClip(t *testing.T) {
	if got := clip("abcdef", 5); got != "ab..." {
		t.Errorf("clip() = %q", got)
	}
	if got := clip("abc", 5); got != "abc" {
		t.Errorf("clip() = %q", got)
	}
}
