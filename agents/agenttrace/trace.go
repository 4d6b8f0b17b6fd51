/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "chainguard.dev/maige/agents/agenttrace"

func tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName, oteltrace.WithInstrumentationVersion("1.0.0"))
}

// Reasoning is model reasoning text surfaced during a run.
type Reasoning struct {
	Thinking string `json:"thinking"`
}

// ToolCall is one tool invocation within a trace.
type ToolCall[T any] struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Params    map[string]any `json:"params"`
	Result    any            `json:"result"`
	Error     error          `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`

	trace *Trace[T]
	span  oteltrace.Span
	mu    sync.Mutex
}

// Trace is one agent run.
type Trace[T any] struct {
	ID          string           `json:"id"`
	InputPrompt string           `json:"input_prompt"`
	ExecContext ExecutionContext `json:"exec_context,omitempty"`
	ToolCalls   []*ToolCall[T]   `json:"tool_calls"`
	Reasoning   []Reasoning      `json:"reasoning,omitempty"`
	Result      T                `json:"result"`
	Error       error            `json:"error,omitempty"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	// Steps counts model round trips.
	Steps        int   `json:"steps"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	tracer Tracer[T]
	ctx    context.Context
	span   oteltrace.Span
	mu     sync.Mutex
}

func newTrace[T any](ctx context.Context, t Tracer[T], prompt string) *Trace[T] {
	exec := GetExecutionContext(ctx)
	attrs := append(exec.SpanAttributes(), attribute.Int("agent.prompt_length", len(prompt)))
	ctx, span := tracer().Start(ctx, "agent.execution", oteltrace.WithAttributes(attrs...))

	return &Trace[T]{
		ID:          uuid.NewString(),
		InputPrompt: prompt,
		ExecContext: exec,
		StartTime:   time.Now(),
		tracer:      t,
		ctx:         ctx,
		span:        span,
	}
}

// Context returns the context carrying the trace's span.
func (t *Trace[T]) Context() context.Context { return t.ctx }

// StartToolCall opens a tool call span. Complete adds it to the trace.
func (t *Trace[T]) StartToolCall(id, name string, params map[string]any) *ToolCall[T] {
	_, span := tracer().Start(t.ctx, "agent.tool_call", oteltrace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.id", id),
	))
	return &ToolCall[T]{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: time.Now(),
		trace:     t,
		span:      span,
	}
}

// BadToolCall records a call that could not be dispatched, e.g. an unknown
// tool or missing argument.
func (t *Trace[T]) BadToolCall(id, name string, params map[string]any, err error) {
	tc := t.StartToolCall(id, name, params)
	tc.Complete(nil, err)
}

// RecordStep counts one model round trip and its token usage.
func (t *Trace[T]) RecordStep(model string, inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Steps++
	t.InputTokens += inputTokens
	t.OutputTokens += outputTokens
	t.span.SetAttributes(
		attribute.String("model", model),
		attribute.Int("agent.steps", t.Steps),
		attribute.Int64("tokens.input", t.InputTokens),
		attribute.Int64("tokens.output", t.OutputTokens),
	)
}

// AddReasoning appends model reasoning text.
func (t *Trace[T]) AddReasoning(thinking string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Reasoning = append(t.Reasoning, Reasoning{Thinking: thinking})
}

// Complete ends the tool call span and appends the call to its trace.
func (tc *ToolCall[T]) Complete(result any, err error) {
	tc.mu.Lock()
	tc.Result, tc.Error, tc.EndTime = result, err, time.Now()
	tc.mu.Unlock()

	endSpan(tc.span, err)

	tc.trace.mu.Lock()
	defer tc.trace.mu.Unlock()
	tc.trace.ToolCalls = append(tc.trace.ToolCalls, tc)
}

// Duration is how long the call took, or has taken so far.
func (tc *ToolCall[T]) Duration() time.Duration {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return elapsed(tc.StartTime, tc.EndTime)
}

// Complete ends the trace and hands it to its Tracer.
func (t *Trace[T]) Complete(result T, err error) {
	t.mu.Lock()
	t.Result, t.Error, t.EndTime = result, err, time.Now()
	t.mu.Unlock()

	endSpan(t.span, err)
	t.tracer.RecordTrace(t)
}

// Duration is how long the run took, or has taken so far.
func (t *Trace[T]) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return elapsed(t.StartTime, t.EndTime)
}

// String summarizes the trace for logs.
func (t *Trace[T]) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "trace %s (%v, %d steps, %d+%d tokens)\n",
		t.ID, elapsed(t.StartTime, t.EndTime), t.Steps, t.InputTokens, t.OutputTokens)
	for i, tc := range t.ToolCalls {
		fmt.Fprintf(&sb, "  [%d] %s", i+1, tc.Name)
		if tc.Error != nil {
			fmt.Fprintf(&sb, " error: %v", tc.Error)
		} else if tc.Result != nil {
			fmt.Fprintf(&sb, " -> %s", clip(fmt.Sprint(tc.Result), 200))
		}
		sb.WriteByte('\n')
	}
	if t.Error != nil {
		fmt.Fprintf(&sb, "  error: %v\n", t.Error)
	} else {
		fmt.Fprintf(&sb, "  result: %s\n", clip(fmt.Sprint(t.Result), 500))
	}
	return sb.String()
}

func endSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func elapsed(start, end time.Time) time.Duration {
	if end.IsZero() {
		return time.Since(start)
	}
	return end.Sub(start)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
