/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records model usage for agent executors as OpenTelemetry
// instruments. Instruments that fail to register are replaced with no-ops.
package metrics

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is shared by every executor; the model is a dimension.
const MeterName = "chainguard.dev/maige/agents"

// AttributeEnricher adds caller context (customer, repository) to the base
// attributes of every recorded point.
type AttributeEnricher func(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue

// GenAI holds the token, tool call and step instruments.
type GenAI struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	toolCalls        metric.Int64Counter
	toolErrors       metric.Int64Counter
	stepDuration     metric.Float64Histogram
	enrich           AttributeEnricher
}

// NewGenAI registers the instruments on the named meter.
func NewGenAI(ctx context.Context, meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))
	log := clog.FromContext(ctx).With("meter", meterName)

	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			log.With("error", err).Warnf("Failed to create counter %s, recording disabled", name)
			return noop.Int64Counter{}
		}
		return c
	}

	steps, err := meter.Float64Histogram("genai.step.duration",
		metric.WithDescription("Latency of one model round trip"),
		metric.WithUnit("s"))
	if err != nil {
		log.With("error", err).Warn("Failed to create step histogram, recording disabled")
		steps = noop.Float64Histogram{}
	}

	return &GenAI{
		promptTokens:     counter("genai.token.prompt", "Prompt tokens sent to the model", "{tokens}"),
		completionTokens: counter("genai.token.completion", "Completion tokens returned by the model", "{tokens}"),
		toolCalls:        counter("genai.tool.calls", "Tool calls requested by the model", "{calls}"),
		toolErrors:       counter("genai.tool.errors", "Tool calls that returned an error", "{calls}"),
		stepDuration:     steps,
	}
}

// SetAttributeEnricher installs e for subsequent recordings.
func (m *GenAI) SetAttributeEnricher(e AttributeEnricher) {
	m.enrich = e
}

func (m *GenAI) attrs(ctx context.Context, base ...attribute.KeyValue) metric.MeasurementOption {
	if m.enrich != nil {
		base = m.enrich(ctx, base)
	}
	return metric.WithAttributes(base...)
}

// RecordTokens records the usage reported for one model response.
func (m *GenAI) RecordTokens(ctx context.Context, model string, prompt, completion int64) {
	opt := m.attrs(ctx, attribute.String("model", model))
	m.promptTokens.Add(ctx, prompt, opt)
	m.completionTokens.Add(ctx, completion, opt)
}

// RecordToolCall counts one tool invocation, and its failure if err is set.
func (m *GenAI) RecordToolCall(ctx context.Context, model, tool string, err error) {
	opt := m.attrs(ctx, attribute.String("model", model), attribute.String("tool", tool))
	m.toolCalls.Add(ctx, 1, opt)
	if err != nil {
		m.toolErrors.Add(ctx, 1, opt)
	}
}

// RecordStep records the latency of one model round trip.
func (m *GenAI) RecordStep(ctx context.Context, model string, d time.Duration) {
	m.stepDuration.Record(ctx, d.Seconds(), m.attrs(ctx, attribute.String("model", model)))
}
