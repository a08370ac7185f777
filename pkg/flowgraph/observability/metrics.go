package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every instrument below.
const MeterName = "flowgraph"

// MetricsRecorder records engine and completion metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun records a graph run completion.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordCheckpoint records a checkpoint save operation.
	RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64)

	// RecordCompletion records one LLM call. Token counts are ignored when err is set.
	RecordCompletion(ctx context.Context, model string, inputTokens, outputTokens int, duration time.Duration, err error)
}

type otelMetrics struct {
	nodeExecutions    metric.Int64Counter
	nodeLatency       metric.Float64Histogram
	nodeErrors        metric.Int64Counter
	graphRuns         metric.Int64Counter
	graphLatency      metric.Float64Histogram
	checkpointSize    metric.Int64Histogram
	completions       metric.Int64Counter
	completionErrors  metric.Int64Counter
	completionLatency metric.Float64Histogram
	tokens            metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// NewMetricsRecorder returns a recorder on the global OTel meter provider,
// falling back to NoopMetrics if instruments cannot be created.
// Set the provider (otel.SetMeterProvider) before the first call.
func NewMetricsRecorder() MetricsRecorder {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter(MeterName))
	})
	if defaultMetricsErr != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", defaultMetricsErr.Error()))
		return NoopMetrics{}
	}
	return defaultMetrics
}

// NewMetricsRecorderFromMeter builds a recorder on a specific meter.
func NewMetricsRecorderFromMeter(meter metric.Meter) (MetricsRecorder, error) {
	return newOtelMetrics(meter)
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	var (
		m   otelMetrics
		err error
	)
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	latency := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
		return h
	}

	m.nodeExecutions = counter("flowgraph.node.executions", "Number of node executions")
	m.nodeLatency = latency("flowgraph.node.latency_ms", "Node execution latency in milliseconds")
	m.nodeErrors = counter("flowgraph.node.errors", "Number of node execution errors")
	m.graphRuns = counter("flowgraph.graph.runs", "Number of graph runs")
	m.graphLatency = latency("flowgraph.graph.latency_ms", "Graph run latency in milliseconds")
	m.completions = counter("flowgraph.llm.completions", "Number of LLM completion calls")
	m.completionErrors = counter("flowgraph.llm.errors", "Number of failed LLM completion calls")
	m.completionLatency = latency("flowgraph.llm.latency_ms", "LLM completion latency in milliseconds")
	m.tokens = counter("flowgraph.llm.tokens", "Tokens consumed, by direction")
	if err != nil {
		return nil, err
	}

	m.checkpointSize, err = meter.Int64Histogram("flowgraph.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))

	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

func (m *otelMetrics) RecordCompletion(ctx context.Context, model string, inputTokens, outputTokens int, duration time.Duration, err error) {
	modelAttr := attribute.String("model", model)
	attrs := metric.WithAttributes(modelAttr)

	m.completions.Add(ctx, 1, attrs)
	m.completionLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.completionErrors.Add(ctx, 1, attrs)
		return
	}
	m.tokens.Add(ctx, int64(inputTokens),
		metric.WithAttributes(modelAttr, attribute.String("direction", "input")))
	m.tokens.Add(ctx, int64(outputTokens),
		metric.WithAttributes(modelAttr, attribute.String("direction", "output")))
}
