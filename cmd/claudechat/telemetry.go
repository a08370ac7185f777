package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/randalmurphal/flowchat/pkg/chat"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/observability"
)

// telemetry owns the OTel providers for one process. Metrics are kept in
// memory and logged as a session summary on shutdown; spans are exported
// over OTLP/HTTP.
type telemetry struct {
	logger  *slog.Logger
	reader  *sdkmetric.ManualReader
	meters  *sdkmetric.MeterProvider
	metrics observability.MetricsRecorder
	tracer  *sdktrace.TracerProvider
}

func setupTelemetry(ctx context.Context, s chat.Settings, logger *slog.Logger) (*telemetry, error) {
	t := &telemetry{logger: logger}

	if s.Metrics {
		t.reader = sdkmetric.NewManualReader()
		t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))
		otel.SetMeterProvider(t.meters)

		rec, err := observability.NewMetricsRecorderFromMeter(t.meters.Meter(observability.MeterName))
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		t.metrics = rec
	}

	if s.Tracing.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(s.Tracing.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		res, err := resource.Merge(resource.Default(),
			resource.NewSchemaless(attribute.String("service.name", s.Tracing.ServiceName)))
		if err != nil {
			return nil, fmt.Errorf("build trace resource: %w", err)
		}
		t.tracer = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(t.tracer)
	}
	return t, nil
}

// Metrics returns the completion recorder, or nil when metrics are off.
func (t *telemetry) Metrics() observability.MetricsRecorder { return t.metrics }

// Tracing reports whether spans are exported.
func (t *telemetry) Tracing() bool { return t.tracer != nil }

// Shutdown logs the metrics summary and flushes both providers.
func (t *telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.reader != nil {
		var rm metricdata.ResourceMetrics
		if err := t.reader.Collect(ctx, &rm); err != nil {
			errs = append(errs, fmt.Errorf("collect metrics: %w", err))
		} else {
			logSummary(t.logger, rm)
		}
		errs = append(errs, t.meters.Shutdown(ctx))
	}
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// logSummary logs one line per counter and histogram collected.
func logSummary(logger *slog.Logger, rm metricdata.ResourceMetrics) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				logger.Info("session metric", slog.String("name", m.Name), slog.Int64("total", total))
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				logger.Info("session metric", slog.String("name", m.Name),
					slog.Uint64("count", count), slog.Float64("sum", sum))
			case metricdata.Histogram[int64]:
				var count uint64
				var sum int64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				logger.Info("session metric", slog.String("name", m.Name),
					slog.Uint64("count", count), slog.Int64("sum", sum))
			}
		}
	}
}
