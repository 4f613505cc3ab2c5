// Package tracer configures OpenTelemetry tracing.
package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
)

// Options configure the OTLP HTTP exporter.
type Options struct {
	Enabled     bool
	Endpoint    string // host:port, default localhost:4318
	ServiceName string
}

// Init installs a global tracer provider exporting over OTLP HTTP
// (Jaeger accepts OTLP on 4318). When tracing is disabled the global no-op
// provider stays in place. The returned function flushes and stops the
// exporter.
func Init(ctx context.Context, opts Options, logger *zap.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Enabled {
		logger.Info("tracing disabled (set OTEL_ENABLED=true to enable)")
		return noop, nil
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	service := opts.ServiceName
	if service == "" {
		service = "docqa"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("creating otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(service),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled", zap.String("endpoint", endpoint), zap.String("service", service))

	return tp.Shutdown, nil
}
