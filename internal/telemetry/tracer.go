// Package telemetry wires the observation layer: distributed tracing via
// OpenTelemetry, metrics via Prometheus, and the append-only audit/trace sinks
// backed by Redis with a local-file fallback.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerConfig configures the OpenTelemetry tracer provider.
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	PrettyPrint    bool
}

// DefaultTracerConfig returns the tracer config used when the caller does not
// override it.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{ServiceName: "ragcore", ServiceVersion: "1.0.0"}
}

// NewTracerProvider builds an SDK tracer provider exporting spans to stdout.
// A real deployment would swap stdouttrace for an OTLP exporter. The
// orchestrator does not use this provider; it records its own ragtype.Trace.
func NewTracerProvider(cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns a named tracer from the globally registered provider.
func Tracer(cfg TracerConfig) trace.Tracer {
	return otel.Tracer(cfg.ServiceName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
}
