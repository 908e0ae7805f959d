// Package tracing provides OpenTelemetry spans and Langfuse generation
// records for model invocations.
package tracing

import (
	"context"
	"fmt"

	"github.com/guardedai/mediator/pkg/config"
	"github.com/guardedai/mediator/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracer implements tracing using OpenTelemetry. A disabled tracer hands
// out no-op spans, so callers never need to branch on whether tracing is on.
type OTelTracer struct {
	tracer      trace.Tracer
	enabled     bool
	serviceName string
}

// NewOTelTracer creates a new OpenTelemetry tracer
func NewOTelTracer(cfg config.OTelConfig) (*OTelTracer, error) {
	if !cfg.Enabled {
		return &OTelTracer{enabled: false}, nil
	}

	ctx := context.Background()
	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &OTelTracer{
		tracer:      tp.Tracer(cfg.ServiceName),
		enabled:     true,
		serviceName: cfg.ServiceName,
	}, nil
}

// StartSpan starts a new span
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attributes map[string]string) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, trace.SpanFromContext(ctx)
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes)+1)
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	if requestID, ok := logging.GetRequestID(ctx); ok {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}

	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan ends a span, recording the error if one occurred
func (t *OTelTracer) EndSpan(span trace.Span, err error) {
	if !t.enabled {
		return
	}

	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
