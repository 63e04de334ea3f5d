// Package observability provides OpenTelemetry tracing for Strata's store
// operations.
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/strataworks/strata"

var (
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	initOnce sync.Once
)

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	PrettyPrint    bool
}

// InitTracing sets up the global tracer with a stdout exporter. It is a
// no-op after the first successful call.
func InitTracing(cfg TracingConfig) error {
	var err error
	initOnce.Do(func() {
		var opts []stdouttrace.Option
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}

		var exporter *stdouttrace.Exporter
		exporter, err = stdouttrace.New(opts...)
		if err != nil {
			err = fmt.Errorf("failed to create trace exporter: %w", err)
			return
		}

		sampler := sdktrace.TraceIDRatioBased(cfg.SamplingRate)
		if cfg.SamplingRate <= 0 {
			sampler = sdktrace.NeverSample()
		}

		provider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
			sdktrace.WithResource(sdkresource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(cfg.ServiceName),
				semconv.ServiceVersion(cfg.ServiceVersion),
			)),
		)
		otel.SetTracerProvider(provider)
		tracer = provider.Tracer(tracerName)
	})
	return err
}

// StartSpan starts a span for a store operation.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan finishes a span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
