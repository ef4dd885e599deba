package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/pmidfetch/fetch"
	"github.com/kbukum/pmidfetch/logger"
)

const tracerName = "github.com/kbukum/pmidfetch"

// Span names and attribute keys.
const (
	SpanLookup       = "pmidfetch.lookup"
	AttrTitle        = "pmidfetch.title"
	AttrPayloadBytes = "pmidfetch.payload_bytes"
)

// InitTracer initializes the OpenTelemetry tracer provider and installs it
// globally. The provider must be shut down on exit to flush spans.
func InitTracer(ctx context.Context, config TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"sample_rate", config.SampleRate,
	))
	return tp, nil
}

// newResource describes this process to the collector.
func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", environment),
		),
	)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// TracedLookup wraps a fetch.Lookup in a client span per call.
type TracedLookup struct {
	next   fetch.Lookup
	tracer trace.Tracer
}

var _ fetch.Lookup = (*TracedLookup)(nil)

// TraceLookup wraps next. A nil tracer uses the global provider.
func TraceLookup(next fetch.Lookup, tracer trace.Tracer) *TracedLookup {
	if tracer == nil {
		tracer = Tracer(tracerName)
	}
	return &TracedLookup{next: next, tracer: tracer}
}

// Lookup calls the wrapped lookup inside a span.
func (l *TracedLookup) Lookup(ctx context.Context, term string) ([]byte, error) {
	ctx, span := l.tracer.Start(ctx, SpanLookup,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(AttrTitle, term)),
	)
	defer span.End()

	body, err := l.next.Lookup(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return body, err
	}
	span.SetAttributes(attribute.Int(AttrPayloadBytes, len(body)))
	return body, nil
}
