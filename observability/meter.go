package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/fetch"
	"github.com/kbukum/pmidfetch/logger"
)

const meterName = "github.com/kbukum/pmidfetch"

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider must be shut down on exit to flush metrics.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Lookup outcomes recorded on pmidfetch.lookups.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
)

// PipelineMetrics records stage events as OpenTelemetry instruments. It
// implements fetch.Observer.
type PipelineMetrics struct {
	extracted      metric.Int64Counter
	lookups        metric.Int64Counter
	lookupDuration metric.Float64Histogram
	parsed         metric.Int64Counter
	appended       metric.Int64Counter
	queueDepth     metric.Int64Gauge
	throttled      metric.Int64Counter
	runDuration    metric.Float64Histogram
}

var _ fetch.Observer = (*PipelineMetrics)(nil)

// NewPipelineMetrics creates the pipeline instruments on meter. A nil
// meter uses the global provider.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = Meter(meterName)
	}
	m := &PipelineMetrics{}
	var err error

	if m.extracted, err = meter.Int64Counter("pmidfetch.records.extracted",
		metric.WithDescription("Records read from the source"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.records.extracted counter: %w", err)
	}
	if m.lookups, err = meter.Int64Counter("pmidfetch.lookups",
		metric.WithDescription("Remote lookups by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.lookups counter: %w", err)
	}
	if m.lookupDuration, err = meter.Float64Histogram("pmidfetch.lookup.duration",
		metric.WithDescription("Duration of remote lookups in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.lookup.duration histogram: %w", err)
	}
	if m.parsed, err = meter.Int64Counter("pmidfetch.results.parsed",
		metric.WithDescription("Parsed results by whether an identifier was found"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.results.parsed counter: %w", err)
	}
	if m.appended, err = meter.Int64Counter("pmidfetch.document.entries",
		metric.WithDescription("Entries appended to the output document"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.document.entries counter: %w", err)
	}
	if m.queueDepth, err = meter.Int64Gauge("pmidfetch.stage.queue_depth",
		metric.WithDescription("Items held by a stage and not yet handed on"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.stage.queue_depth gauge: %w", err)
	}
	if m.throttled, err = meter.Int64Counter("pmidfetch.lookups.throttled",
		metric.WithDescription("Dispatches deferred by the rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.lookups.throttled counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("pmidfetch.run.duration",
		metric.WithDescription("Wall-clock duration of completed runs in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating pmidfetch.run.duration histogram: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) Extracted(fetch.Record) {
	m.extracted.Add(context.Background(), 1)
}

func (m *PipelineMetrics) LookupDone(ctx context.Context, res fetch.LookupResult, elapsed time.Duration) {
	outcome := lookupOutcome(res.Err)
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.lookupDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *PipelineMetrics) Parsed(res fetch.ParsedResult) {
	m.parsed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Bool("resolved", res.Identifier.IsResolved()),
	))
}

func (m *PipelineMetrics) Appended(n int) {
	m.appended.Add(context.Background(), int64(n))
}

func (m *PipelineMetrics) QueueDepth(stage fetch.Stage, depth int) {
	m.queueDepth.Record(context.Background(), int64(depth), metric.WithAttributes(
		attribute.String("stage", string(stage)),
	))
}

func (m *PipelineMetrics) Throttled() {
	m.throttled.Add(context.Background(), 1)
}

func (m *PipelineMetrics) Completed(rep fetch.Report) {
	m.runDuration.Record(context.Background(), rep.Elapsed.Seconds(), metric.WithAttributes(
		attribute.String("completion", string(rep.Completion)),
	))
}

func lookupOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errors.ErrCodeTimeout):
		return OutcomeTimeout
	default:
		return OutcomeFailed
	}
}
