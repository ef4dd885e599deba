package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/pmidfetch/component"
)

// Telemetry installs the meter and tracer providers while it is started.
// When disabled it starts and stops as a no-op and the global providers
// stay at their no-op defaults.
type Telemetry struct {
	cfg            Config
	serviceName    string
	serviceVersion string
	environment    string

	mu     sync.Mutex
	meter  *sdkmetric.MeterProvider
	tracer *sdktrace.TracerProvider
}

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// NewTelemetry creates a telemetry component for the named service.
func NewTelemetry(cfg Config, serviceName, serviceVersion, environment string) *Telemetry {
	cfg.ApplyDefaults()
	return &Telemetry{
		cfg:            cfg,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		environment:    environment,
	}
}

func (t *Telemetry) Name() string { return "telemetry" }

// Start creates the OTLP exporters and installs the global providers.
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.cfg.Enabled {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	mp, err := InitMeter(ctx, MeterConfig{
		ServiceName:    t.serviceName,
		ServiceVersion: t.serviceVersion,
		Environment:    t.environment,
		Endpoint:       t.cfg.Endpoint,
		Insecure:       t.cfg.Insecure,
		Interval:       t.cfg.Interval,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    t.serviceName,
		ServiceVersion: t.serviceVersion,
		Environment:    t.environment,
		Endpoint:       t.cfg.Endpoint,
		Insecure:       t.cfg.Insecure,
		SampleRate:     t.cfg.SampleRate,
	})
	if err != nil {
		_ = mp.Shutdown(ctx)
		return fmt.Errorf("telemetry: %w", err)
	}
	t.meter, t.tracer = mp, tp
	return nil
}

// Stop flushes and shuts down both providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		t.tracer = nil
	}
	if t.meter != nil {
		if err := t.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		t.meter = nil
	}
	return errors.Join(errs...)
}

func (t *Telemetry) Health(_ context.Context) component.Health {
	h := component.Health{Name: t.Name(), Status: component.StatusHealthy}
	if !t.cfg.Enabled {
		h.Message = "disabled"
	}
	return h
}

func (t *Telemetry) Describe() component.Description {
	if !t.cfg.Enabled {
		return component.Description{Name: "Telemetry", Type: "telemetry", Details: "disabled"}
	}
	return component.Description{
		Name:    "Telemetry",
		Type:    "telemetry",
		Details: fmt.Sprintf("%s interval=%s sample=%.2f", t.cfg.Endpoint, t.cfg.Interval, t.cfg.SampleRate),
	}
}
