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

	"github.com/kbukum/gokernel/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string `mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
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

// KernelMetrics holds the instruments for provider lifecycle activity.
// A nil *KernelMetrics is valid and records nothing.
type KernelMetrics struct {
	transitions      metric.Int64Counter
	transitionErrors metric.Int64Counter
	transitionTime   metric.Float64Histogram
	reactions        metric.Int64Counter
	reactionErrors   metric.Int64Counter
}

// NewKernelMetrics creates the kernel instruments on the given meter.
func NewKernelMetrics(meter metric.Meter) (*KernelMetrics, error) {
	transitions, err := meter.Int64Counter("kernel.provider.transitions",
		metric.WithDescription("Provider state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kernel.provider.transitions counter: %w", err)
	}

	transitionErrors, err := meter.Int64Counter("kernel.provider.transition_errors",
		metric.WithDescription("Provider boot or dispose calls that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kernel.provider.transition_errors counter: %w", err)
	}

	transitionTime, err := meter.Float64Histogram("kernel.provider.transition.duration",
		metric.WithDescription("Duration of provider boot and dispose calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kernel.provider.transition.duration histogram: %w", err)
	}

	reactions, err := meter.Int64Counter("kernel.provider.reactions",
		metric.WithDescription("Re-evaluations of provider predicates by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kernel.provider.reactions counter: %w", err)
	}

	reactionErrors, err := meter.Int64Counter("kernel.provider.reaction_errors",
		metric.WithDescription("Re-evaluations whose boot or dispose failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kernel.provider.reaction_errors counter: %w", err)
	}

	return &KernelMetrics{
		transitions:      transitions,
		transitionErrors: transitionErrors,
		transitionTime:   transitionTime,
		reactions:        reactions,
		reactionErrors:   reactionErrors,
	}, nil
}

// RecordTransition records a successful state change. A zero duration
// means no provider call was involved and only the counter is incremented.
func (m *KernelMetrics) RecordTransition(ctx context.Context, provider, from, to string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("from", from),
		attribute.String("to", to),
	))
	if duration > 0 {
		m.transitionTime.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("to", to),
		))
	}
}

// RecordTransitionError records a failed boot or dispose call.
func (m *KernelMetrics) RecordTransitionError(ctx context.Context, provider, operation string) {
	if m == nil {
		return
	}
	m.transitionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
}

// RecordReaction records the outcome of one predicate re-evaluation.
func (m *KernelMetrics) RecordReaction(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.reactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordReactionError records a re-evaluation whose boot or dispose failed.
func (m *KernelMetrics) RecordReactionError(ctx context.Context, provider, operation string) {
	if m == nil {
		return
	}
	m.reactionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
}
