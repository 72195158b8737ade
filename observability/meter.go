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

	"github.com/kbukum/apikit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string `mapstructure:"service_name" yaml:"service_name"`
	ServiceVersion string `mapstructure:"service_version" yaml:"service_version"`
	Environment    string `mapstructure:"environment" yaml:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
	// Interval is the export interval.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DefaultMeterConfig returns defaults for local development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: DefaultTracerConfig(serviceName).ServiceVersion,
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// Shut the provider down on exit.
func InitMeter(ctx context.Context, cfg MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("meter initialized", logger.Fields(
			"service", cfg.ServiceName,
			"endpoint", cfg.Endpoint,
			"interval", cfg.Interval.String(),
		))
	}
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded for client calls.
type Metrics struct {
	calls     metric.Int64Counter
	duration  metric.Float64Histogram
	active    metric.Int64UpDownCounter
	cacheHits metric.Int64Counter
}

// NewMetrics creates the call instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	calls, err := meter.Int64Counter("apikit.client.calls",
		metric.WithDescription("Completed client calls by operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.client.calls counter: %w", err)
	}
	duration, err := meter.Float64Histogram("apikit.client.duration",
		metric.WithDescription("Duration of client calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.client.duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("apikit.client.active",
		metric.WithDescription("Client calls in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.client.active counter: %w", err)
	}
	cacheHits, err := meter.Int64Counter("apikit.client.cache_hits",
		metric.WithDescription("Calls answered from a response cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.client.cache_hits counter: %w", err)
	}
	return &Metrics{calls: calls, duration: duration, active: active, cacheHits: cacheHits}, nil
}

// CallStarted counts a call in flight.
func (m *Metrics) CallStarted(ctx context.Context, operation string) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOperation, operation)))
}

// CallEnded records a finished call. outcome is "ok" or an error code.
func (m *Metrics) CallEnded(ctx context.Context, operation, outcome string, cacheHit bool, d time.Duration) {
	op := attribute.String(AttrOperation, operation)
	m.active.Add(ctx, -1, metric.WithAttributes(op))
	m.calls.Add(ctx, 1, metric.WithAttributes(op, attribute.String("outcome", outcome)))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(op))
	if cacheHit {
		m.cacheHits.Add(ctx, 1, metric.WithAttributes(op))
	}
}
