package apikit

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/apikit/observability"
)

// TelemetryConfig traces and measures every call of a factory.
type TelemetryConfig struct {
	// Enabled wraps every call in a client span and records call metrics.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Tracing installs an OTLP trace exporter. When nil the global tracer
	// provider is used.
	Tracing *observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	// Metrics installs an OTLP metric exporter. When nil the global meter
	// provider is used.
	Metrics *observability.MeterConfig `yaml:"metrics" mapstructure:"metrics"`
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// telemetry builds the observability filter and the providers the factory
// owns.
func (f *Factory) telemetry(ctx context.Context) (*observability.Filter, error) {
	tc := f.cfg.Telemetry
	if tc.Tracing != nil {
		tp, err := observability.InitTracer(ctx, *tc.Tracing, f.log)
		if err != nil {
			return nil, err
		}
		f.providers = append(f.providers, tp)
	}
	if tc.Metrics != nil {
		mp, err := observability.InitMeter(ctx, *tc.Metrics, f.log)
		if err != nil {
			return nil, stderrors.Join(err, f.shutdownTelemetry(ctx))
		}
		f.providers = append(f.providers, mp)
	}
	m, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return nil, stderrors.Join(err, f.shutdownTelemetry(ctx))
	}
	return observability.NewFilter(observability.WithMetrics(m)), nil
}

func (f *Factory) shutdownTelemetry(ctx context.Context) error {
	var errs []error
	for i := len(f.providers) - 1; i >= 0; i-- {
		errs = append(errs, f.providers[i].Shutdown(ctx))
	}
	f.providers = nil
	return stderrors.Join(errs...)
}
