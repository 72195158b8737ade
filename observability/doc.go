// Package observability traces and measures generated client calls with
// OpenTelemetry.
//
// Install Filter as a global filter so every call gets a client span and
// its trace context is propagated in the request headers:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"), log)
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	f, err := apikit.New(cfg, apikit.WithFilters(observability.NewFilter(observability.WithMetrics(metrics))))
package observability
