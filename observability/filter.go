package observability

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
)

const (
	propSpan  = "observability.span"
	propStart = "observability.start"
)

// Filter opens a client span around each call and propagates its trace
// context in the request headers. It records Metrics when set.
type Filter struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	metrics    *Metrics
	now        func() time.Time
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithTracerProvider sets the provider; the global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) FilterOption {
	return func(f *Filter) { f.tracer = tp.Tracer(InstrumentationName) }
}

// WithPropagator sets the propagator; the global one is used otherwise.
func WithPropagator(p propagation.TextMapPropagator) FilterOption {
	return func(f *Filter) { f.propagator = p }
}

// WithMetrics records call metrics.
func WithMetrics(m *Metrics) FilterOption {
	return func(f *Filter) { f.metrics = m }
}

// NewFilter creates a tracing filter.
func NewFilter(opts ...FilterOption) *Filter {
	f := &Filter{now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	if f.tracer == nil {
		f.tracer = Tracer(InstrumentationName)
	}
	if f.propagator == nil {
		f.propagator = otel.GetTextMapPropagator()
	}
	return f
}

func (*Filter) AllowMultiple() bool { return false }
func (*Filter) HookKey() string     { return "observability" }

// OnBegin starts the span. The call context carries it from here on, so
// the request is sent under it.
func (f *Filter) OnBegin(cc *contract.CallContext) error {
	op := cc.Operation()
	ctx, span := f.tracer.Start(cc.Context, op.ID(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrContract, op.Contract.Name),
			attribute.String(AttrOperation, op.Name),
			semconv.HTTPMethod(cc.Request.Method),
		),
	)
	cc.Context = ctx
	cc.Properties.Set(propSpan, span)
	cc.Properties.Set(propStart, f.now())
	f.propagator.Inject(ctx, propagation.HeaderCarrier(cc.Request.Header))
	if f.metrics != nil {
		f.metrics.CallStarted(ctx, op.ID())
	}
	return nil
}

// OnEnd closes the span with the call's outcome.
func (f *Filter) OnEnd(cc *contract.CallContext) error {
	v, ok := cc.Properties.Get(propSpan)
	if !ok {
		return nil
	}
	span := v.(trace.Span)
	defer span.End()

	outcome := "ok"
	cacheHit := false
	if resp := cc.Response; resp != nil {
		cacheHit = resp.FromCache
		span.SetAttributes(
			semconv.HTTPStatusCode(resp.StatusCode),
			attribute.Bool(AttrCacheHit, cacheHit),
		)
		if resp.StatusCode >= 400 {
			outcome = fmt.Sprintf("http_%d", resp.StatusCode)
			span.SetStatus(codes.Error, resp.Reason)
		}
	}
	if cc.Err != nil {
		outcome = string(errors.CodeOf(cc.Err))
		if outcome == "" {
			outcome = "error"
		}
		span.RecordError(cc.Err)
		span.SetAttributes(attribute.String(AttrErrorCode, outcome))
		span.SetStatus(codes.Error, cc.Err.Error())
	}

	if f.metrics != nil {
		start, _ := cc.Properties[propStart].(time.Time)
		f.metrics.CallEnded(cc.Context, cc.Operation().ID(), outcome, cacheHit, f.now().Sub(start))
	}
	return nil
}

var _ contract.FilterHook = (*Filter)(nil)
