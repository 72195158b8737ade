package observability

import (
	"context"
	"net/http"
	"reflect"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/hooks"
	"github.com/kbukum/apikit/httpclient"
)

type base struct{}

type weatherAPI struct {
	base `host:"https://weather.example.com"`

	Forecast func(ctx context.Context, city string) (string, error) `GET:"forecast/{city}" params:"city"`
}

// callContext builds the state a running call hands to filters.
func callContext(t *testing.T) *contract.CallContext {
	t.Helper()
	c, err := contract.Analyze(reflect.TypeFor[weatherAPI]())
	if err != nil {
		t.Fatal(err)
	}
	a, err := contract.NewTemplates(hooks.NewRegistry()).Action(c.Operations[0])
	if err != nil {
		t.Fatal(err)
	}
	b, err := a.Bind([]any{context.Background(), "oslo"})
	if err != nil {
		t.Fatal(err)
	}
	return contract.NewCallContext(b, nil, nil)
}

func newRecorded(opts ...FilterOption) (*Filter, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	opts = append([]FilterOption{WithTracerProvider(tp), WithPropagator(propagation.TraceContext{})}, opts...)
	return NewFilter(opts...), rec
}

func TestFilter_SpanAroundCall(t *testing.T) {
	f, rec := newRecorded()
	cc := callContext(t)

	if err := f.OnBegin(cc); err != nil {
		t.Fatal(err)
	}
	if cc.Request.Header.Get("traceparent") == "" {
		t.Fatal("trace context should be injected into the request headers")
	}
	cc.Response = &httpclient.Response{StatusCode: http.StatusOK, Reason: "OK", FromCache: true}
	if err := f.OnEnd(cc); err != nil {
		t.Fatal(err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "weatherAPI.Forecast" {
		t.Errorf("span name = %s", s.Name())
	}
	attrs := attribute.NewSet(s.Attributes()...)
	if v, _ := attrs.Value(AttrOperation); v.AsString() != "Forecast" {
		t.Errorf("operation attribute = %v", v)
	}
	if v, _ := attrs.Value(AttrCacheHit); !v.AsBool() {
		t.Error("cache hit should be recorded")
	}
	if s.Status().Code == codes.Error {
		t.Error("a successful call should not mark the span as failed")
	}
}

func TestFilter_RecordsErrors(t *testing.T) {
	f, rec := newRecorded()
	cc := callContext(t)
	_ = f.OnBegin(cc)
	cc.Err = errors.Timeout("weatherAPI.Forecast", context.DeadlineExceeded)
	_ = f.OnEnd(cc)

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Fatal("failed call should set the error status")
	}
	attrs := attribute.NewSet(s.Attributes()...)
	if v, _ := attrs.Value(AttrErrorCode); v.AsString() != string(errors.ErrCodeTimeout) {
		t.Errorf("error code attribute = %v", v)
	}
	if len(s.Events()) == 0 {
		t.Error("error should be recorded as a span event")
	}
}

func TestFilter_EndWithoutBeginIsNoop(t *testing.T) {
	f, rec := newRecorded()
	if err := f.OnEnd(callContext(t)); err != nil {
		t.Fatal(err)
	}
	if len(rec.Ended()) != 0 {
		t.Fatal("no span should be ended")
	}
}

func TestFilter_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter(InstrumentationName))
	if err != nil {
		t.Fatal(err)
	}
	f, _ := newRecorded(WithMetrics(m))
	clock := time.Unix(0, 0)
	f.now = func() time.Time { return clock }

	cc := callContext(t)
	_ = f.OnBegin(cc)
	clock = clock.Add(250 * time.Millisecond)
	cc.Response = &httpclient.Response{StatusCode: http.StatusNotFound, Reason: "Not Found"}
	_ = f.OnEnd(cc)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			if md.Name != "apikit.client.calls" {
				continue
			}
			sum := md.Data.(metricdata.Sum[int64])
			if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Fatalf("calls = %+v", sum.DataPoints)
			}
			if v, _ := sum.DataPoints[0].Attributes.Value("outcome"); v.AsString() != "http_404" {
				t.Errorf("outcome = %v", v)
			}
		}
	}
	for _, name := range []string{"apikit.client.calls", "apikit.client.duration", "apikit.client.active"} {
		if !found[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	m.CallStarted(context.Background(), "op")
	m.CallEnded(context.Background(), "op", "ok", false, time.Millisecond)
}

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("billing")
	if tc.ServiceName != "billing" || tc.Endpoint != "localhost:4318" || tc.SampleRate != 1.0 || !tc.Insecure {
		t.Errorf("unexpected tracer defaults %+v", tc)
	}
	mc := DefaultMeterConfig("billing")
	if mc.Interval != 15*time.Second || mc.ServiceVersion == "" {
		t.Errorf("unexpected meter defaults %+v", mc)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%v) = %s, want %s", tc.rate, got, tc.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("billing", "1.2.3", "test")
	if err != nil {
		t.Fatalf("resource should merge with the default: %v", err)
	}
	set := res.Set()
	if v, _ := set.Value("service.name"); v.AsString() != "billing" {
		t.Errorf("service.name = %v", v)
	}
}
