package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	m.ConnectionOpened(ctx)
	m.ConnectionOpened(ctx)
	m.ConnectionClosed(ctx)
	m.ConnectionsEvicted(ctx, 1)
	m.EventsDelivered(ctx, 3)
	m.EventsDropped(ctx, 2)

	got := collect(t, reader)
	want := map[string]int64{
		"sse.connections.active":  1,
		"sse.connections.opened":  2,
		"sse.connections.evicted": 1,
		"sse.events.delivered":    3,
		"sse.events.dropped":      2,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.ConnectionOpened(ctx)
	m.ConnectionClosed(ctx)
	m.ConnectionsEvicted(ctx, 1)
	m.EventsDelivered(ctx, 1)
	m.EventsDropped(ctx, 1)
}

func TestNewMetrics_NoopMeter(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.EventsDelivered(context.Background(), 1)
}

func TestDefaultMetrics(t *testing.T) {
	if DefaultMetrics() == nil {
		t.Fatal("expected metrics on the global provider")
	}
}

func TestConfig_ApplyDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.ExportInterval != "15s" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"sample rate too high", Config{SampleRate: 2, ExportInterval: "1s"}},
		{"bad interval", Config{SampleRate: 1, ExportInterval: "soon"}},
		{"enabled without endpoint", Config{Enabled: true, SampleRate: 1, ExportInterval: "1s"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_DerivedConfigs(t *testing.T) {
	cfg := Config{Endpoint: "otel:4318", Insecure: true, SampleRate: 0.5, ExportInterval: "30s", ServiceVersion: "1.2.3"}
	mc := cfg.MeterConfig("ssehub", "prod")
	if mc.Interval != 30*time.Second || mc.Endpoint != "otel:4318" || mc.ServiceName != "ssehub" {
		t.Errorf("unexpected meter config %+v", mc)
	}
	tc := cfg.TracerConfig("ssehub", "prod")
	if tc.SampleRate != 0.5 || tc.ServiceVersion != "1.2.3" || !tc.Insecure {
		t.Errorf("unexpected tracer config %+v", tc)
	}
}

func TestMetrics_BroadcastDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	m.BroadcastCompleted(ctx, 2*time.Millisecond)
	m.BroadcastCompleted(ctx, 500*time.Microsecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "sse.broadcast.duration" {
				continue
			}
			found = true
			if md.Unit != "ms" {
				t.Errorf("unit = %q, want ms", md.Unit)
			}
			hist, ok := md.Data.(metricdata.Histogram[float64])
			if !ok || len(hist.DataPoints) != 1 {
				t.Fatalf("unexpected histogram data %#v", md.Data)
			}
			dp := hist.DataPoints[0]
			if dp.Count != 2 {
				t.Errorf("count = %d, want 2", dp.Count)
			}
			if dp.Sum != 2.5 {
				t.Errorf("sum = %v, want 2.5", dp.Sum)
			}
		}
	}
	if !found {
		t.Fatal("sse.broadcast.duration not exported")
	}

	var nilMetrics *Metrics
	nilMetrics.BroadcastCompleted(ctx, time.Second)
}

func TestStartEventSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, parent := StartSpan(context.Background(), SpanPublish)
	_, span := StartEventSpan(ctx, SpanBroadcast, "orders", "order.created")
	RecordDelivery(span, 3, 1, 2)
	span.End()
	RecordError(parent, fmt.Errorf("publish failed"))
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	child, root := spans[0], spans[1]
	if child.Name != SpanBroadcast || child.Parent.SpanID() != root.SpanContext.SpanID() {
		t.Errorf("broadcast span not parented to publish span: %+v", child.Parent)
	}
	attrs := map[string]string{}
	for _, kv := range child.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		AttrChannel:   "orders",
		AttrEventType: "order.created",
		AttrDelivered: "3",
		AttrDropped:   "1",
		AttrEvicted:   "2",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("%s = %q, want %q", k, attrs[k], v)
		}
	}
	if root.Status.Code != codes.Error || len(root.Events) == 0 {
		t.Errorf("expected error status and event, got %+v", root.Status)
	}
}

func TestSpanHelpers_NotRecording(t *testing.T) {
	span := trace.SpanFromContext(context.Background())
	RecordDelivery(span, 1, 0, 0)
	RecordError(span, fmt.Errorf("ignored"))
	RecordError(span, nil)
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestInitTracerSamplingRates(t *testing.T) {
	base := Config{}
	base.ApplyDefaults()
	for _, rate := range []float64{1.0, 0.0, 0.5} {
		t.Run(fmt.Sprintf("rate %.1f", rate), func(t *testing.T) {
			cfg := base.TracerConfig("test", "test")
			cfg.SampleRate = rate
			tp, err := InitTracer(context.Background(), &cfg)
			if err != nil {
				t.Fatalf("InitTracer: %v", err)
			}
			_ = tp.Shutdown(context.Background())
		})
	}
}

func TestInitMeter(t *testing.T) {
	base := Config{}
	base.ApplyDefaults()
	cfg := base.MeterConfig("test-service", "test")
	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = mp.Shutdown(ctx)
}
