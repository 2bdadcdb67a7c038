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
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/ssehub/logger"
)

const instrumentationName = "github.com/kbukum/ssehub"

// Span names for the event paths.
const (
	SpanPublish      = "sse.publish"
	SpanBroadcast    = "sse.broadcast"
	SpanRelayReceive = "sse.relay.receive"
	SpanKafkaIngest  = "sse.kafka.ingest"
)

// Attribute keys.
const (
	AttrUserID    = "user.id"
	AttrChannel   = "sse.channel"
	AttrEventType = "sse.event.type"
	AttrDelivered = "sse.delivered"
	AttrDropped   = "sse.dropped"
	AttrEvicted   = "sse.evicted"
	AttrSource    = "sse.source"
)

// TracerConfig holds the resolved tracer settings. Build it with
// Config.TracerConfig.
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP collector host:port.
	Endpoint string
	Insecure bool
	// SampleRate is the fraction of root spans kept, 0 to 1.
	SampleRate float64
}

// InitTracer installs a batching OTLP tracer provider as the global one,
// together with W3C trace-context propagation. Shut the provider down on exit
// to flush buffered spans.
func InitTracer(ctx context.Context, config *TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
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

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(config.SampleRate))),
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

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("deployment.environment", environment),
		),
	)
}

// StartSpan starts a span on the ssehub tracer of the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartEventSpan starts a span for an event moving through channel.
func StartEventSpan(ctx context.Context, name, channel, eventType string) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(
		attribute.String(AttrChannel, channel),
		attribute.String(AttrEventType, eventType),
	))
}

// RecordDelivery attaches a fan-out outcome to span.
func RecordDelivery(span trace.Span, delivered, dropped, evicted int) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrDelivered, delivered),
		attribute.Int(AttrDropped, dropped),
		attribute.Int(AttrEvicted, evicted),
	)
}

// RecordError marks span failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
