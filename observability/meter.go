package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/ssehub/logger"
)

// MeterConfig holds the resolved meter settings. Build it with
// Config.MeterConfig.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP collector host:port.
	Endpoint string
	Insecure bool
	// Interval is how often metrics are pushed. Zero keeps the SDK default.
	Interval time.Duration
}

// InitMeter installs a periodic OTLP meter provider as the global one. The
// registry's instruments, created through DefaultMetrics, start exporting
// from then on. Shut the provider down on exit to push the last interval.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
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

	var readerOpts []sdkmetric.PeriodicReaderOption
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

// Metrics holds the stream instruments recorded by the connection registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	active    metric.Int64UpDownCounter
	opened    metric.Int64Counter
	evicted   metric.Int64Counter
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
	broadcast metric.Float64Histogram
}

// broadcastBuckets are in milliseconds. Fan-out only queues events, so most
// broadcasts land in the sub-millisecond buckets.
var broadcastBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.opened, "sse.connections.opened", "Stream connections accepted"},
		{&m.evicted, "sse.connections.evicted", "Connections removed after a failed delivery"},
		{&m.delivered, "sse.events.delivered", "Events queued for a subscribed connection"},
		{&m.dropped, "sse.events.dropped", "Events dropped because a connection queue was full"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}
	}

	m.active, err = meter.Int64UpDownCounter("sse.connections.active",
		metric.WithDescription("Stream connections currently open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.connections.active: %w", err)
	}

	m.broadcast, err = meter.Float64Histogram("sse.broadcast.duration",
		metric.WithDescription("Time to fan one event out to the local subscribers"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(broadcastBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.broadcast.duration: %w", err)
	}
	return &m, nil
}

// DefaultMetrics creates instruments on the global meter provider, which is a
// no-op until InitMeter runs.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.Meter(instrumentationName))
	if err != nil {
		logger.Warn("sse metrics disabled", logger.ErrorFields("create_metrics", err))
		return nil
	}
	return m
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.opened.Add(ctx, 1)
	m.active.Add(ctx, 1)
}

// ConnectionClosed records a removed connection.
func (m *Metrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
}

// ConnectionsEvicted records connections removed during delivery.
func (m *Metrics) ConnectionsEvicted(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.evicted.Add(ctx, int64(n))
}

// EventsDelivered records events queued for delivery.
func (m *Metrics) EventsDelivered(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.delivered.Add(ctx, int64(n))
}

// EventsDropped records events lost to full queues.
func (m *Metrics) EventsDropped(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.Add(ctx, int64(n))
}

// BroadcastCompleted records how long one fan-out took.
func (m *Metrics) BroadcastCompleted(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.broadcast.Record(ctx, float64(d)/float64(time.Millisecond))
}
