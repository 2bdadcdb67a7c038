// Package observability wires OpenTelemetry tracing and metrics.
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	metrics := observability.DefaultMetrics()
//	registry := sse.NewRegistry(sse.WithMetrics(metrics))
//
// Without InitMeter/InitTracer the global providers are no-ops, so
// instruments and spans cost nothing.
package observability
