// Package observability provides OpenTelemetry tracing and metrics for the
// provider lifecycle.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("kernel")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	cfg := observability.DefaultMeterConfig("kernel")
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewKernelMetrics(observability.Meter("kernel"))
//	registry := providers.NewRegistry(providers.WithMetrics(metrics))
//
// Health:
//
//	health := observability.NewServiceHealth("kernel", version.Get().Version)
//	health.AddComponent(observability.Health{Name: "cache", Status: observability.HealthStatusUp})
package observability
