// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("school_id", id).Info("assignment created")
//
// Request-scoped loggers travel in the context:
//
//	log := observability.FromContext(ctx, logger)
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordAuthz("ASSIGN_CHAPTER_ADMIN", "CHAPTER_ADMIN", false)
//
// A nil *Metrics records nothing, so libraries can accept it optionally.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version, 5*time.Second).
//		Require("store", store).
//		Optional("cache", cache)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer providers.Shutdown(ctx)
//	ctx, span := observability.StartSpan(ctx, "chapters.Assign")
package observability
