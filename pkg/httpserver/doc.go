// Package httpserver runs the detection HTTP service with graceful shutdown
// and health probes.
//
// Server listens synchronously, so a bad address fails Run immediately, then
// serves until the context is cancelled or SIGINT/SIGTERM arrives. Stop hooks
// run after in-flight requests have drained, which is where the service
// closes its dataset.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(*slog.Logger) { _ = detector.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// HealthCheckHandler answers liveness probes when given no checks and
// readiness probes otherwise. Errors wrap ErrStart or ErrShutdown.
package httpserver
