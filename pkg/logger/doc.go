// Package logger builds the *slog.Logger used across devicedetect and
// provides attribute helpers so that dataset, cache and matching events share
// the same key names.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("DEVICEDETECT_LOG_ENV"), "devicedetect"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//
//	log.Info("dataset opened",
//	    logger.Dataset(ds.ID()),
//	    logger.Duration(time.Since(start)),
//	)
//
// New picks slog.NewTextHandler or slog.NewJSONHandler from the configured
// Format and wraps it with LogHandlerDecorator, which runs every registered
// ContextExtractor when a record is handled.
//
// Error and Errors return an empty attribute for nil errors so they can be
// passed unconditionally.
package logger
