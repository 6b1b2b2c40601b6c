package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/devicedetect/binder"
	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
	"github.com/dmitrymomot/devicedetect/pkg/ratelimiter"
)

// classify maps an error to the HTTPError reported to the client.
func classify(err error) HTTPError {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrUnsupportedMediaType
	case errors.Is(err, binder.ErrInvalidJSON), errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, detection.ErrUnknownMethod):
		return ErrBadRequest
	case errors.Is(err, dataset.ErrPropertyNotFound):
		return NewHTTPError(http.StatusNotFound, "property_not_found")
	case errors.Is(err, ratelimiter.ErrLimitExceeded):
		return ErrTooManyRequests
	case errors.Is(err, dataset.ErrClosed), errors.Is(err, ratelimiter.ErrStoreUnavailable):
		return ErrServiceUnavailable
	default:
		return ErrInternalServerError
	}
}

// NewErrorHandler returns an ErrorHandler that renders errors as JSON and
// logs them: client errors at WARN, server errors at ERROR. Server error
// details are not sent to the client.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx Context, err error) {
		httpErr := classify(err)
		level := slog.LevelWarn
		if httpErr.Code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Error(err),
			slog.Int("status", httpErr.Code),
			slog.String("http_method", r.Method),
			logger.Path(r.URL.Path),
			logger.Component("http"),
		)

		resp := JSONError(httpErr)
		if httpErr.Code < http.StatusInternalServerError {
			resp = JSONError(fmt.Errorf("%w: %v", httpErr, err))
		}
		if rerr := resp.Render(ctx.ResponseWriter(), r); rerr != nil {
			log.ErrorContext(r.Context(), "failed to render error", logger.Error(rerr))
		}
	}
}
