package devicedetect

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/devicedetect/binder"
	"github.com/dmitrymomot/devicedetect/handler"
	"github.com/dmitrymomot/devicedetect/pkg/clientip"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/httpserver"
	"github.com/dmitrymomot/devicedetect/pkg/ratelimiter"
	"github.com/dmitrymomot/devicedetect/pkg/requestid"
)

const (
	// MaxBatchSize is the largest number of header sets accepted by one
	// batch request.
	MaxBatchSize = 1000
	// DefaultBatchConcurrency bounds the matches a batch runs at once.
	DefaultBatchConcurrency = 8

	maxBatchBody = 4 << 20
)

// Device is the JSON description of a match.
type Device struct {
	State      string            `json:"state"`
	Method     detection.Method  `json:"method"`
	Difference int               `json:"difference"`
	Signature  string            `json:"signature,omitempty"`
	Rank       int32             `json:"rank,omitempty"`
	ElapsedUS  int64             `json:"elapsed_us"`
	Values     map[string]string `json:"values,omitempty"`
}

// Describe renders m with the values of the named properties, or of every
// property when none are named.
func (d *Detector) Describe(m *detection.Match, properties ...string) (Device, error) {
	dev := Device{
		State:      m.State().String(),
		Method:     m.Method(),
		Difference: m.Difference(),
		ElapsedUS:  m.Elapsed().Microseconds(),
	}
	if s := m.Signature(); s != nil {
		dev.Signature = s.String()
		dev.Rank = s.Rank()
	}
	if m.State() != detection.StateResultFound {
		return dev, nil
	}

	if len(properties) == 0 {
		all, err := d.ds.Properties()
		if err != nil {
			return Device{}, err
		}
		for _, p := range all {
			properties = append(properties, p.Name())
		}
	}
	dev.Values = make(map[string]string, len(properties))
	for _, name := range properties {
		v, err := m.ValueString(name)
		if err != nil {
			return Device{}, err
		}
		dev.Values[name] = v
	}
	return dev, nil
}

type detectRequest struct {
	UserAgent  string   `query:"ua"`
	Properties []string `query:"property"`
}

type batchRequest struct {
	Requests   []map[string]string `json:"requests"`
	Properties []string            `json:"properties"`
	Limit      int                 `json:"limit"`
}

// Handler returns the HTTP API of the Detector:
//
//	GET  /detect         match the request's own headers, or ?ua=
//	POST /detect/batch   match {"requests":[{header: value}, ...]}
//	GET  /stats          cache and dataset statistics
//	GET  /health/live    liveness probe
//	GET  /health/ready   readiness probe (dataset open, redis reachable)
//
// ?property= (repeatable or comma separated) limits the values returned.
// When Config.RateLimit is enabled the detect endpoints are limited per
// client address; a batch costs one token per header set.
func (d *Detector) Handler() http.Handler {
	eh := handler.NewErrorHandler(d.log)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware(d.ipHeaders...))

	r.Get("/health/live", httpserver.HealthCheckHandler(d.log, nil))
	r.Get("/health/ready", httpserver.HealthCheckHandler(d.log, map[string]httpserver.Check{
		"detector": d.Ready,
	}))

	r.With(d.rateLimit(eh)).Get("/detect", handler.Wrap(d.detect,
		handler.WithBinders[handler.Context, detectRequest](binder.BindQuery()),
		handler.WithErrorHandler[handler.Context, detectRequest](eh),
	))
	r.Post("/detect/batch", handler.Wrap(d.detectBatch,
		handler.WithBinders[handler.Context, batchRequest](binder.BindJSON(maxBatchBody)),
		handler.WithErrorHandler[handler.Context, batchRequest](eh),
	))
	r.Get("/stats", handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.JSON(d.Stats())
	}))
	return r
}

func (d *Detector) rateLimit(eh handler.ErrorHandler[handler.Context]) func(http.Handler) http.Handler {
	if d.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimiter.Middleware(d.limiter, clientip.Key, func(w http.ResponseWriter, r *http.Request, err error) {
		eh(handler.NewContext(w, r), err)
	})
}

func (d *Detector) detect(ctx handler.Context, req detectRequest) handler.Response {
	// ?ua= replaces the request headers; a match stored by an outer
	// Middleware is reused otherwise.
	var (
		m   *detection.Match
		err error
	)
	switch {
	case req.UserAgent != "":
		m, err = d.DetectUserAgent(req.UserAgent)
	case ctx.Match() != nil:
		m = ctx.Match()
	default:
		m, err = d.DetectRequest(ctx.Request())
	}
	if err != nil {
		return handler.Error(err)
	}
	dev, err := d.Describe(m, req.Properties...)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(dev)
}

func (d *Detector) detectBatch(ctx handler.Context, req batchRequest) handler.Response {
	if len(req.Requests) > MaxBatchSize {
		return handler.Error(fmt.Errorf("%w: %w: %d header sets, at most %d",
			handler.ErrRequestTooLarge, ErrBatchTooLarge, len(req.Requests), MaxBatchSize))
	}
	if key := clientip.FromContext(ctx); d.limiter != nil && key != "" {
		cost := min(max(len(req.Requests), 1), d.limiter.Capacity())
		if err := ratelimiter.Check(ctx.ResponseWriter(), ctx.Request(), d.limiter, key, cost); err != nil {
			return handler.Error(err)
		}
	}

	limit := req.Limit
	if limit <= 0 || limit > DefaultBatchConcurrency {
		limit = DefaultBatchConcurrency
	}

	matches, err := d.DetectAll(ctx, req.Requests, limit)
	if err != nil {
		return handler.Error(err)
	}
	devices := make([]Device, len(matches))
	for i, m := range matches {
		if devices[i], err = d.Describe(m, req.Properties...); err != nil {
			return handler.Error(err)
		}
	}
	return handler.JSON(devices, handler.WithJSONMeta(map[string]any{"count": len(devices)}))
}
