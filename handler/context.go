package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/devicedetect/pkg/detection"
)

// Context gives handlers the request, the response writer and the device
// match stored by detection.Middleware.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// Match returns the match for the request headers, or nil when no
	// detection middleware ran or detection failed.
	Match() *detection.Match
}

// NewContext creates the default Context.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{w: w, r: r}
}

type httpContext struct {
	w http.ResponseWriter
	r *http.Request
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }

func (c *httpContext) Match() *detection.Match {
	return detection.GetMatchFromContext(c.r.Context())
}

func (c *httpContext) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *httpContext) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *httpContext) Err() error                  { return c.r.Context().Err() }
func (c *httpContext) Value(key any) any           { return c.r.Context().Value(key) }
