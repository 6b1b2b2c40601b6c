package ratelimiter

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
)

// KeyFunc extracts a rate limit key from the request.
type KeyFunc func(r *http.Request) string

// DenyFunc writes the response for a request that was refused or whose
// check failed. err wraps ErrLimitExceeded for refused requests.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// SetHeaders writes the X-RateLimit-* headers of res, and Retry-After when
// the request was denied.
func SetHeaders(w http.ResponseWriter, res *Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed() {
		// round up so clients never retry early
		secs := int(math.Ceil(res.RetryAfter().Seconds()))
		h.Set("Retry-After", strconv.Itoa(max(secs, 1)))
	}
}

// Check takes n tokens for key, sets the response headers and returns an
// error wrapping ErrLimitExceeded when the request must be refused.
func Check(w http.ResponseWriter, r *http.Request, l Limiter, key string, n int) error {
	res, err := l.AllowN(r.Context(), key, n)
	if err != nil {
		return err
	}
	SetHeaders(w, res)
	if !res.Allowed() {
		return fmt.Errorf("%w: retry after %ss", ErrLimitExceeded, w.Header().Get("Retry-After"))
	}
	return nil
}

// Middleware takes one token per request. Requests with an empty key are
// not limited. A nil deny writes plain text errors.
func Middleware(l Limiter, key KeyFunc, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = defaultDeny
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err := Check(w, r, l, k, 1); err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, ErrLimitExceeded) {
		code = http.StatusTooManyRequests
	}
	http.Error(w, http.StatusText(code), code)
}
