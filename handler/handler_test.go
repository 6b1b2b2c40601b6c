package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect/binder"
	"github.com/dmitrymomot/devicedetect/handler"
	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
	"github.com/dmitrymomot/devicedetect/pkg/ratelimiter"
)

type lookupRequest struct {
	UserAgent string `query:"ua"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap(t *testing.T) {
	h := handler.Wrap(
		func(ctx handler.Context, req lookupRequest) handler.Response {
			return handler.JSON(map[string]string{"ua": req.UserAgent})
		},
		handler.WithBinders[handler.Context, lookupRequest](binder.BindQuery()),
	)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/detect?ua=curl", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"ua":"curl"}}`, rec.Body.String())
}

func TestWrap_Decorators(t *testing.T) {
	var order []string
	trace := func(name string) handler.Decorator[handler.Context, struct{}] {
		return func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	h := handler.Wrap(
		func(handler.Context, struct{}) handler.Response {
			order = append(order, "handler")
			return handler.JSON("ok")
		},
		handler.WithDecorators(trace("outer"), trace("inner")),
	)

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestWrap_Errors(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return nil })
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, handler.ErrNilResponse.Error(), decode(t, rec).Error.Message)
	})

	t.Run("binder error stops the handler", func(t *testing.T) {
		called := false
		var handled error
		h := handler.Wrap(
			func(handler.Context, struct{}) handler.Response {
				called = true
				return handler.JSON("ok")
			},
			handler.WithBinders[handler.Context, struct{}](func(*http.Request, any) error { return binder.ErrInvalidQuery }),
			handler.WithErrorHandler[handler.Context, struct{}](func(ctx handler.Context, err error) {
				handled = err
				ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
			}),
		)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, called)
		assert.ErrorIs(t, handled, binder.ErrInvalidQuery)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

func TestJSONError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_server_error", "boom"},
		{"bare http error", handler.ErrNotFound, http.StatusNotFound, "not_found", "Not Found"},
		{"wrapped http error", fmt.Errorf("%w: no such property", handler.ErrBadRequest), http.StatusBadRequest, "bad_request", "bad_request: no such property"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, handler.JSONError(tt.err).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}

	t.Run("options", func(t *testing.T) {
		rec := httptest.NewRecorder()
		resp := handler.JSON([]int{1}, handler.WithJSONStatus(http.StatusAccepted), handler.WithJSONMeta(map[string]any{"count": 1}))
		require.NoError(t, resp.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"data":[1],"meta":{"count":1}}`, rec.Body.String())
	})
}

func TestNewErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid json", fmt.Errorf("%w: empty body", binder.ErrInvalidJSON), http.StatusBadRequest, "bad_request"},
		{"media type", binder.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type"},
		{"unknown method", detection.ErrUnknownMethod, http.StatusBadRequest, "bad_request"},
		{"unknown property", fmt.Errorf("%w: Colour", dataset.ErrPropertyNotFound), http.StatusNotFound, "property_not_found"},
		{"closed dataset", dataset.ErrClosed, http.StatusServiceUnavailable, "service_unavailable"},
		{"rate limited", fmt.Errorf("%w: retry after 2s", ratelimiter.ErrLimitExceeded), http.StatusTooManyRequests, "too_many_requests"},
		{"limit store down", ratelimiter.ErrStoreUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"corrupt dataset", dataset.ErrCorruptDataset, http.StatusInternalServerError, "internal_server_error"},
	}
	eh := handler.NewErrorHandler(logger.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/detect", nil)
			eh(handler.NewContext(rec, req), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.status >= http.StatusInternalServerError {
				assert.Equal(t, http.StatusText(tt.status), body.Error.Message)
			} else {
				assert.True(t, strings.HasPrefix(body.Error.Message, tt.code))
			}
		})
	}
}

func TestContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	ctx := handler.NewContext(rec, req)
	assert.Same(t, req, ctx.Request())
	assert.Nil(t, ctx.Match())
	assert.NoError(t, ctx.Err())

	m := &detection.Match{}
	req = req.WithContext(detection.SetMatchToContext(req.Context(), m))
	assert.Same(t, m, handler.NewContext(rec, req).Match())
}

func TestError(t *testing.T) {
	var handled error
	h := handler.Wrap(
		func(handler.Context, struct{}) handler.Response {
			return handler.Error(dataset.ErrClosed)
		},
		handler.WithErrorHandler[handler.Context, struct{}](func(ctx handler.Context, err error) {
			handled = err
			handler.NewErrorHandler(logger.Discard())(ctx, err)
		}),
	)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.ErrorIs(t, handled, dataset.ErrClosed)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
