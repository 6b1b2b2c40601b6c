package devicedetect_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect"
	"github.com/dmitrymomot/devicedetect/handler"
	"github.com/dmitrymomot/devicedetect/pkg/dataset/datasettest"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/ratelimiter"
	"github.com/dmitrymomot/devicedetect/pkg/requestid"
)

type envelope[T any] struct {
	Data  T                    `json:"data"`
	Meta  map[string]any       `json:"meta"`
	Error *handler.ErrorDetail `json:"error"`
}

func serve(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestAPI_Detect(t *testing.T) {
	d := open(t, nil)
	h := d.Handler()

	t.Run("request headers", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/detect", nil)
		r.Header.Set("User-Agent", pixelUA)
		rec := serve(t, h, r)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(requestid.Header))
		dev := decodeBody[devicedetect.Device](t, rec).Data
		assert.Equal(t, detection.MethodExact, dev.Method)
		assert.Equal(t, "RESULT_FOUND", dev.State)
		assert.Equal(t, pixelUA, dev.Signature)
		assert.Equal(t, datasettest.RankPixelChrome, dev.Rank)
		assert.Equal(t, "Pixel 5", dev.Values[datasettest.PropertyHardwareModel])
		assert.Equal(t, "True", dev.Values[datasettest.PropertyIsMobile])
		assert.Equal(t, "45", dev.Values[datasettest.PropertyBrowserVersion])
		assert.Len(t, dev.Values, 6)
	})

	t.Run("query user agent and properties", func(t *testing.T) {
		q := url.Values{"ua": {operaUA}, "property": {"BrowserName,BrowserVersion"}}
		rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/detect?"+q.Encode(), nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		dev := decodeBody[devicedetect.Device](t, rec).Data
		assert.Equal(t, map[string]string{
			datasettest.PropertyBrowserName:    "Opera Mini",
			datasettest.PropertyBrowserVersion: "50|50.0",
		}, dev.Values)
	})

	t.Run("no headers", func(t *testing.T) {
		rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/detect", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		dev := decodeBody[devicedetect.Device](t, rec).Data
		assert.Equal(t, "NO_MATCH", dev.State)
		assert.Equal(t, detection.MethodNone, dev.Method)
		assert.Empty(t, dev.Values)
	})

	t.Run("unknown property", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/detect?property=Colour", nil)
		r.Header.Set("User-Agent", iphoneUA)
		rec := serve(t, h, r)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody[devicedetect.Device](t, rec)
		require.NotNil(t, body.Error)
		assert.Equal(t, "property_not_found", body.Error.Code)
	})
}

func TestAPI_DetectLookups(t *testing.T) {
	tests := []struct {
		name   string
		wrap   bool
		query  string
		header string
		want   string
	}{
		{"query user agent over request header", false, operaUA, pixelUA, "Opera Mini"},
		{"request header", false, "", pixelUA, "Chrome"},
		{"outer middleware match reused", true, "", pixelUA, "Chrome"},
		{"outer middleware with query user agent", true, operaUA, pixelUA, "Opera Mini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := open(t, nil)
			h := d.Handler()
			if tt.wrap {
				h = d.Middleware()(h)
			}

			target := "/detect?property=" + datasettest.PropertyBrowserName
			if tt.query != "" {
				target += "&" + url.Values{"ua": {tt.query}}.Encode()
			}
			r := httptest.NewRequest(http.MethodGet, target, nil)
			r.Header.Set("User-Agent", tt.header)
			rec := serve(t, h, r)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decodeBody[devicedetect.Device](t, rec).Data.Values[datasettest.PropertyBrowserName])

			lookups := uint64(1)
			if tt.wrap && tt.query != "" {
				lookups = 2
			}
			assert.Equal(t, lookups, d.Stats().Results.Requests)
		})
	}
}

func TestAPI_Batch(t *testing.T) {
	d := open(t, nil)
	h := d.Handler()

	post := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/detect/batch", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		return serve(t, h, r)
	}

	t.Run("ok", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{
			"requests": []map[string]string{
				{"User-Agent": pixelUA},
				{"User-Agent": iphoneUA, "X-Operamini-Phone-UA": pixelUA},
				{"User-Agent": "curl/8.0"},
			},
			"properties": []string{datasettest.PropertyHardwareModel},
			"limit":      2,
		})
		require.NoError(t, err)
		rec := post(string(body))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		env := decodeBody[[]devicedetect.Device](t, rec)
		require.Len(t, env.Data, 3)
		assert.InDelta(t, 3, env.Meta["count"], 0)
		assert.Equal(t, "Pixel 5", env.Data[0].Values[datasettest.PropertyHardwareModel])
		assert.Equal(t, "Pixel 5", env.Data[1].Values[datasettest.PropertyHardwareModel])
		assert.Empty(t, env.Data[1].Signature)
		assert.Equal(t, "NO_MATCH", env.Data[2].State)
	})

	t.Run("wrong media type", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/detect/batch", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "text/plain")
		assert.Equal(t, http.StatusUnsupportedMediaType, serve(t, h, r).Code)
	})

	t.Run("malformed", func(t *testing.T) {
		rec := post(`{"requests": [`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		reqs := make([]map[string]string, devicedetect.MaxBatchSize+1)
		for i := range reqs {
			reqs[i] = map[string]string{}
		}
		body, err := json.Marshal(map[string]any{"requests": reqs})
		require.NoError(t, err)
		rec := post(string(body))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestAPI_RateLimit(t *testing.T) {
	d := open(t, func(c *devicedetect.Config) {
		c.RateLimit = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour}
		c.TrustedIPHeaders = []string{"X-Real-IP"}
	})
	h := d.Handler()

	detect := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/detect", nil)
		r.Header.Set("User-Agent", pixelUA)
		r.Header.Set("X-Real-IP", ip)
		return serve(t, h, r)
	}
	batch := func(ip string, n int) *httptest.ResponseRecorder {
		reqs := make([]map[string]string, n)
		for i := range reqs {
			reqs[i] = map[string]string{"User-Agent": pixelUA}
		}
		body, err := json.Marshal(map[string]any{"requests": reqs})
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodPost, "/detect/batch", strings.NewReader(string(body)))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Real-IP", ip)
		return serve(t, h, r)
	}

	rec := detect("198.51.100.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

	rec = batch("198.51.100.1", 2)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = detect("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	env := decodeBody[json.RawMessage](t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "too_many_requests", env.Error.Code)

	// batches larger than the bucket cost the whole bucket
	rec = batch("198.51.100.2", 10)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusTooManyRequests, batch("198.51.100.2", 1).Code)

	// unlimited endpoints
	assert.Equal(t, http.StatusOK, serve(t, h, httptest.NewRequest(http.MethodGet, "/stats", nil)).Code)
}

func TestAPI_StatsAndHealth(t *testing.T) {
	d := open(t, nil)
	h := d.Handler()

	r := httptest.NewRequest(http.MethodGet, "/detect", nil)
	r.Header.Set("User-Agent", iphoneUA)
	require.Equal(t, http.StatusOK, serve(t, h, r).Code)

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[devicedetect.Stats](t, rec).Data
	assert.Equal(t, "3.2", st.Version)
	assert.Equal(t, uint64(1), st.Results.Requests)
	assert.Contains(t, st.Collections, "nodes")

	assert.Equal(t, http.StatusOK, serve(t, h, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)

	require.NoError(t, d.Close())

	assert.Equal(t, http.StatusOK, serve(t, h, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)

	r = httptest.NewRequest(http.MethodGet, "/detect", nil)
	r.Header.Set("User-Agent", iphoneUA)
	rec = serve(t, h, r)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service_unavailable", decodeBody[devicedetect.Device](t, rec).Error.Code)
}
