package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect/binder"
)

type lookup struct {
	UserAgent  string   `query:"ua"`
	Properties []string `query:"property"`
	Limit      int      `query:"limit"`
	Ratio      float64  `query:"ratio"`
	Exact      bool     `query:"exact"`
	Skipped    string   `query:"-"`
	untagged   string
}

func TestBindQuery(t *testing.T) {
	bind := binder.BindQuery()

	t.Run("all types", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/detect?ua=Opera%2F9.80&property=IsMobile,HardwareModel&property=BrowserName&limit=4&ratio=0.5&exact=true&Skipped=x", nil)
		req := lookup{Limit: 1}
		require.NoError(t, bind(r, &req))

		assert.Equal(t, "Opera/9.80", req.UserAgent)
		assert.Equal(t, []string{"IsMobile", "HardwareModel", "BrowserName"}, req.Properties)
		assert.Equal(t, 4, req.Limit)
		assert.InDelta(t, 0.5, req.Ratio, 1e-9)
		assert.True(t, req.Exact)
		assert.Empty(t, req.Skipped)
		assert.Empty(t, req.untagged)
	})

	t.Run("defaults kept", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/detect", nil)
		req := lookup{Limit: 7}
		require.NoError(t, bind(r, &req))
		assert.Equal(t, 7, req.Limit)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
		}{
			{"int", "limit=ten"},
			{"bool", "exact=maybe"},
			{"float", "ratio=half"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, "/detect?"+tt.query, nil)
				var req lookup
				assert.ErrorIs(t, bind(r, &req), binder.ErrInvalidQuery)
			})
		}
	})

	t.Run("target", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/detect", nil)
		assert.ErrorIs(t, bind(r, lookup{}), binder.ErrInvalidTarget)
		assert.ErrorIs(t, bind(r, (*lookup)(nil)), binder.ErrInvalidTarget)
	})
}

type batch struct {
	Requests []map[string]string `json:"requests"`
	Limit    int                 `json:"limit"`
}

func TestBindJSON(t *testing.T) {
	bind := binder.BindJSON(1 << 10)

	tests := []struct {
		name        string
		contentType string
		body        string
		err         error
	}{
		{"valid", "application/json; charset=utf-8", `{"requests":[{"User-Agent":"x"}],"limit":2}`, nil},
		{"missing content type", "", `{}`, binder.ErrMissingContentType},
		{"wrong media type", "text/plain", `{}`, binder.ErrUnsupportedMediaType},
		{"empty body", "application/json", ``, binder.ErrInvalidJSON},
		{"unknown field", "application/json", `{"requests":[],"extra":1}`, binder.ErrInvalidJSON},
		{"trailing data", "application/json", `{"requests":[]} {}`, binder.ErrInvalidJSON},
		{"too large", "application/json", `{"requests":[{"User-Agent":"` + strings.Repeat("a", 2048) + `"}]}`, binder.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var req batch
			err := bind(r, &req)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []map[string]string{{"User-Agent": "x"}}, req.Requests)
			assert.Equal(t, 2, req.Limit)
		})
	}
}
