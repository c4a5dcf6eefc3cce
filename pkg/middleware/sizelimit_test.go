package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSizeLimiter(t *testing.T) {
	limiter := NewRequestSizeLimiter(16)

	var readErr error
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("small body passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, readErr)
		assert.Equal(t, "16", rec.Header().Get(MaxRequestSizeHeader))
	})

	t.Run("declared oversize body is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "RequestTooLarge")
	})

	t.Run("undeclared oversize body fails on read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Error(t, readErr)
		var maxErr *http.MaxBytesError
		assert.ErrorAs(t, readErr, &maxErr)
	})
}

func TestRequestSizeLimiterDefault(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxRequestSize), NewRequestSizeLimiter(0).maxSize)
}
