package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpansWithoutTracer(t *testing.T) {
	ctx, span := StartTableSpan(context.Background(), "fetch", "lab", "session")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })
}

func TestMiddlewarePassesThroughWithoutTracer(t *testing.T) {
	called := false
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := Config{SampleRatio: tt.ratio}.sampler().Description()
		assert.Contains(t, got, tt.want)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusConflict)
	assert.Equal(t, http.StatusConflict, rec.status)
}
