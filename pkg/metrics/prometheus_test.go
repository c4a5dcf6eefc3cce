package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*PrometheusProvider, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.Namespace = "test"
	return NewPrometheusProviderWithRegistry(cfg, reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})), reg
}

func TestPrometheusProviderRecords(t *testing.T) {
	p, _ := newTestProvider(t)

	p.RecordDBQuery("count", "table_a", 5*time.Millisecond, nil)
	p.RecordDBQuery("count", "table_a", time.Millisecond, errors.New("boom"))
	p.RecordDependencyNode(true)
	p.RecordDependencyNode(false)
	p.RecordDependencyNode(true)
	p.RecordDelete(true, "ok")
	p.RecordOperation("fetch", "ok", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.dbQueryTotal.WithLabelValues("count", "table_a", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.dbQueryTotal.WithLabelValues("count", "table_a", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.dependencyNodes.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.dependencyNodes.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.deletes.WithLabelValues("true", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.operationTotal.WithLabelValues("fetch", "ok")))
}

func TestPrometheusMiddlewareUsesRouteName(t *testing.T) {
	p, _ := newTestProvider(t)

	handler := p.Middleware(func(*http.Request) string { return "/schemas/{schema}" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schemas/lab", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requestTotal.WithLabelValues("GET", "/schemas/{schema}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.requestsInFlight))
}

func TestHandlerServesRegistry(t *testing.T) {
	p, _ := newTestProvider(t)
	p.RecordDelete(false, "NotFound")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_record_deletes_total")
}

func TestNoOpProvider(t *testing.T) {
	var p Provider = &NoOpProvider{}
	p.RecordDelete(true, "ok")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewProviderFromConfig(t *testing.T) {
	_, ok := NewProviderFromConfig(Config{Enabled: false}).(*NoOpProvider)
	assert.True(t, ok)

	_, ok = NewProviderFromConfig(Config{Enabled: true, Provider: "noop"}).(*NoOpProvider)
	assert.True(t, ok)

	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "prometheus", cfg.Provider)
	assert.Equal(t, "recordspec", cfg.Namespace)
	assert.NotEmpty(t, cfg.OperationBuckets)
}
