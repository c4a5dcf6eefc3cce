package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements the Provider interface using Prometheus
type PrometheusProvider struct {
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	requestsInFlight  prometheus.Gauge
	dbQueryDuration   *prometheus.HistogramVec
	dbQueryTotal      *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationTotal    *prometheus.CounterVec
	dependencyNodes   *prometheus.CounterVec
	deletes           *prometheus.CounterVec
	panics            *prometheus.CounterVec
	handler           http.Handler
}

// NewPrometheusProvider creates a new Prometheus metrics provider registered on the default registry
func NewPrometheusProvider(cfg *Config) *PrometheusProvider {
	return NewPrometheusProviderWithRegistry(cfg, prometheus.DefaultRegisterer, promhttp.Handler())
}

// NewPrometheusProviderWithRegistry registers the collectors on reg and serves them with handler
func NewPrometheusProviderWithRegistry(cfg *Config, reg prometheus.Registerer, handler http.Handler) *PrometheusProvider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	factory := promauto.With(reg)
	ns := cfg.Namespace

	return &PrometheusProvider{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   cfg.HTTPRequestBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   cfg.OperationBuckets,
			},
			[]string{"operation", "table"},
		),
		dbQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "record_operation_duration_seconds",
				Help:      "Record access operation duration in seconds",
				Buckets:   cfg.OperationBuckets,
			},
			[]string{"operation"},
		),
		operationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "record_operations_total",
				Help:      "Total number of record access operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		dependencyNodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "record_dependency_nodes_total",
				Help:      "Descendant tables evaluated by dependency previews",
			},
			[]string{"accessible"},
		),
		deletes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "record_deletes_total",
				Help:      "Delete calls by mode and outcome",
			},
			[]string{"cascade", "outcome"},
		),
		panics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "panics_total",
				Help:      "Recovered panics by location",
			},
			[]string{"location"},
		),
		handler: handler,
	}
}

// ResponseWriter wraps http.ResponseWriter to capture status code
type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordHTTPRequest implements Provider interface
func (p *PrometheusProvider) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	p.requestTotal.WithLabelValues(method, path, status).Inc()
}

// IncRequestsInFlight implements Provider interface
func (p *PrometheusProvider) IncRequestsInFlight() {
	p.requestsInFlight.Inc()
}

// DecRequestsInFlight implements Provider interface
func (p *PrometheusProvider) DecRequestsInFlight() {
	p.requestsInFlight.Dec()
}

// RecordDBQuery implements Provider interface
func (p *PrometheusProvider) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	p.dbQueryTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordOperation implements Provider interface
func (p *PrometheusProvider) RecordOperation(operation, outcome string, duration time.Duration) {
	p.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	p.operationTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordDependencyNode implements Provider interface
func (p *PrometheusProvider) RecordDependencyNode(accessible bool) {
	p.dependencyNodes.WithLabelValues(strconv.FormatBool(accessible)).Inc()
}

// RecordDelete implements Provider interface
func (p *PrometheusProvider) RecordDelete(cascade bool, outcome string) {
	p.deletes.WithLabelValues(strconv.FormatBool(cascade), outcome).Inc()
}

// RecordPanic implements Provider interface
func (p *PrometheusProvider) RecordPanic(location string) {
	p.panics.WithLabelValues(location).Inc()
}

// Handler implements Provider interface
func (p *PrometheusProvider) Handler() http.Handler {
	return p.handler
}

// Middleware returns an HTTP middleware that collects metrics.
// Path labels use the matched route template when routeName returns one.
func (p *PrometheusProvider) Middleware(routeName func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			p.IncRequestsInFlight()
			defer p.DecRequestsInFlight()

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if routeName != nil {
				if name := routeName(r); name != "" {
					path = name
				}
			}
			p.RecordHTTPRequest(r.Method, path, strconv.Itoa(rw.statusCode), time.Since(start))
		})
	}
}
