package metrics

import (
	"net/http"
	"time"

	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// Provider defines the interface for metric collection
type Provider interface {
	// RecordHTTPRequest records metrics for an HTTP request
	RecordHTTPRequest(method, path, status string, duration time.Duration)

	// IncRequestsInFlight increments the in-flight requests counter
	IncRequestsInFlight()

	// DecRequestsInFlight decrements the in-flight requests counter
	DecRequestsInFlight()

	// RecordDBQuery records metrics for a database query
	RecordDBQuery(operation, table string, duration time.Duration, err error)

	// RecordOperation records one record-access engine call and its outcome (error kind or "ok")
	RecordOperation(operation, outcome string, duration time.Duration)

	// RecordDependencyNode records one evaluated node of a dependency preview
	RecordDependencyNode(accessible bool)

	// RecordDelete records the outcome of a delete
	RecordDelete(cascade bool, outcome string)

	// RecordPanic records a recovered panic at location
	RecordPanic(location string)

	// Handler returns an HTTP handler for exposing metrics (e.g., /metrics endpoint)
	Handler() http.Handler
}

// globalProvider is the global metrics provider
var globalProvider Provider

// SetProvider sets the global metrics provider
func SetProvider(p Provider) {
	globalProvider = p
}

// GetProvider returns the current metrics provider
func GetProvider() Provider {
	if globalProvider == nil {
		// Return no-op provider if none is set
		return &NoOpProvider{}
	}
	return globalProvider
}

// NoOpProvider is a no-op implementation of Provider
type NoOpProvider struct{}

func (n *NoOpProvider) RecordHTTPRequest(method, path, status string, duration time.Duration) {}
func (n *NoOpProvider) IncRequestsInFlight()                                                  {}
func (n *NoOpProvider) DecRequestsInFlight()                                                  {}
func (n *NoOpProvider) RecordDBQuery(operation, table string, duration time.Duration, err error) {
}
func (n *NoOpProvider) RecordOperation(operation, outcome string, duration time.Duration) {}
func (n *NoOpProvider) RecordDependencyNode(accessible bool)                              {}
func (n *NoOpProvider) RecordDelete(cascade bool, outcome string)                         {}
func (n *NoOpProvider) RecordPanic(location string)                                       {}
func (n *NoOpProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Metrics provider not configured"))
		if err != nil {
			logger.Warn("Failed to write. %v", err)
		}
	})
}
