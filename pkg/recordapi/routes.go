package recordapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/common/adapters/router"
)

// MiddlewareFunc is a function that wraps an http.Handler with additional functionality
type MiddlewareFunc func(http.Handler) http.Handler

// RegisterRoutes registers the fixed API routes under prefix on any common.Router
func RegisterRoutes(r common.Router, handler *Handler, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	tablePath := prefix + "/schemas/{schema}/tables/{table}"

	r.HandleFunc(prefix+"/schemas", handler.HandleListSchemas).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/schemas/{schema}/tables", handler.HandleListTables).Methods(http.MethodGet)

	r.HandleFunc(tablePath+"/records", handler.HandleFetch).Methods(http.MethodGet)
	r.HandleFunc(tablePath+"/records", handler.HandleInsert).Methods(http.MethodPost)
	r.HandleFunc(tablePath+"/records", handler.HandleUpdate).Methods(http.MethodPatch)
	r.HandleFunc(tablePath+"/records", handler.HandleDelete).Methods(http.MethodDelete)
	r.HandleFunc(tablePath+"/attributes", handler.HandleAttributes).Methods(http.MethodGet)
	r.HandleFunc(tablePath+"/dependency", handler.HandleDependency).Methods(http.MethodGet)
	r.HandleFunc(tablePath+"/definition", handler.HandleDefinition).Methods(http.MethodGet)

	r.HandleFunc(prefix+"/health", handler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/metrics", handler.HandleMetrics).Methods(http.MethodGet)
}

// SetupMuxRoutes sets up the API routes on a gorilla/mux router.
// Middlewares, if any, wrap every route in the order given.
// Example: SetupMuxRoutes(r, handler, "/api", middleware.PanicRecovery)
func SetupMuxRoutes(muxRouter *mux.Router, handler *Handler, prefix string, middlewares ...MiddlewareFunc) {
	for _, mw := range middlewares {
		if mw != nil {
			muxRouter.Use(mux.MiddlewareFunc(mw))
		}
	}
	RegisterRoutes(router.NewMuxAdapter(muxRouter), handler, prefix)
}
