package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

func TestMuxAdapterPassesPathParams(t *testing.T) {
	adapter := NewMuxAdapter(mux.NewRouter())

	var gotSchema, gotTable, gotLimit, gotTemplate string
	adapter.HandleFunc("/schemas/{schema}/tables/{table}", func(w common.ResponseWriter, r common.Request) {
		gotSchema = r.PathParam("schema")
		gotTable = r.PathParam("table")
		gotLimit = r.QueryParam("limit")
		gotTemplate = RouteTemplate(r.UnderlyingRequest())
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	adapter.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schemas/lab/tables/Session?limit=5", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "lab", gotSchema)
	assert.Equal(t, "Session", gotTable)
	assert.Equal(t, "5", gotLimit)
	assert.Equal(t, "/schemas/{schema}/tables/{table}", gotTemplate)
}

func TestMuxAdapterMethodFilter(t *testing.T) {
	adapter := NewMuxAdapter(mux.NewRouter())
	adapter.HandleFunc("/health", func(w common.ResponseWriter, r common.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	adapter.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouteTemplateFallsBackToPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/unrouted", nil)
	assert.Equal(t, "/unrouted", RouteTemplate(r))
}
