package recordapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/dbmanager"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
	"github.com/bitechdev/RecordSpec/pkg/sqlstore"
)

// ConnectionHeader names the dbmanager connection a request runs against.
// Requests without it use the default connection.
const ConnectionHeader = "X-Connection"

// Handler serves the record access API over the connections of a manager
type Handler struct {
	manager dbmanager.Manager
	engine  *recordaccess.Engine
}

// NewHandler creates a new API handler
func NewHandler(manager dbmanager.Manager, engine *recordaccess.Engine) *Handler {
	if engine == nil {
		engine = NewEngine(config.EngineConfig{})
	}
	return &Handler{
		manager: manager,
		engine:  engine,
	}
}

// NewEngine builds the record access engine from configuration
func NewEngine(cfg config.EngineConfig) *recordaccess.Engine {
	return recordaccess.NewEngine(
		recordaccess.WithDefaultLimit(cfg.DefaultLimit),
		recordaccess.WithMaxLimit(cfg.MaxLimit),
		recordaccess.WithFetchBlobs(cfg.FetchBlobs),
		recordaccess.WithTableDisplayName(sqlstore.DisplayTableName),
	)
}

// Engine returns the engine the handler runs operations with
func (h *Handler) Engine() *recordaccess.Engine {
	return h.engine
}

// Catalog resolves the catalog of the connection named by the request
func (h *Handler) Catalog(r common.Request) (recordaccess.Catalog, error) {
	return h.CatalogFor(r.Header(ConnectionHeader))
}

// CatalogFor resolves the catalog of a named connection, or of the default
// connection when name is empty
func (h *Handler) CatalogFor(name string) (recordaccess.Catalog, error) {
	catalog, err := h.manager.Catalog(name)
	if err != nil {
		return nil, dbmanager.ClassifyResolveError(name, err)
	}
	return catalog, nil
}

// Table resolves a table handle on the connection named by the request
func (h *Handler) Table(ctx context.Context, r common.Request, schema, table string) (recordaccess.Table, error) {
	catalog, err := h.Catalog(r)
	if err != nil {
		return nil, err
	}
	t, err := catalog.Table(ctx, schema, table)
	if err != nil {
		return nil, common.NewInternalError("resolve table", err)
	}
	return t, nil
}

// handlePanic turns a recovered panic into a 500 response
func (h *Handler) handlePanic(ctx context.Context, w common.ResponseWriter, method string, err interface{}) {
	metrics.GetProvider().RecordPanic(method)
	_ = logger.HandlePanicContext(ctx, method, err)
	logger.Debug("Stack trace for panic in %s:\n%s", method, string(debug.Stack()))
	SendError(w, common.NewInternalError(method, fmt.Errorf("internal server error in %s", method)))
}

// HandleListSchemas lists the schemas of the connection
func (h *Handler) HandleListSchemas(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleListSchemas", err)
		}
	}()

	catalog, err := h.Catalog(r)
	if err != nil {
		SendError(w, err)
		return
	}
	schemas, err := catalog.ListSchemas(ctx)
	if err != nil {
		SendError(w, common.NewInternalError("list schemas", err))
		return
	}
	if schemas == nil {
		schemas = []string{}
	}
	SendResponse(w, http.StatusOK, common.SchemaListing{Schemas: schemas})
}

// HandleListTables lists the tables of a schema grouped by tier
func (h *Handler) HandleListTables(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleListTables", err)
		}
	}()

	catalog, err := h.Catalog(r)
	if err != nil {
		SendError(w, err)
		return
	}
	tables, err := catalog.ListTables(ctx, r.PathParam("schema"))
	if err != nil {
		SendError(w, common.NewInternalError("list tables", err))
		return
	}
	SendResponse(w, http.StatusOK, tables)
}

// HandleFetch returns one page of restricted records
func (h *Handler) HandleFetch(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleFetch", err)
		}
	}()

	schema, table := r.PathParam("schema"), r.PathParam("table")
	logger.Debug("Handling fetch for %s.%s", schema, table)

	req, err := ParseFetchRequest(r)
	if err != nil {
		SendError(w, err)
		return
	}
	t, err := h.Table(ctx, r, schema, table)
	if err != nil {
		SendError(w, err)
		return
	}
	resp, err := h.engine.Fetch(ctx, t, req)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, resp)
}

// HandleInsert inserts the rows of the request body in one transaction
func (h *Handler) HandleInsert(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleInsert", err)
		}
	}()

	rows, err := ReadRows(r)
	if err != nil {
		SendError(w, err)
		return
	}
	t, err := h.Table(ctx, r, r.PathParam("schema"), r.PathParam("table"))
	if err != nil {
		SendError(w, err)
		return
	}
	n, err := h.engine.Insert(ctx, t, rows)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, common.MessageResponse{Message: "Insert successful", Count: n})
}

// HandleUpdate updates rows identified by their primary key
func (h *Handler) HandleUpdate(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleUpdate", err)
		}
	}()

	rows, err := ReadRows(r)
	if err != nil {
		SendError(w, err)
		return
	}
	t, err := h.Table(ctx, r, r.PathParam("schema"), r.PathParam("table"))
	if err != nil {
		SendError(w, err)
		return
	}
	n, err := h.engine.Update(ctx, t, rows)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, common.MessageResponse{Message: "Update successful", Count: n})
}

// HandleDelete deletes the restricted rows, cascading when asked to
func (h *Handler) HandleDelete(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleDelete", err)
		}
	}()

	req, err := ParseDeleteRequest(r)
	if err != nil {
		SendError(w, err)
		return
	}
	t, err := h.Table(ctx, r, r.PathParam("schema"), r.PathParam("table"))
	if err != nil {
		SendError(w, err)
		return
	}
	n, err := h.engine.Delete(ctx, t, req)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, common.MessageResponse{Message: "Delete successful", Count: n})
}

// HandleAttributes describes the attributes of a table
func (h *Handler) HandleAttributes(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleAttributes", err)
		}
	}()

	req, err := ParseAttributesRequest(r)
	if err != nil {
		SendError(w, err)
		return
	}
	t, err := h.Table(ctx, r, r.PathParam("schema"), r.PathParam("table"))
	if err != nil {
		SendError(w, err)
		return
	}
	resp, err := h.engine.Attributes(ctx, t, req)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, resp)
}

// HandleDependency previews the rows a delete of the restriction would reach
func (h *Handler) HandleDependency(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleDependency", err)
		}
	}()

	clauses, err := ParseRestriction(r)
	if err != nil {
		SendError(w, err)
		return
	}
	t, err := h.Table(ctx, r, r.PathParam("schema"), r.PathParam("table"))
	if err != nil {
		SendError(w, err)
		return
	}
	resp, err := h.engine.Dependencies(ctx, t, clauses)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, resp)
}

// HandleDefinition returns the definition text of a table
func (h *Handler) HandleDefinition(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(ctx, w, "HandleDefinition", err)
		}
	}()

	t, err := h.Table(ctx, r, r.PathParam("schema"), r.PathParam("table"))
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, http.StatusOK, common.DefinitionResponse{Definition: t.Definition()})
}

// HealthResponse reports the health of every managed connection
type HealthResponse struct {
	Status      string            `json:"status"`
	Connections map[string]string `json:"connections"`
}

// HandleHealth checks every connection and answers 503 when any is unhealthy
func (h *Handler) HandleHealth(w common.ResponseWriter, r common.Request) {
	ctx := r.Context()

	resp := HealthResponse{Status: "healthy", Connections: map[string]string{}}
	status := http.StatusOK
	if err := h.manager.HealthCheck(ctx); err != nil {
		logger.Warn("Health check failed: %v", err)
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	for name, stats := range h.manager.Stats().ConnectionStats {
		resp.Connections[name] = stats.HealthCheckStatus
	}
	SendResponse(w, status, resp)
}

// HandleMetrics serves the active metrics provider
func (h *Handler) HandleMetrics(w common.ResponseWriter, r common.Request) {
	metrics.GetProvider().Handler().ServeHTTP(w.UnderlyingResponseWriter(), r.UnderlyingRequest())
}

// SendResponse writes body as JSON with the given status
func SendResponse(w common.ResponseWriter, status int, body interface{}) {
	w.SetHeader("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := w.WriteJSON(body); err != nil {
		logger.Error("Error sending response: %v", err)
	}
}

// SendError writes err as an error body with the status of its kind.
// Blocked deletes name the child table; retryable conflicts carry Retry-After.
func SendError(w common.ResponseWriter, err error) {
	kind := common.Kind(err)
	body := common.ErrorResponse{
		Error:        kind,
		ErrorMessage: err.Error(),
	}

	var integrity *common.IntegrityConflictError
	if errors.As(err, &integrity) {
		body.ChildSchema = integrity.ChildSchema
		body.ChildTable = integrity.ChildTable
	}
	if kind == common.KindConflict {
		w.SetHeader("Retry-After", "0")
	}

	status := StatusForKind(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	} else {
		logger.Debug("Request rejected (%s): %v", kind, err)
	}
	SendResponse(w, status, body)
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind string) int {
	switch kind {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindAccessDenied:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindIntegrityConflict, common.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// truthy reads a boolean query flag. Only a case-insensitive "true" is set.
func truthy(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
