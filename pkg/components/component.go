// Package components mounts endpoints declared in configuration. Each
// component binds one route to one table operation, optionally narrowed by a
// default restriction.
package components

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
	"github.com/bitechdev/RecordSpec/pkg/recordapi"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// Kind tags what a component does with its table
type Kind string

const (
	KindFetch      Kind = "fetch"
	KindAttributes Kind = "attributes"
	KindDependency Kind = "dependency"
	KindInsert     Kind = "insert"
	KindUpdate     Kind = "update"
	KindDelete     Kind = "delete"
)

var kindMethods = map[Kind]string{
	KindFetch:      http.MethodGet,
	KindAttributes: http.MethodGet,
	KindDependency: http.MethodGet,
	KindInsert:     http.MethodPost,
	KindUpdate:     http.MethodPatch,
	KindDelete:     http.MethodDelete,
}

// ParseKind validates a configured kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindMethods[k]; !ok {
		return "", fmt.Errorf("unknown component kind %q", s)
	}
	return k, nil
}

// Method returns the HTTP method the kind is served on
func (k Kind) Method() string {
	return kindMethods[k]
}

// reserved query parameters are never read as attribute filters
var reserved = map[string]bool{
	recordapi.ParamLimit:         true,
	recordapi.ParamPage:          true,
	recordapi.ParamOrder:         true,
	recordapi.ParamRestriction:   true,
	recordapi.ParamCascade:       true,
	recordapi.ParamIncludeValues: true,
}

// Component is one configured endpoint
type Component struct {
	Name       string
	Route      string
	Kind       Kind
	Connection string
	Schema     string
	Table      string

	// Restriction is always conjoined with whatever the client sends
	Restriction []restriction.FilterClause
	Order       []string
	Limit       int
	FetchBlobs  *bool
	Attributes  []string
}

// FromConfig validates a component declaration
func FromConfig(cfg config.ComponentConfig) (*Component, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("component name is required")
	}
	if !strings.HasPrefix(cfg.Route, "/") {
		return nil, fmt.Errorf("component %s: route %q must start with /", cfg.Name, cfg.Route)
	}
	if cfg.Schema == "" || cfg.Table == "" {
		return nil, fmt.Errorf("component %s: schema and table are required", cfg.Name)
	}
	kind, err := ParseKind(cfg.Kind)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", cfg.Name, err)
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("component %s: limit must not be negative", cfg.Name)
	}
	for i, clause := range cfg.Restriction {
		if _, err := restriction.ParseOperator(clause.Operation); err != nil {
			return nil, fmt.Errorf("component %s: restriction clause %d: %w", cfg.Name, i, err)
		}
	}

	return &Component{
		Name:        cfg.Name,
		Route:       cfg.Route,
		Kind:        kind,
		Connection:  cfg.Connection,
		Schema:      cfg.Schema,
		Table:       cfg.Table,
		Restriction: cfg.Restriction,
		Order:       cfg.Order,
		Limit:       cfg.Limit,
		FetchBlobs:  cfg.FetchBlobs,
		Attributes:  cfg.Attributes,
	}, nil
}

// table resolves the component's table, scoped by its default restriction.
// A configured connection wins over the request header.
func (c *Component) table(ctx context.Context, h *recordapi.Handler, r common.Request) (recordaccess.Table, error) {
	name := c.Connection
	if name == "" {
		name = r.Header(recordapi.ConnectionHeader)
	}
	catalog, err := h.CatalogFor(name)
	if err != nil {
		return nil, err
	}
	t, err := catalog.Table(ctx, c.Schema, c.Table)
	if err != nil {
		return nil, common.NewInternalError("resolve table", err)
	}
	return recordaccess.Scope(t, c.Restriction)
}

// serve returns the handler for the component's kind
func (c *Component) serve(h *recordapi.Handler) common.HTTPHandlerFunc {
	return func(w common.ResponseWriter, r common.Request) {
		ctx := r.Context()
		t, err := c.table(ctx, h, r)
		if err != nil {
			recordapi.SendError(w, err)
			return
		}

		engine := h.Engine()
		var (
			body interface{}
			n    int64
		)
		switch c.Kind {
		case KindFetch:
			var req recordaccess.FetchRequest
			if req, err = c.fetchRequest(t.Heading(), r); err == nil {
				body, err = engine.Fetch(ctx, t, req)
			}
		case KindAttributes:
			var req recordaccess.AttributesRequest
			if req, err = recordapi.ParseAttributesRequest(r); err == nil {
				body, err = engine.Attributes(ctx, t, req)
			}
		case KindDependency:
			var clauses []restriction.FilterClause
			if clauses, err = recordapi.ParseRestriction(r); err == nil {
				body, err = engine.Dependencies(ctx, t, clauses)
			}
		case KindInsert, KindUpdate:
			var rows []common.Row
			if rows, err = recordapi.ReadRows(r); err == nil {
				msg := "Insert successful"
				if c.Kind == KindInsert {
					n, err = engine.Insert(ctx, t, rows)
				} else {
					msg = "Update successful"
					n, err = engine.Update(ctx, t, rows)
				}
				body = common.MessageResponse{Message: msg, Count: n}
			}
		case KindDelete:
			var req recordaccess.DeleteRequest
			if req, err = recordapi.ParseDeleteRequest(r); err == nil {
				n, err = engine.Delete(ctx, t, req)
				body = common.MessageResponse{Message: "Delete successful", Count: n}
			}
		}
		if err != nil {
			recordapi.SendError(w, err)
			return
		}
		recordapi.SendResponse(w, http.StatusOK, body)
	}
}

// fetchRequest reads the client's fetch parameters, falls back to the
// component defaults and turns query parameters named after attributes into
// equality clauses
func (c *Component) fetchRequest(h *heading.Heading, r common.Request) (recordaccess.FetchRequest, error) {
	req, err := recordapi.ParseFetchRequest(r)
	if err != nil {
		return req, err
	}
	if req.Limit == 0 {
		req.Limit = c.Limit
	}
	if len(req.Order) == 0 {
		req.Order = c.Order
	}
	req.Attributes = c.Attributes
	req.FetchBlobs = c.FetchBlobs

	params := r.AllQueryParams()
	for _, attr := range h.Attributes() {
		raw, ok := params[attr.Name]
		if !ok || reserved[attr.Name] {
			continue
		}
		value, err := queryValue(attr, raw)
		if err != nil {
			return req, err
		}
		req.Restriction = append(req.Restriction, restriction.FilterClause{
			AttributeName: attr.Name,
			Operation:     "=",
			Value:         value,
		})
	}
	return req, nil
}

// queryValue converts a query string value for comparison with attr. Dates
// given as epoch seconds become YYYY-MM-DD.
func queryValue(attr heading.Attribute, raw string) (interface{}, error) {
	switch attr.Tag {
	case heading.TagDate:
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC().Format("2006-01-02"), nil
		}
		return raw, nil
	case heading.TagInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, common.NewValidationError(attr.Name, "%q is not an integer", raw)
		}
		return n, nil
	case heading.TagFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, common.NewValidationError(attr.Name, "%q is not a number", raw)
		}
		return f, nil
	case heading.TagBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, common.NewValidationError(attr.Name, "%q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
