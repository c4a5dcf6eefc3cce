package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

// MuxAdapter adapts Gorilla Mux to the common.Router interface
type MuxAdapter struct {
	router *mux.Router
}

// NewMuxAdapter creates a new Mux adapter
func NewMuxAdapter(router *mux.Router) *MuxAdapter {
	return &MuxAdapter{router: router}
}

// HandleFunc registers handler for pattern. The route is only added to the
// mux once Methods is called.
func (m *MuxAdapter) HandleFunc(pattern string, handler common.HTTPHandlerFunc) common.RouteRegistration {
	return &MuxRouteRegistration{
		router:  m.router,
		pattern: pattern,
		handler: handler,
	}
}

// Router returns the underlying mux router
func (m *MuxAdapter) Router() *mux.Router {
	return m.router
}

// MuxRouteRegistration implements RouteRegistration for Mux
type MuxRouteRegistration struct {
	router  *mux.Router
	pattern string
	handler common.HTTPHandlerFunc
	route   *mux.Route
}

func (m *MuxRouteRegistration) Methods(methods ...string) common.RouteRegistration {
	if m.route == nil {
		m.route = m.router.HandleFunc(m.pattern, func(w http.ResponseWriter, r *http.Request) {
			resp, req := common.WrapHTTPRequest(w, r, mux.Vars(r))
			m.handler(resp, req)
		})
	}
	m.route.Methods(methods...)
	return m
}

// RouteTemplate returns the path template of the matched route, falling back
// to the raw path. It keeps metric labels bounded.
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
