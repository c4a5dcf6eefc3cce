package components

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/common/adapters/router"
	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/recordapi"
)

// Registry holds the configured components keyed by route
type Registry struct {
	handler    *recordapi.Handler
	components map[string]*Component
	names      map[string]bool
	mutex      sync.RWMutex
}

// NewRegistry creates an empty registry serving through handler
func NewRegistry(handler *recordapi.Handler) *Registry {
	return &Registry{
		handler:    handler,
		components: make(map[string]*Component),
		names:      make(map[string]bool),
	}
}

// NewRegistryFromConfig compiles every declaration, failing on the first
// invalid or duplicate one
func NewRegistryFromConfig(handler *recordapi.Handler, cfgs []config.ComponentConfig) (*Registry, error) {
	r := NewRegistry(handler)
	for _, cfg := range cfgs {
		c, err := FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a component. Names and routes are unique.
func (r *Registry) Register(c *Component) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := strings.TrimRight(c.Route, "/")
	if existing, ok := r.components[key]; ok {
		return fmt.Errorf("component %s: route %s already used by %s", c.Name, c.Route, existing.Name)
	}
	if r.names[c.Name] {
		return fmt.Errorf("component %s registered twice", c.Name)
	}
	r.components[key] = c
	r.names[c.Name] = true
	return nil
}

// Get returns the component served on route
func (r *Registry) Get(route string) (*Component, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	c, ok := r.components[strings.TrimRight(route, "/")]
	return c, ok
}

// Components returns all components ordered by route
func (r *Registry) Components() []*Component {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]*Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Route < out[j].Route
	})
	return out
}

// RegisterRoutes mounts every component under prefix
func (r *Registry) RegisterRoutes(rt common.Router, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	for _, c := range r.Components() {
		logger.Info("Mounting component %s: %s %s%s -> %s.%s", c.Name, c.Kind.Method(), prefix, c.Route, c.Schema, c.Table)
		rt.HandleFunc(prefix+c.Route, c.serve(r.handler)).Methods(c.Kind.Method())
	}
}

// SetupMuxRoutes mounts every component on a gorilla/mux router
func (r *Registry) SetupMuxRoutes(muxRouter *mux.Router, prefix string) {
	r.RegisterRoutes(router.NewMuxAdapter(muxRouter), prefix)
}
