package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bitechdev/RecordSpec/pkg/common/adapters/router"
	"github.com/bitechdev/RecordSpec/pkg/components"
	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/middleware"
	"github.com/bitechdev/RecordSpec/pkg/recordapi"
	"github.com/bitechdev/RecordSpec/pkg/tracing"
)

// buildHandler mounts the fixed API and the configured components and wraps
// them in the configured middleware. The returned stop function releases the
// rate limiter.
func buildHandler(cfg *config.Config, handler *recordapi.Handler, registry *components.Registry) (http.Handler, func()) {
	r := mux.NewRouter()
	if p, ok := metrics.GetProvider().(*metrics.PrometheusProvider); ok {
		r.Use(p.Middleware(router.RouteTemplate))
	}

	recordapi.SetupMuxRoutes(r, handler, cfg.Server.Prefix)
	if registry != nil {
		registry.SetupMuxRoutes(r, cfg.Server.Prefix)
	}

	var h http.Handler = tracing.Middleware(r)

	if cfg.Middleware.MaxRequestSize > 0 {
		h = middleware.NewRequestSizeLimiter(cfg.Middleware.MaxRequestSize).Middleware(h)
	}

	stop := func() {}
	if cfg.Middleware.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Middleware.RateLimitRPS, cfg.Middleware.RateLimitBurst)
		h = limiter.Middleware(h)
		stop = limiter.Stop
	}

	if cfg.Middleware.PanicRecovery {
		h = middleware.PanicRecovery(h)
	}
	return h, stop
}
