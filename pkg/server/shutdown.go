package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/gzip"

	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// GracefulServer wraps http.Server with request draining on shutdown
type GracefulServer struct {
	server           *http.Server
	shutdownTimeout  time.Duration
	drainTimeout     time.Duration
	inFlightRequests atomic.Int64
	isShuttingDown   atomic.Bool
	shutdownOnce     sync.Once
	shutdownComplete chan struct{}
	callbacks        []ShutdownCallback
	callbacksMu      sync.Mutex
}

// Config holds configuration for the graceful server
type Config struct {
	Addr    string
	Handler http.Handler

	// ShutdownTimeout bounds the whole shutdown. Default: 30 seconds
	ShutdownTimeout time.Duration

	// DrainTimeout is how long in-flight requests may keep running once
	// shutdown starts. Default: 25 seconds
	DrainTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// GZIP compresses responses for clients that accept it
	GZIP bool
}

// ShutdownCallback runs during shutdown, after requests have drained
type ShutdownCallback func(context.Context) error

// FromConfig converts the server section of the application config
func FromConfig(sc config.ServerConfig, handler http.Handler) Config {
	return Config{
		Addr:            sc.Addr,
		Handler:         handler,
		ShutdownTimeout: sc.ShutdownTimeout,
		DrainTimeout:    sc.DrainTimeout,
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		IdleTimeout:     sc.IdleTimeout,
		GZIP:            sc.GZIP,
	}
}

// NewGracefulServer creates a new graceful server
func NewGracefulServer(cfg Config) (*GracefulServer, error) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 25 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}

	gs := &GracefulServer{
		shutdownTimeout:  cfg.ShutdownTimeout,
		drainTimeout:     cfg.DrainTimeout,
		shutdownComplete: make(chan struct{}),
	}

	handler := cfg.Handler
	if cfg.GZIP {
		gz, err := gzhttp.NewWrapper(gzhttp.CompressionLevel(gzip.BestSpeed))
		if err != nil {
			return nil, fmt.Errorf("failed to create GZIP wrapper: %w", err)
		}
		handler = gz(handler)
	}

	gs.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      gs.TrackRequestsMiddleware(handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return gs, nil
}

// Handler returns the fully wrapped handler the server serves
func (gs *GracefulServer) Handler() http.Handler {
	return gs.server.Handler
}

// OnShutdown registers cb to run after requests drain, such as closing
// database connections or flushing the error tracker
func (gs *GracefulServer) OnShutdown(cb ShutdownCallback) {
	gs.callbacksMu.Lock()
	defer gs.callbacksMu.Unlock()
	gs.callbacks = append(gs.callbacks, cb)
}

// TrackRequestsMiddleware counts in-flight requests and refuses new ones during shutdown
func (gs *GracefulServer) TrackRequestsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gs.isShuttingDown.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"ServiceUnavailable","errorMessage":"Server is shutting down"}`))
			return
		}

		gs.inFlightRequests.Add(1)
		defer gs.inFlightRequests.Add(-1)

		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled or the process receives
// SIGINT or SIGTERM, then shuts down gracefully
func (gs *GracefulServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", gs.server.Addr, err)
	}
	return gs.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server on %s", ln.Addr())
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-sigCtx.Done():
		logger.Info("Shutdown requested: %v", context.Cause(sigCtx))
		return gs.Shutdown(context.Background())
	}
}

// Shutdown stops accepting requests, drains in-flight ones, closes the
// server and runs the registered callbacks
func (gs *GracefulServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	gs.shutdownOnce.Do(func() {
		logger.Info("Starting graceful shutdown...")
		gs.isShuttingDown.Store(true)

		shutdownCtx, cancel := context.WithTimeout(ctx, gs.shutdownTimeout)
		defer cancel()

		drainCtx, drainCancel := context.WithTimeout(shutdownCtx, gs.drainTimeout)
		defer drainCancel()

		shutdownErr = gs.drainRequests(drainCtx)
		if shutdownErr != nil {
			logger.Error("Error draining requests: %v", shutdownErr)
		}

		if err := gs.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server: %v", err)
			if shutdownErr == nil {
				shutdownErr = err
			}
		}

		if err := gs.runCallbacks(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}

		logger.Info("Graceful shutdown complete")
		close(gs.shutdownComplete)
	})

	return shutdownErr
}

func (gs *GracefulServer) drainRequests(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		inFlight := gs.inFlightRequests.Load()
		if inFlight == 0 {
			logger.Info("All requests drained in %v", time.Since(startTime))
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Warn("Drain timeout exceeded with %d requests still in flight", inFlight)
			return fmt.Errorf("drain timeout exceeded: %d requests still in flight", inFlight)
		case <-ticker.C:
			logger.Debug("Waiting for %d in-flight requests to complete...", inFlight)
		}
	}
}

func (gs *GracefulServer) runCallbacks(ctx context.Context) error {
	gs.callbacksMu.Lock()
	callbacks := make([]ShutdownCallback, len(gs.callbacks))
	copy(callbacks, gs.callbacks)
	gs.callbacksMu.Unlock()

	var errs []error
	for i, cb := range callbacks {
		if err := cb(ctx); err != nil {
			logger.Error("Shutdown callback %d failed: %v", i+1, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InFlightRequests returns the current number of in-flight requests
func (gs *GracefulServer) InFlightRequests() int64 {
	return gs.inFlightRequests.Load()
}

// IsShuttingDown returns true if the server is shutting down
func (gs *GracefulServer) IsShuttingDown() bool {
	return gs.isShuttingDown.Load()
}

// Wait blocks until shutdown is complete
func (gs *GracefulServer) Wait() {
	<-gs.shutdownComplete
}
