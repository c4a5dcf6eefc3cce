package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/RecordSpec/pkg/config"
)

func newServer(t *testing.T, cfg Config) *GracefulServer {
	t.Helper()
	srv, err := NewGracefulServer(cfg)
	require.NoError(t, err)
	return srv
}

func TestGracefulServerTrackRequests(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, Config{
		Addr: ":0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.WriteHeader(http.StatusOK)
		}),
	})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}

	assert.Eventually(t, func() bool { return srv.InFlightRequests() == 3 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int64(0), srv.InFlightRequests())
}

func TestGracefulServerRejectsRequestsDuringShutdown(t *testing.T) {
	srv := newServer(t, Config{
		Addr:    ":0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	})

	srv.isShuttingDown.Store(true)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ServiceUnavailable")
}

func TestGracefulServerGZIP(t *testing.T) {
	payload := strings.Repeat(`{"records":[[1,"Raphael"]]}`, 200)
	srv := newServer(t, Config{
		Addr: ":0",
		GZIP: true,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, payload)
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Less(t, rec.Body.Len(), len(payload))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))

	plain := httptest.NewRecorder()
	srv.Handler().ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, plain.Body.String())
}

func TestGracefulServerServeAndShutdown(t *testing.T) {
	srv := newServer(t, Config{
		Addr:         "127.0.0.1:0",
		DrainTimeout: time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
	})

	var closed bool
	srv.OnShutdown(func(context.Context) error {
		closed = true
		return nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	srv.Wait()
	assert.True(t, closed)
	assert.True(t, srv.IsShuttingDown())
}

func TestShutdownReportsCallbackErrors(t *testing.T) {
	srv := newServer(t, Config{Addr: ":0", Handler: http.NotFoundHandler()})
	srv.OnShutdown(func(context.Context) error { return errors.New("flush failed") })

	err := srv.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")

	assert.NoError(t, srv.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.ServerConfig{
		Addr:            ":9000",
		ShutdownTimeout: time.Minute,
		DrainTimeout:    30 * time.Second,
		GZIP:            true,
	}, http.NotFoundHandler())

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.DrainTimeout)
	assert.True(t, cfg.GZIP)
	assert.NotNil(t, cfg.Handler)
}
