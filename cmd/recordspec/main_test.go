package main

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/RecordSpec/pkg/components"
	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/dbmanager"
	"github.com/bitechdev/RecordSpec/pkg/recordapi"
)

const validateConfig = `
server:
  prefix: /records
dbmanager:
  default_connection: local
  connections:
    local:
      type: sqlite
      filepath: /tmp/recordspec-validate.db
components:
  - name: sessions
    route: /sessions
    kind: fetch
    schema: main
    table: Session
  - name: drop-session
    route: /sessions/drop
    kind: delete
    schema: main
    table: Session
`

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordspec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validateConfig), 0o600))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "--config", path, "--env-file", ""})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), `1 connection(s), default "local"`)
	assert.Contains(t, out.String(), "/records/sessions -> main.Session (sessions)")
	assert.Contains(t, out.String(), "DELETE")
}

func TestValidateCommandRejectsDuplicateRoutes(t *testing.T) {
	broken := strings.Replace(validateConfig, "/sessions/drop", "/sessions", 1)
	path := filepath.Join(t.TempDir(), "recordspec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o600))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "--config", path, "--env-file", ""})
	assert.ErrorContains(t, cmd.Execute(), "already used by sessions")
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	const key = "RECORDSPEC_ENVFILE_TEST"
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestBuildHandler(t *testing.T) {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	_, err = sqldb.Exec(`CREATE TABLE session (session_id INTEGER PRIMARY KEY, subject VARCHAR(16))`)
	require.NoError(t, err)

	mgr, err := dbmanager.NewManager(dbmanager.ManagerConfig{})
	require.NoError(t, err)
	require.NoError(t, mgr.Register(context.Background(), dbmanager.NewConnectionFromDB("local", dbmanager.DatabaseTypeSQLite, sqldb)))
	t.Cleanup(func() { _ = mgr.Close() })

	cfg := &config.Config{
		Server:     config.ServerConfig{Prefix: "/api"},
		Middleware: config.MiddlewareConfig{MaxRequestSize: 16, RateLimitRPS: 50, RateLimitBurst: 50, PanicRecovery: true},
		Components: []config.ComponentConfig{{Name: "sessions", Route: "/sessions", Kind: "fetch", Schema: "main", Table: "session"}},
	}
	handler := recordapi.NewHandler(mgr, recordapi.NewEngine(cfg.Engine))
	registry, err := components.NewRegistryFromConfig(handler, cfg.Components)
	require.NoError(t, err)

	h, stop := buildHandler(cfg, handler, registry)
	t.Cleanup(stop)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", status: http.StatusOK},
		{name: "fixed route", method: http.MethodGet, path: "/api/schemas/main/tables/Session/records", status: http.StatusOK},
		{name: "component", method: http.MethodGet, path: "/api/sessions", status: http.StatusOK},
		{name: "oversized body", method: http.MethodPost, path: "/api/schemas/main/tables/Session/records",
			body: `{"session_id": 1, "subject": "a mouse with a long name"}`, status: http.StatusRequestEntityTooLarge},
		{name: "unknown route", method: http.MethodGet, path: "/elsewhere", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
