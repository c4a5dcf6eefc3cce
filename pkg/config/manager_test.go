package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	mgr := NewManager()
	require.NoError(t, mgr.Load())

	cfg, err := mgr.GetConfig()
	require.NoError(t, err)

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"server.addr", cfg.Server.Addr, ":8080"},
		{"server.prefix", cfg.Server.Prefix, "/api"},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout, 30 * time.Second},
		{"server.gzip", cfg.Server.GZIP, true},
		{"tracing.enabled", cfg.Tracing.Enabled, false},
		{"tracing.service_name", cfg.Tracing.ServiceName, "recordspec"},
		{"metrics.provider", cfg.Metrics.Provider, "prometheus"},
		{"error_tracking.provider", cfg.ErrorTracking.Provider, "noop"},
		{"logger.dev", cfg.Logger.Dev, false},
		{"middleware.rate_limit_rps", cfg.Middleware.RateLimitRPS, 100.0},
		{"middleware.rate_limit_burst", cfg.Middleware.RateLimitBurst, 200},
		{"engine.default_limit", cfg.Engine.DefaultLimit, 1000},
		{"dbmanager.health_check_interval", cfg.DBManager.HealthCheckInterval, 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestEnvironmentVariableOverrides(t *testing.T) {
	t.Setenv("RECORDSPEC_SERVER_ADDR", ":9090")
	t.Setenv("RECORDSPEC_TRACING_ENABLED", "true")
	t.Setenv("RECORDSPEC_ENGINE_MAX_LIMIT", "500")
	t.Setenv("RECORDSPEC_LOGGER_DEV", "true")

	mgr := NewManager()
	require.NoError(t, mgr.Load())

	cfg, err := mgr.GetConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 500, cfg.Engine.MaxLimit)
	assert.True(t, cfg.Logger.Dev)
}

func TestWithEnvPrefix(t *testing.T) {
	t.Setenv("LAB_SERVER_ADDR", ":5000")

	mgr := NewManager(WithEnvPrefix("LAB"), WithConfigName("missing"))
	require.NoError(t, mgr.Load())

	cfg, err := mgr.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Empty(t, mgr.ConfigFileUsed())
}

const sampleConfig = `
server:
  addr: ":7000"
  prefix: /records
dbmanager:
  default_connection: pipeline
  connections:
    pipeline:
      type: mysql
      host: db.lab
      user: reader
      max_open_conns: 8
      query_timeout: 45s
engine:
  max_limit: 5000
components:
  - name: sessions
    route: /sessions
    kind: fetch
    schema: lab_session
    table: Session
    order: [session_date DESC]
    limit: 50
    restriction:
      - attribute_name: subject_id
        operation: "="
        value: 12
  - name: session-delete
    route: /sessions/delete
    kind: delete
    schema: lab_session
    table: Session
`

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordspec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	mgr := NewManager(WithConfigFile(path))
	require.NoError(t, mgr.Load())
	assert.Equal(t, path, mgr.ConfigFileUsed())

	cfg, err := mgr.GetConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "/records", cfg.Server.Prefix)
	assert.Equal(t, 5000, cfg.Engine.MaxLimit)
	assert.Equal(t, 1000, cfg.Engine.DefaultLimit, "defaults fill the keys the file omits")

	conn := cfg.DBManager.Connections["pipeline"]
	assert.Equal(t, "mysql", conn.Type)
	assert.Equal(t, "db.lab", conn.Host)
	require.NotNil(t, conn.MaxOpenConns)
	assert.Equal(t, 8, *conn.MaxOpenConns)
	assert.Equal(t, 45*time.Second, conn.QueryTimeout)

	require.Len(t, cfg.Components, 2)
	sessions := cfg.Components[0]
	assert.Equal(t, "fetch", sessions.Kind)
	assert.Equal(t, []string{"session_date DESC"}, sessions.Order)
	assert.Equal(t, 50, sessions.Limit)
	require.Len(t, sessions.Restriction, 1)
	assert.Equal(t, "subject_id", sessions.Restriction[0].AttributeName)
	assert.Equal(t, "=", sessions.Restriction[0].Operation)
	assert.EqualValues(t, 12, sessions.Restriction[0].Value)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	err := NewManager(WithConfigFile(path)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestProgrammaticConfiguration(t *testing.T) {
	mgr := NewManager()
	mgr.Set("server.addr", ":7070")
	mgr.Set("tracing.service_name", "lab-service")

	cfg, err := mgr.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "lab-service", cfg.Tracing.ServiceName)
	assert.Equal(t, "lab-service", mgr.GetString("tracing.service_name"))
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Addr: ":8080", Prefix: "/api"},
			Engine: EngineConfig{DefaultLimit: 10, MaxLimit: 100},
			DBManager: DBManagerConfig{
				Connections: map[string]DBConnectionConfig{"lab": {Type: "sqlite"}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server address"},
		{"relative prefix", func(c *Config) { c.Server.Prefix = "api" }, "must start with '/'"},
		{"drain beyond shutdown", func(c *Config) {
			c.Server.DrainTimeout = time.Minute
			c.Server.ShutdownTimeout = time.Second
		}, "drain_timeout"},
		{"default above max", func(c *Config) { c.Engine.DefaultLimit = 1000 }, "exceeds max_limit"},
		{"negative limit", func(c *Config) { c.Engine.MaxLimit = -1 }, "negative"},
		{"no connections", func(c *Config) { c.DBManager.Connections = nil }, "at least one connection"},
		{"unknown default", func(c *Config) { c.DBManager.DefaultConnection = "other" }, "not found"},
		{"unsupported type", func(c *Config) {
			c.DBManager.Connections["legacy"] = DBConnectionConfig{Type: "mssql"}
		}, `connection 'legacy': unsupported type "mssql"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
