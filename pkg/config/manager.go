package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment override, e.g. RECORDSPEC_SERVER_ADDR
const DefaultEnvPrefix = "RECORDSPEC"

// Manager handles configuration loading from multiple sources
type Manager struct {
	v *viper.Viper
}

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// NewManager creates a configuration manager with defaults and applies opts
func NewManager(opts ...Option) *Manager {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/recordspec")
	v.AddConfigPath("$HOME/.recordspec")

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	m := &Manager{v: v}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithConfigFile sets a specific config file path
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.v.SetConfigFile(path)
		}
	}
}

// WithConfigName sets the config file name (without extension)
func WithConfigName(name string) Option {
	return func(m *Manager) {
		m.v.SetConfigName(name)
	}
}

// WithConfigPath adds a path to search for config files
func WithConfigPath(path string) Option {
	return func(m *Manager) {
		m.v.AddConfigPath(path)
	}
}

// WithEnvPrefix sets the environment variable prefix
func WithEnvPrefix(prefix string) Option {
	return func(m *Manager) {
		m.v.SetEnvPrefix(prefix)
	}
}

// Load reads the config file if there is one. A missing file is not an
// error; defaults and environment variables still apply.
func (m *Manager) Load() error {
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// ConfigFileUsed returns the file Load read, or "" when none was found
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// GetString returns a string configuration value
func (m *Manager) GetString(key string) string {
	return m.v.GetString(key)
}

// Set sets a configuration value
func (m *Manager) Set(key string, value interface{}) {
	m.v.Set(key, value)
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.prefix", "/api")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.drain_timeout", "25s")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.gzip", true)

	// Logger
	v.SetDefault("logger.dev", false)
	v.SetDefault("logger.path", "")

	// Error tracking
	v.SetDefault("error_tracking.enabled", false)
	v.SetDefault("error_tracking.provider", "noop")
	v.SetDefault("error_tracking.sample_rate", 1.0)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.provider", "prometheus")
	v.SetDefault("metrics.namespace", "recordspec")

	// Tracing
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "recordspec")
	v.SetDefault("tracing.service_version", "1.0.0")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Middleware
	v.SetDefault("middleware.rate_limit_rps", 100.0)
	v.SetDefault("middleware.rate_limit_burst", 200)
	v.SetDefault("middleware.max_request_size", 10485760) // 10MB
	v.SetDefault("middleware.panic_recovery", true)

	// Engine
	v.SetDefault("engine.default_limit", 1000)
	v.SetDefault("engine.max_limit", 100000)
	v.SetDefault("engine.fetch_blobs", false)

	// Database manager
	v.SetDefault("dbmanager.default_connection", "")
	v.SetDefault("dbmanager.max_open_conns", 25)
	v.SetDefault("dbmanager.max_idle_conns", 5)
	v.SetDefault("dbmanager.conn_max_lifetime", "30m")
	v.SetDefault("dbmanager.conn_max_idle_time", "5m")
	v.SetDefault("dbmanager.retry_attempts", 3)
	v.SetDefault("dbmanager.retry_delay", "1s")
	v.SetDefault("dbmanager.retry_max_delay", "10s")
	v.SetDefault("dbmanager.health_check_interval", "15s")
	v.SetDefault("dbmanager.enable_auto_reconnect", true)
}
