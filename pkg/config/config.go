package config

import (
	"time"

	"github.com/bitechdev/RecordSpec/pkg/errortracking"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
	"github.com/bitechdev/RecordSpec/pkg/tracing"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig         `mapstructure:"server"`
	Logger        LoggerConfig         `mapstructure:"logger"`
	ErrorTracking errortracking.Config `mapstructure:"error_tracking"`
	Metrics       metrics.Config       `mapstructure:"metrics"`
	Tracing       tracing.Config       `mapstructure:"tracing"`
	Middleware    MiddlewareConfig     `mapstructure:"middleware"`
	DBManager     DBManagerConfig      `mapstructure:"dbmanager"`
	Engine        EngineConfig         `mapstructure:"engine"`
	Components    []ComponentConfig    `mapstructure:"components"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Prefix          string        `mapstructure:"prefix"` // route prefix of the record API
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DrainTimeout    time.Duration `mapstructure:"drain_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GZIP            bool          `mapstructure:"gzip"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Dev  bool   `mapstructure:"dev"`
	Path string `mapstructure:"path"`
}

// MiddlewareConfig holds middleware configuration
type MiddlewareConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRequestSize int64   `mapstructure:"max_request_size"`
	PanicRecovery  bool    `mapstructure:"panic_recovery"`
}

// EngineConfig tunes the record access engine
type EngineConfig struct {
	DefaultLimit int  `mapstructure:"default_limit"`
	MaxLimit     int  `mapstructure:"max_limit"`
	FetchBlobs   bool `mapstructure:"fetch_blobs"`
}

// ComponentConfig declares one configured endpoint bound to a table
type ComponentConfig struct {
	Name        string                     `mapstructure:"name"`
	Route       string                     `mapstructure:"route"`
	Kind        string                     `mapstructure:"kind"` // fetch, attributes, dependency, insert, delete, update
	Connection  string                     `mapstructure:"connection"`
	Schema      string                     `mapstructure:"schema"`
	Table       string                     `mapstructure:"table"`
	Restriction []restriction.FilterClause `mapstructure:"restriction"`
	Order       []string                   `mapstructure:"order"`
	Limit       int                        `mapstructure:"limit"`
	FetchBlobs  *bool                      `mapstructure:"fetch_blobs"` // unset keeps the engine default
	Attributes  []string                   `mapstructure:"attributes"`
}
