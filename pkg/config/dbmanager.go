package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// connectionTypes are the database types dbmanager has providers for
var connectionTypes = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}

// DBManagerConfig lists the named pipeline databases the server can reach.
// Requests pick one with the X-Connection header.
type DBManagerConfig struct {
	DefaultConnection string                        `mapstructure:"default_connection"`
	Connections       map[string]DBConnectionConfig `mapstructure:"connections"`

	// Pool defaults, overridable per connection
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	RetryMaxDelay time.Duration `mapstructure:"retry_max_delay"`

	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	EnableAutoReconnect bool          `mapstructure:"enable_auto_reconnect"`
}

// DBConnectionConfig is one database. Either DSN or the discrete fields
// (FilePath for sqlite) describe where it lives.
type DBConnectionConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"` // mysql, postgres, sqlite
	DSN  string `mapstructure:"dsn"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	SSLMode  string `mapstructure:"sslmode"` // postgres
	Schema   string `mapstructure:"schema"`  // postgres search_path
	TLS      string `mapstructure:"tls"`     // mysql TLS config name
	FilePath string `mapstructure:"filepath"`

	MaxOpenConns    *int           `mapstructure:"max_open_conns"`
	MaxIdleConns    *int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime *time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime *time.Duration `mapstructure:"conn_max_idle_time"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	EnableLogging bool `mapstructure:"enable_logging"`
}

// Validate checks the connection list. Host and file requirements are left
// to dbmanager, which knows the DSN rules of each driver.
func (c *DBManagerConfig) Validate() error {
	if len(c.Connections) == 0 {
		return fmt.Errorf("at least one connection must be configured")
	}

	if c.DefaultConnection != "" {
		if _, ok := c.Connections[c.DefaultConnection]; !ok {
			return fmt.Errorf("default connection '%s' not found in connections", c.DefaultConnection)
		}
	}

	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		typ := strings.ToLower(c.Connections[name].Type)
		if !connectionTypes[typ] {
			return fmt.Errorf("connection '%s': unsupported type %q (mysql, postgres or sqlite)", name, c.Connections[name].Type)
		}
	}
	return nil
}
