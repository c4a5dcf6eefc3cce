package dbmanager

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/bitechdev/RecordSpec/pkg/config"
)

type DatabaseType string

const (
	// DatabaseTypeMySQL represents MySQL and MariaDB, the usual pipeline backend
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeSQLite     DatabaseType = "sqlite"
)

// ManagerConfig is the resolved form of config.DBManagerConfig
type ManagerConfig struct {
	// DefaultConnection is used when a request names no connection
	DefaultConnection string

	Connections map[string]ConnectionConfig

	// Global connection pool defaults
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Retry policy
	RetryAttempts int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration

	// Health checks
	HealthCheckInterval time.Duration
	EnableAutoReconnect bool
}

// ConnectionConfig is one connection after global pool and retry defaults
// have been applied
type ConnectionConfig struct {
	Name string
	Type DatabaseType

	// DSN takes precedence over the individual parameters
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string

	// PostgreSQL specific
	SSLMode string
	Schema  string

	// MySQL specific
	TLS string

	// SQLite specific
	FilePath string

	// Connection pool settings (overrides global defaults)
	MaxOpenConns    *int
	MaxIdleConns    *int
	ConnMaxLifetime *time.Duration
	ConnMaxIdleTime *time.Duration

	ConnectTimeout time.Duration
	QueryTimeout   time.Duration

	EnableLogging bool

	// Retry policy, copied from the manager
	RetryAttempts int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

// DefaultManagerConfig holds the pool and retry values used for unset fields
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultConnection:   "",
		Connections:         make(map[string]ConnectionConfig),
		MaxOpenConns:        25,
		MaxIdleConns:        5,
		ConnMaxLifetime:     30 * time.Minute,
		ConnMaxIdleTime:     5 * time.Minute,
		RetryAttempts:       3,
		RetryDelay:          1 * time.Second,
		RetryMaxDelay:       10 * time.Second,
		HealthCheckInterval: 15 * time.Second,
		EnableAutoReconnect: true,
	}
}

// ApplyDefaults applies default values to the manager configuration
func (c *ManagerConfig) ApplyDefaults() {
	defaults := DefaultManagerConfig()

	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaults.RetryAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = defaults.RetryMaxDelay
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = defaults.HealthCheckInterval
	}
	// a false bool is indistinguishable from unset
	if !c.EnableAutoReconnect {
		c.EnableAutoReconnect = defaults.EnableAutoReconnect
	}
	// a single connection is the default without saying so
	if c.DefaultConnection == "" && len(c.Connections) == 1 {
		for name := range c.Connections {
			c.DefaultConnection = name
		}
	}
}

// Validate validates the manager configuration. An empty connection map is
// allowed; connections can be registered after construction.
func (c *ManagerConfig) Validate() error {
	if c.DefaultConnection != "" {
		if _, ok := c.Connections[c.DefaultConnection]; !ok {
			return NewConfigurationError("default_connection", fmt.Errorf("default connection '%s' not found in connections", c.DefaultConnection))
		}
	}

	for name := range c.Connections {
		conn := c.Connections[name]
		if err := conn.Validate(); err != nil {
			return fmt.Errorf("connection '%s': %w", name, err)
		}
	}

	return nil
}

// ApplyDefaults applies default values and global settings to the connection configuration
func (cc *ConnectionConfig) ApplyDefaults(global *ManagerConfig) {
	if cc.Name == "" {
		cc.Name = "unnamed"
	}

	if global != nil {
		if cc.MaxOpenConns == nil {
			maxOpen := global.MaxOpenConns
			cc.MaxOpenConns = &maxOpen
		}
		if cc.MaxIdleConns == nil {
			maxIdle := global.MaxIdleConns
			cc.MaxIdleConns = &maxIdle
		}
		if cc.ConnMaxLifetime == nil {
			lifetime := global.ConnMaxLifetime
			cc.ConnMaxLifetime = &lifetime
		}
		if cc.ConnMaxIdleTime == nil {
			idleTime := global.ConnMaxIdleTime
			cc.ConnMaxIdleTime = &idleTime
		}
		cc.RetryAttempts = global.RetryAttempts
		cc.RetryDelay = global.RetryDelay
		cc.RetryMaxDelay = global.RetryMaxDelay
	}

	if cc.ConnectTimeout == 0 {
		cc.ConnectTimeout = 10 * time.Second
	}
	if cc.QueryTimeout == 0 {
		cc.QueryTimeout = 30 * time.Second
	}

	if cc.Port == 0 && cc.DSN == "" {
		switch cc.Type {
		case DatabaseTypeMySQL:
			cc.Port = 3306
		case DatabaseTypePostgreSQL:
			cc.Port = 5432
		}
	}
}

// Validate validates the connection configuration
func (cc *ConnectionConfig) Validate() error {
	switch cc.Type {
	case DatabaseTypeMySQL, DatabaseTypePostgreSQL, DatabaseTypeSQLite:
	default:
		return NewConfigurationError("type", fmt.Errorf("unsupported database type: %s", cc.Type))
	}

	if cc.DSN == "" {
		switch cc.Type {
		case DatabaseTypeMySQL, DatabaseTypePostgreSQL:
			if cc.Host == "" {
				return NewConfigurationError("host", fmt.Errorf("host is required when DSN is not provided"))
			}
			if cc.Type == DatabaseTypePostgreSQL && cc.Database == "" {
				return NewConfigurationError("database", fmt.Errorf("database is required when DSN is not provided"))
			}
		case DatabaseTypeSQLite:
			if cc.FilePath == "" {
				return NewConfigurationError("filepath", fmt.Errorf("filepath is required for SQLite when DSN is not provided"))
			}
		}
	}

	return nil
}

// BuildDSN builds a connection string from individual parameters
func (cc *ConnectionConfig) BuildDSN() (string, error) {
	if cc.DSN != "" {
		return cc.DSN, nil
	}

	switch cc.Type {
	case DatabaseTypeMySQL:
		return cc.buildMySQLDSN(), nil
	case DatabaseTypePostgreSQL:
		return cc.buildPostgresDSN(), nil
	case DatabaseTypeSQLite:
		return cc.buildSQLiteDSN(), nil
	default:
		return "", fmt.Errorf("cannot build DSN for database type: %s", cc.Type)
	}
}

// buildMySQLDSN leaves the database empty when none is configured: a
// pipeline connection spans every schema the user can see
func (cc *ConnectionConfig) buildMySQLDSN() string {
	m := mysql.NewConfig()
	m.User = cc.User
	m.Passwd = cc.Password
	m.Net = "tcp"
	m.Addr = fmt.Sprintf("%s:%d", cc.Host, cc.Port)
	m.DBName = cc.Database
	m.ParseTime = true
	m.Timeout = cc.ConnectTimeout
	m.ReadTimeout = cc.QueryTimeout
	if cc.TLS != "" {
		m.TLSConfig = cc.TLS
	}
	return m.FormatDSN()
}

func (cc *ConnectionConfig) buildPostgresDSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		cc.Host, cc.Port, cc.User, cc.Password, cc.Database)

	if cc.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", cc.SSLMode)
	} else {
		dsn += " sslmode=disable"
	}

	if cc.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", cc.Schema)
	}

	return dsn
}

func (cc *ConnectionConfig) buildSQLiteDSN() string {
	if cc.FilePath != "" {
		return cc.FilePath
	}
	return ":memory:"
}

// FromConfig converts config.DBManagerConfig to internal ManagerConfig
func FromConfig(cfg config.DBManagerConfig) ManagerConfig {
	mgr := ManagerConfig{
		DefaultConnection:   cfg.DefaultConnection,
		Connections:         make(map[string]ConnectionConfig),
		MaxOpenConns:        cfg.MaxOpenConns,
		MaxIdleConns:        cfg.MaxIdleConns,
		ConnMaxLifetime:     cfg.ConnMaxLifetime,
		ConnMaxIdleTime:     cfg.ConnMaxIdleTime,
		RetryAttempts:       cfg.RetryAttempts,
		RetryDelay:          cfg.RetryDelay,
		RetryMaxDelay:       cfg.RetryMaxDelay,
		HealthCheckInterval: cfg.HealthCheckInterval,
		EnableAutoReconnect: cfg.EnableAutoReconnect,
	}

	for name := range cfg.Connections {
		connCfg := cfg.Connections[name]
		mgr.Connections[name] = ConnectionConfig{
			Name:            connCfg.Name,
			Type:            DatabaseType(connCfg.Type),
			DSN:             connCfg.DSN,
			Host:            connCfg.Host,
			Port:            connCfg.Port,
			User:            connCfg.User,
			Password:        connCfg.Password,
			Database:        connCfg.Database,
			SSLMode:         connCfg.SSLMode,
			Schema:          connCfg.Schema,
			TLS:             connCfg.TLS,
			FilePath:        connCfg.FilePath,
			MaxOpenConns:    connCfg.MaxOpenConns,
			MaxIdleConns:    connCfg.MaxIdleConns,
			ConnMaxLifetime: connCfg.ConnMaxLifetime,
			ConnMaxIdleTime: connCfg.ConnMaxIdleTime,
			ConnectTimeout:  connCfg.ConnectTimeout,
			QueryTimeout:    connCfg.QueryTimeout,
			EnableLogging:   connCfg.EnableLogging,
		}
	}

	return mgr
}

// Getter methods to implement providers.ConnectionConfig interface
func (cc *ConnectionConfig) GetName() string                    { return cc.Name }
func (cc *ConnectionConfig) GetType() string                    { return string(cc.Type) }
func (cc *ConnectionConfig) GetHost() string                    { return cc.Host }
func (cc *ConnectionConfig) GetDatabase() string                { return cc.Database }
func (cc *ConnectionConfig) GetFilePath() string                { return cc.FilePath }
func (cc *ConnectionConfig) GetConnectTimeout() time.Duration   { return cc.ConnectTimeout }
func (cc *ConnectionConfig) GetQueryTimeout() time.Duration     { return cc.QueryTimeout }
func (cc *ConnectionConfig) GetEnableLogging() bool             { return cc.EnableLogging }
func (cc *ConnectionConfig) GetMaxOpenConns() *int              { return cc.MaxOpenConns }
func (cc *ConnectionConfig) GetMaxIdleConns() *int              { return cc.MaxIdleConns }
func (cc *ConnectionConfig) GetConnMaxLifetime() *time.Duration { return cc.ConnMaxLifetime }
func (cc *ConnectionConfig) GetConnMaxIdleTime() *time.Duration { return cc.ConnMaxIdleTime }
func (cc *ConnectionConfig) GetRetryAttempts() int              { return cc.RetryAttempts }
func (cc *ConnectionConfig) GetRetryDelay() time.Duration       { return cc.RetryDelay }
func (cc *ConnectionConfig) GetRetryMaxDelay() time.Duration    { return cc.RetryMaxDelay }
