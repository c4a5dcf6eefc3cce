package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/bitechdev/RecordSpec/pkg/sqlstore"
)

// Connection is one named pipeline database behind a provider
type Connection interface {
	Name() string
	Type() DatabaseType

	Native() (*sql.DB, error)
	Bun() (*bun.DB, error)
	Store() (*sqlstore.Store, error)

	Connect(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error
	Reconnect(ctx context.Context) error

	Stats() *ConnectionStats
}

// ConnectionStats is the health and pool state reported by /health and metrics
type ConnectionStats struct {
	Name              string
	Type              DatabaseType
	Connected         bool
	LastHealthCheck   time.Time
	HealthCheckStatus string

	// SQL connection pool stats
	OpenConnections   int
	InUse             int
	Idle              int
	WaitCount         int64
	WaitDuration      time.Duration
	MaxIdleClosed     int64
	MaxLifetimeClosed int64
}

// sqlConnection implements Connection on top of a provider's *sql.DB
type sqlConnection struct {
	name     string
	dbType   DatabaseType
	config   ConnectionConfig
	provider Provider

	// Lazily built, all wrapping the provider's pool
	bunDB *bun.DB
	store *sqlstore.Store

	connected bool
	mu        sync.RWMutex

	lastHealthCheck   time.Time
	healthCheckStatus string
}

func newSQLConnection(name string, dbType DatabaseType, config ConnectionConfig, provider Provider) *sqlConnection {
	return &sqlConnection{
		name:     name,
		dbType:   dbType,
		config:   config,
		provider: provider,
	}
}

func (c *sqlConnection) Name() string {
	return c.name
}

func (c *sqlConnection) Type() DatabaseType {
	return c.dbType
}

func (c *sqlConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return ErrAlreadyConnected
	}

	if err := c.provider.Connect(ctx, &c.config); err != nil {
		return NewConnectionError(c.name, "connect", err)
	}

	c.connected = true
	return nil
}

// Close closes the provider's pool and drops the wrappers built on it
func (c *sqlConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	// bun.DB.Close closes the shared *sql.DB, so only the provider closes it
	if err := c.provider.Close(); err != nil {
		return NewConnectionError(c.name, "close", err)
	}

	c.connected = false
	c.bunDB = nil
	c.store = nil
	return nil
}

func (c *sqlConnection) HealthCheck(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("connection is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastHealthCheck = time.Now()

	if !c.connected {
		c.healthCheckStatus = "disconnected"
		return ErrConnectionClosed
	}

	if err := c.provider.HealthCheck(ctx); err != nil {
		c.healthCheckStatus = "unhealthy: " + err.Error()
		return NewConnectionError(c.name, "health check", err)
	}

	c.healthCheckStatus = "healthy"
	return nil
}

func (c *sqlConnection) Reconnect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		return err
	}
	return c.Connect(ctx)
}

// Native returns the provider's *sql.DB
func (c *sqlConnection) Native() (*sql.DB, error) {
	if c == nil {
		return nil, fmt.Errorf("connection is nil")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return nil, ErrConnectionClosed
	}

	db, err := c.provider.GetNative()
	if err != nil {
		return nil, NewConnectionError(c.name, "get native", err)
	}
	return db, nil
}

// Bun returns the bun.DB wrapping the provider's pool, built on first use
func (c *sqlConnection) Bun() (*bun.DB, error) {
	if c == nil {
		return nil, fmt.Errorf("connection is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bunLocked()
}

func (c *sqlConnection) bunLocked() (*bun.DB, error) {
	if !c.connected {
		return nil, ErrConnectionClosed
	}
	if c.bunDB != nil {
		return c.bunDB, nil
	}

	native, err := c.provider.GetNative()
	if err != nil {
		return nil, NewConnectionError(c.name, "get bun", err)
	}
	c.bunDB = bun.NewDB(native, bunDialect(c.dbType))
	return c.bunDB, nil
}

// Store returns the record catalog of this connection, built on first use
func (c *sqlConnection) Store() (*sqlstore.Store, error) {
	if c == nil {
		return nil, fmt.Errorf("connection is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}
	db, err := c.bunLocked()
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.New(db)
	if err != nil {
		return nil, NewConnectionError(c.name, "open store", err)
	}
	c.store = store
	return c.store, nil
}

func (c *sqlConnection) Stats() *ConnectionStats {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &ConnectionStats{
		Name:              c.name,
		Type:              c.dbType,
		Connected:         c.connected,
		LastHealthCheck:   c.lastHealthCheck,
		HealthCheckStatus: c.healthCheckStatus,
	}

	if c.connected && c.provider != nil {
		if providerStats := c.provider.Stats(); providerStats != nil {
			stats.OpenConnections = providerStats.OpenConnections
			stats.InUse = providerStats.InUse
			stats.Idle = providerStats.Idle
			stats.WaitCount = providerStats.WaitCount
			stats.WaitDuration = providerStats.WaitDuration
			stats.MaxIdleClosed = providerStats.MaxIdleClosed
			stats.MaxLifetimeClosed = providerStats.MaxLifetimeClosed
		}
	}

	return stats
}

func bunDialect(dbType DatabaseType) schema.Dialect {
	switch dbType {
	case DatabaseTypeMySQL:
		return mysqldialect.New()
	case DatabaseTypePostgreSQL:
		return pgdialect.New()
	default:
		return sqlitedialect.New()
	}
}
