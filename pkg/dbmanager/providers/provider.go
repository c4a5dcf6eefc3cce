package providers

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// ConnectionStats contains statistics about a database connection
type ConnectionStats struct {
	Name              string
	Type              string // plain string to avoid importing dbmanager
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

// ConnectionConfig is the view of dbmanager.ConnectionConfig a provider needs
type ConnectionConfig interface {
	BuildDSN() (string, error)
	GetName() string
	GetType() string
	GetHost() string
	GetDatabase() string
	GetFilePath() string
	GetConnectTimeout() time.Duration
	GetQueryTimeout() time.Duration
	GetEnableLogging() bool
	GetMaxOpenConns() *int
	GetMaxIdleConns() *int
	GetConnMaxLifetime() *time.Duration
	GetConnMaxIdleTime() *time.Duration
	GetRetryAttempts() int
	GetRetryDelay() time.Duration
	GetRetryMaxDelay() time.Duration
}

// Provider creates and manages the underlying *sql.DB
type Provider interface {
	Connect(ctx context.Context, cfg ConnectionConfig) error
	Close() error
	HealthCheck(ctx context.Context) error
	GetNative() (*sql.DB, error)
	Stats() *ConnectionStats
}

// openWithRetry opens and pings a pool, backing off between failed attempts
func openWithRetry(ctx context.Context, driver, label string, cfg ConnectionConfig) (*sql.DB, error) {
	dsn, err := cfg.BuildDSN()
	if err != nil {
		return nil, fmt.Errorf("failed to build DSN: %w", err)
	}

	attempts := cfg.GetRetryAttempts()
	if attempts < 1 {
		attempts = 1
	}
	initial := cfg.GetRetryDelay()
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := cfg.GetRetryMaxDelay()
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, initial, maxDelay)
			if cfg.GetEnableLogging() {
				logger.Info("Retrying %s connection: attempt=%d/%d, delay=%v", label, attempt+1, attempts, delay)
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		db, err := sql.Open(driver, dsn)
		if err != nil {
			lastErr = err
			if cfg.GetEnableLogging() {
				logger.Warn("Failed to open %s connection: %v", label, err)
			}
			continue
		}

		connectCtx, cancel := context.WithTimeout(ctx, cfg.GetConnectTimeout())
		err = db.PingContext(connectCtx)
		cancel()
		if err != nil {
			lastErr = err
			_ = db.Close()
			if cfg.GetEnableLogging() {
				logger.Warn("Failed to ping %s database: %v", label, err)
			}
			continue
		}

		configurePool(db, cfg)
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, lastErr)
}

func configurePool(db *sql.DB, cfg ConnectionConfig) {
	if cfg.GetMaxOpenConns() != nil {
		db.SetMaxOpenConns(*cfg.GetMaxOpenConns())
	}
	if cfg.GetMaxIdleConns() != nil {
		db.SetMaxIdleConns(*cfg.GetMaxIdleConns())
	}
	if cfg.GetConnMaxLifetime() != nil {
		db.SetConnMaxLifetime(*cfg.GetConnMaxLifetime())
	}
	if cfg.GetConnMaxIdleTime() != nil {
		db.SetConnMaxIdleTime(*cfg.GetConnMaxIdleTime())
	}
}

// poolStats converts database/sql pool statistics
func poolStats(name, dbType string, db *sql.DB) *ConnectionStats {
	if db == nil {
		return &ConnectionStats{Name: name, Type: dbType}
	}

	stats := db.Stats()
	return &ConnectionStats{
		Name:              name,
		Type:              dbType,
		Connected:         true,
		OpenConnections:   stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// pingWithTimeout is the health check shared by the network providers
func pingWithTimeout(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(healthCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// calculateBackoff calculates exponential backoff delay
func calculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	delay := initial * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
