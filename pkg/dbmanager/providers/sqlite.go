package providers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/sqlite" // Pure Go SQLite driver

	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// minBusyTimeout keeps writers waiting on a locked file instead of failing fast
const minBusyTimeout = 2 * time.Minute

type SQLiteProvider struct {
	pooledProvider
}

func NewSQLiteProvider() *SQLiteProvider {
	return &SQLiteProvider{pooledProvider{label: "SQLite", dbType: "sqlite"}}
}

// Connect opens the database file and enables foreign key enforcement,
// which cascading deletes and conflict reporting depend on
func (p *SQLiteProvider) Connect(ctx context.Context, cfg ConnectionConfig) error {
	dsn, err := cfg.BuildDSN()
	if err != nil {
		return fmt.Errorf("failed to build DSN: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.GetConnectTimeout())
	err = db.PingContext(connectCtx)
	cancel()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	configurePool(db, cfg)
	// PRAGMAs are per connection, so a single connection keeps them in force
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable SQLite foreign keys: %w", err)
	}

	busyTimeout := cfg.GetQueryTimeout()
	if busyTimeout < minBusyTimeout {
		busyTimeout = minBusyTimeout
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil && cfg.GetEnableLogging() {
			logger.Warn("SQLite %s failed: %v", pragma, err)
		}
	}

	p.attach(db, cfg)
	if cfg.GetEnableLogging() {
		logger.Info("SQLite connection established: name=%s, filepath=%s", cfg.GetName(), cfg.GetFilePath())
	}
	return nil
}

// HealthCheck runs a trivial query, a ping alone does not touch the file
func (p *SQLiteProvider) HealthCheck(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := p.db.QueryRowContext(healthCtx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
