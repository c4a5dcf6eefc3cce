package dbmanager

import (
	"database/sql"
	"fmt"

	"github.com/bitechdev/RecordSpec/pkg/dbmanager/providers"
)

// createConnection creates a database connection based on the configuration
func createConnection(cfg ConnectionConfig) (Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection configuration: %w", err)
	}

	provider, err := createProvider(cfg.Type)
	if err != nil {
		return nil, err
	}

	return newSQLConnection(cfg.Name, cfg.Type, cfg, provider), nil
}

// createProvider creates a database provider based on the database type
func createProvider(dbType DatabaseType) (Provider, error) {
	switch dbType {
	case DatabaseTypeMySQL:
		return providers.NewMySQLProvider(), nil
	case DatabaseTypePostgreSQL:
		return providers.NewPostgresProvider(), nil
	case DatabaseTypeSQLite:
		return providers.NewSQLiteProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}
}

// NewConnectionFromDB wraps an already opened *sql.DB as a Connection.
// The caller still has to call Connect, which only pings the pool.
func NewConnectionFromDB(name string, dbType DatabaseType, db *sql.DB) Connection {
	provider := providers.NewExistingDBProvider(db, name, string(dbType))
	cfg := ConnectionConfig{Name: name, Type: dbType}
	return newSQLConnection(name, dbType, cfg, provider)
}

// Provider is an alias to the providers.Provider interface
// This allows dbmanager package consumers to use Provider without importing providers
type Provider = providers.Provider
