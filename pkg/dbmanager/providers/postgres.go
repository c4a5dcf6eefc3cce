package providers

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/bitechdev/RecordSpec/pkg/logger"
)

type PostgresProvider struct {
	pooledProvider
}

func NewPostgresProvider() *PostgresProvider {
	return &PostgresProvider{pooledProvider{label: "PostgreSQL", dbType: "postgres"}}
}

// Connect opens a pgx backed pool. The search_path comes from the DSN.
func (p *PostgresProvider) Connect(ctx context.Context, cfg ConnectionConfig) error {
	db, err := openWithRetry(ctx, "pgx", p.label, cfg)
	if err != nil {
		return err
	}
	p.attach(db, cfg)

	if cfg.GetEnableLogging() {
		var version string
		if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
			version = "unknown"
		}
		logger.Info("PostgreSQL connection established: name=%s, host=%s, database=%s, version=%s",
			cfg.GetName(), cfg.GetHost(), cfg.GetDatabase(), version)
	}
	return nil
}
