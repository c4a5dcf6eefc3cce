package providers

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// MySQLProvider serves MySQL and MariaDB pipeline databases
type MySQLProvider struct {
	pooledProvider
}

func NewMySQLProvider() *MySQLProvider {
	return &MySQLProvider{pooledProvider{label: "MySQL", dbType: "mysql"}}
}

// Connect opens the pool and checks that InnoDB enforces foreign keys for the
// session. With checks disabled a restricted delete would orphan child rows
// instead of failing with error 1451.
func (p *MySQLProvider) Connect(ctx context.Context, cfg ConnectionConfig) error {
	db, err := openWithRetry(ctx, "mysql", p.label, cfg)
	if err != nil {
		return err
	}

	var checks int
	if err := db.QueryRowContext(ctx, "SELECT @@foreign_key_checks").Scan(&checks); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read foreign_key_checks: %w", err)
	}
	if checks != 1 {
		logger.Warn("MySQL connection %s has foreign_key_checks disabled, restricted deletes will not detect dependents", cfg.GetName())
	}

	p.attach(db, cfg)
	if cfg.GetEnableLogging() {
		logger.Info("MySQL connection established: name=%s, host=%s, database=%s", cfg.GetName(), cfg.GetHost(), cfg.GetDatabase())
	}
	return nil
}
