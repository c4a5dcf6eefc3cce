package providers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// pooledProvider holds the *sql.DB shared by every driver backed provider.
// The concrete providers only differ in how they open and prepare the pool.
type pooledProvider struct {
	label  string
	dbType string
	db     *sql.DB
	config ConnectionConfig
}

func (p *pooledProvider) attach(db *sql.DB, cfg ConnectionConfig) {
	p.db = db
	p.config = cfg
}

func (p *pooledProvider) name() string {
	if p.config == nil {
		return ""
	}
	return p.config.GetName()
}

func (p *pooledProvider) logging() bool {
	return p.config != nil && p.config.GetEnableLogging()
}

func (p *pooledProvider) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s connection: %w", p.label, err)
	}
	if p.logging() {
		logger.Info("%s connection closed: name=%s", p.label, p.name())
	}
	p.db = nil
	return nil
}

func (p *pooledProvider) HealthCheck(ctx context.Context) error {
	return pingWithTimeout(ctx, p.db)
}

func (p *pooledProvider) GetNative() (*sql.DB, error) {
	if p.db == nil {
		return nil, fmt.Errorf("%s connection is not initialized", p.label)
	}
	return p.db, nil
}

func (p *pooledProvider) Stats() *ConnectionStats {
	return poolStats(p.name(), p.dbType, p.db)
}
