// Package sqlstore implements record access tables over a relational database
// through bun. MySQL, PostgreSQL and SQLite are supported.
package sqlstore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
	"github.com/bitechdev/RecordSpec/pkg/tracing"
)

// Store is a catalog of the tables reachable through one connection
type Store struct {
	db      *bun.DB
	dialect storeDialect
}

// New creates a store for db, choosing catalog queries by bun dialect
func New(db *bun.DB) (*Store, error) {
	d, err := dialectFor(db.Dialect().Name())
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

// DB returns the underlying bun database
func (s *Store) DB() *bun.DB {
	return s.db
}

// ListSchemas returns the user schemas visible to the connection
func (s *Store) ListSchemas(ctx context.Context) ([]string, error) {
	var schemas []string
	err := s.observe(ctx, "list_schemas", "", "", func(ctx context.Context) error {
		var err error
		schemas, err = s.dialect.ListSchemas(ctx, s.db)
		return err
	})
	return schemas, err
}

// ListTables returns the tables of schema grouped by tier
func (s *Store) ListTables(ctx context.Context, schema string) (common.TableListing, error) {
	physical, err := s.physicalTables(ctx, schema)
	if err != nil {
		return common.TableListing{}, err
	}
	return listingOf(physical), nil
}

func (s *Store) physicalTables(ctx context.Context, schema string) ([]string, error) {
	var tables []string
	err := s.observe(ctx, "list_tables", schema, "", func(ctx context.Context) error {
		var err error
		tables, err = s.dialect.ListTables(ctx, s.db, schema)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		schemas, err := s.ListSchemas(ctx)
		if err != nil {
			return nil, err
		}
		if !contains(schemas, schema) {
			return nil, common.NewNotFoundError("schema %s not found", schema)
		}
	}
	return tables, nil
}

// Open resolves a table by physical or display name and reads its heading
func (s *Store) Open(ctx context.Context, schema, name string) (*Table, error) {
	physical, err := s.physicalTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	resolved, ok := resolveTableName(physical, name)
	if !ok {
		return nil, common.NewNotFoundError("table %s not found in schema %s", name, schema)
	}

	var info *tableInfo
	err = s.observe(ctx, "describe", schema, resolved, func(ctx context.Context) error {
		var err error
		info, err = s.dialect.DescribeTable(ctx, s.db, schema, resolved)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Table{
		store:   s,
		schema:  schema,
		name:    resolved,
		heading: heading.New(info.Attributes),
		comment: info.Comment,
	}, nil
}

// Table implements recordaccess.Catalog
func (s *Store) Table(ctx context.Context, schema, name string) (recordaccess.Table, error) {
	t, err := s.Open(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// observe runs fn inside a span, records its duration and classifies its error
func (s *Store) observe(ctx context.Context, op, schema, table string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartTableSpan(ctx, op, schema, table)
	start := time.Now()

	err := common.NewInternalError(op, s.classify(fn(ctx)))

	metrics.GetProvider().RecordDBQuery(op, table, time.Since(start), err)
	tracing.EndSpan(span, err)
	if err != nil {
		logger.Debug("sqlstore %s on %s.%s failed: %v", op, schema, table, err)
	}
	return err
}

func (s *Store) classify(err error) error {
	if err == nil || common.Kind(err) != common.KindInternal {
		return err
	}
	return s.dialect.Classify(err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
