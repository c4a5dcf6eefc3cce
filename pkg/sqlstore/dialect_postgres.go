package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
)

// PostgreSQL SQLSTATE codes
const (
	pgForeignKeyViolation   = "23503"
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
	pgUndefinedTable        = "42P01"
	pgInvalidSchemaName     = "3F000"
	pgUndefinedColumn       = "42703"
	pgSerializationFailure  = "40001"
	pgDeadlockDetected      = "40P01"
)

// pgChildPattern reads the referencing table when the error carries no table field, e.g.
// `update or delete on table "a" violates foreign key constraint "fk" on table "b"`
var pgChildPattern = regexp.MustCompile(`violates foreign key constraint "[^"]+" on table "([^"]+)"`)

type postgresDialect struct{}

func (postgresDialect) Name() dialect.Name {
	return dialect.PG
}

func (postgresDialect) TableRef(schema, table string) string {
	return schema + "." + table
}

func (postgresDialect) ListSchemas(ctx context.Context, db bun.IDB) ([]string, error) {
	return queryStrings(ctx, db, `
		SELECT nspname
		FROM pg_namespace
		WHERE left(nspname, 3) <> 'pg_'
			AND nspname <> 'information_schema'
		ORDER BY nspname`)
}

func (postgresDialect) ListTables(ctx context.Context, db bun.IDB, schema string) ([]string, error) {
	return queryStrings(ctx, db, `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = ?
		ORDER BY tablename`, schema)
}

func (postgresDialect) DescribeTable(ctx context.Context, db bun.IDB, schema, table string) (*tableInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			NOT a.attnotnull,
			pg_get_expr(d.adbin, d.adrelid),
			a.attidentity <> '' OR COALESCE(pg_get_expr(d.adbin, d.adrelid) LIKE 'nextval(%', false),
			COALESCE(a.attnum = ANY(i.indkey), false),
			COALESCE(col_description(a.attrelid, a.attnum), '')
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		LEFT JOIN pg_index i ON i.indrelid = a.attrelid AND i.indisprimary
		WHERE n.nspname = ?
			AND c.relname = ?
			AND a.attnum > 0
			AND NOT a.attisdropped
		ORDER BY a.attnum`, schema, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	info := &tableInfo{}
	for rows.Next() {
		var (
			name, colType, comment   string
			nullable, autoinc, inKey bool
			def                      sql.NullString
		)
		if err := rows.Scan(&name, &colType, &nullable, &def, &autoinc, &inKey, &comment); err != nil {
			return nil, err
		}
		attr := heading.NewAttribute(name, colType)
		attr.Nullable = nullable
		attr.Autoincrement = autoinc
		attr.InKey = inKey
		attr.Comment = comment
		if def.Valid {
			v := def.String
			attr.Default = &v
		}
		info.Attributes = append(info.Attributes, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Attributes) == 0 {
		return nil, common.NewNotFoundError("table %s.%s does not exist", schema, table)
	}

	comments, err := queryStrings(ctx, db, `
		SELECT COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = ?
			AND c.relname = ?`, schema, table)
	if err != nil {
		return nil, err
	}
	if len(comments) > 0 {
		info.Comment = comments[0]
	}
	return info, nil
}

func (postgresDialect) ReferencingKeys(ctx context.Context, db bun.IDB, schema, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			con.conname,
			cn.nspname,
			cc.relname,
			ca.attname,
			pn.nspname,
			pc.relname,
			pa.attname
		FROM pg_constraint con
		JOIN pg_class cc ON cc.oid = con.conrelid
		JOIN pg_namespace cn ON cn.oid = cc.relnamespace
		JOIN pg_class pc ON pc.oid = con.confrelid
		JOIN pg_namespace pn ON pn.oid = pc.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(child_attnum, parent_attnum, ord)
		JOIN pg_attribute ca ON ca.attrelid = con.conrelid AND ca.attnum = k.child_attnum
		JOIN pg_attribute pa ON pa.attrelid = con.confrelid AND pa.attnum = k.parent_attnum
		WHERE con.contype = 'f'
			AND pn.nspname = ?
			AND pc.relname = ?
		ORDER BY cn.nspname, cc.relname, con.conname, k.ord`, schema, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var keyRows []keyColumnRow
	for rows.Next() {
		var r keyColumnRow
		if err := rows.Scan(&r.Constraint, &r.ChildSchema, &r.ChildTable, &r.ChildColumn,
			&r.ParentSchema, &r.ParentTable, &r.ParentColumn); err != nil {
			return nil, err
		}
		keyRows = append(keyRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupKeys(keyRows), nil
}

func (postgresDialect) BindUUID(u uuid.UUID) interface{} {
	return u.String()
}

func (postgresDialect) Classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgForeignKeyViolation:
		conflict := &common.IntegrityConflictError{
			ChildSchema: pgErr.SchemaName,
			ChildTable:  pgErr.TableName,
			Message:     pgErr.Message,
			Err:         err,
		}
		if conflict.ChildTable == "" {
			if m := pgChildPattern.FindStringSubmatch(pgErr.Message); m != nil {
				conflict.ChildTable = m[1]
			}
		}
		return conflict
	case pgUniqueViolation:
		return &common.IntegrityConflictError{Message: pgErr.Message, Err: err}
	case pgInsufficientPrivilege:
		return &common.AccessDeniedError{Schema: pgErr.SchemaName, Table: pgErr.TableName, Err: err}
	case pgUndefinedTable, pgInvalidSchemaName:
		return &common.NotFoundError{Message: pgErr.Message}
	case pgUndefinedColumn:
		return common.NewValidationError("attribute", "%s", pgErr.Message)
	case pgSerializationFailure, pgDeadlockDetected:
		return &common.ConflictError{Retryable: true, Err: err}
	default:
		return err
	}
}
