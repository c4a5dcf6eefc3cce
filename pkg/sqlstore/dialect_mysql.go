package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
)

// MySQL server error numbers
const (
	mysqlErrDBAccessDenied     = 1044
	mysqlErrAccessDenied       = 1045
	mysqlErrBadDB              = 1049
	mysqlErrBadField           = 1054
	mysqlErrDupEntry           = 1062
	mysqlErrTableAccessDenied  = 1142
	mysqlErrColumnAccessDenied = 1143
	mysqlErrNoSuchTable        = 1146
	mysqlErrLockWaitTimeout    = 1205
	mysqlErrLockDeadlock       = 1213
	mysqlErrRowIsReferenced    = 1217
	mysqlErrSpecificAccess     = 1227
	mysqlErrProcAccessDenied   = 1370
	mysqlErrRowIsReferenced2   = 1451
	mysqlErrNoReferencedRow2   = 1452
)

var mysqlSystemSchemas = []string{"information_schema", "mysql", "performance_schema", "sys"}

// mysqlChildPattern extracts the referencing table from error 1451, e.g.
// "... a foreign key constraint fails (`lab`.`session`, CONSTRAINT ..."
var mysqlChildPattern = regexp.MustCompile("a foreign key constraint fails \\(`([^`]+)`\\.`([^`]+)`")

// mysqlTypeComment matches the ":type:" prefix some schema tools store in column comments
var mysqlTypeComment = regexp.MustCompile(`^:([A-Za-z0-9@_]+):\s*`)

type mysqlDialect struct{}

func (mysqlDialect) Name() dialect.Name {
	return dialect.MySQL
}

func (mysqlDialect) TableRef(schema, table string) string {
	return schema + "." + table
}

func (mysqlDialect) ListSchemas(ctx context.Context, db bun.IDB) ([]string, error) {
	return queryStrings(ctx, db, `
		SELECT SCHEMA_NAME
		FROM information_schema.SCHEMATA
		WHERE SCHEMA_NAME NOT IN (?)
		ORDER BY SCHEMA_NAME`, bun.In(mysqlSystemSchemas))
}

func (mysqlDialect) ListTables(ctx context.Context, db bun.IDB, schema string) ([]string, error) {
	return queryStrings(ctx, db, `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
			AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, schema)
}

func (mysqlDialect) DescribeTable(ctx context.Context, db bun.IDB, schema, table string) (*tableInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			EXTRA,
			COLUMN_KEY,
			COLUMN_COMMENT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schema, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	info := &tableInfo{}
	for rows.Next() {
		var (
			name, colType, nullable, extra, key, comment string
			def                                          sql.NullString
		)
		if err := rows.Scan(&name, &colType, &nullable, &def, &extra, &key, &comment); err != nil {
			return nil, err
		}
		info.Attributes = append(info.Attributes, mysqlAttribute(name, colType, nullable, def, extra, key, comment))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Attributes) == 0 {
		return nil, common.NewNotFoundError("table %s.%s does not exist", schema, table)
	}

	comments, err := queryStrings(ctx, db, `
		SELECT TABLE_COMMENT
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?`, schema, table)
	if err != nil {
		return nil, err
	}
	if len(comments) > 0 {
		info.Comment = comments[0]
	}
	return info, nil
}

func mysqlAttribute(name, colType, nullable string, def sql.NullString, extra, key, comment string) heading.Attribute {
	attr := heading.NewAttribute(name, colType)
	attr.Nullable = strings.EqualFold(nullable, "YES")
	attr.InKey = key == "PRI"
	attr.Autoincrement = strings.Contains(strings.ToLower(extra), "auto_increment")
	if def.Valid {
		v := def.String
		attr.Default = &v
	}

	if m := mysqlTypeComment.FindStringSubmatch(comment); m != nil {
		comment = comment[len(m[0]):]
		if strings.EqualFold(m[1], "uuid") {
			attr.Type = "uuid"
			attr.Tag = heading.TagUUID
			attr.IsBlob = false
		}
	}
	attr.Comment = comment
	return attr
}

func (mysqlDialect) ReferencingKeys(ctx context.Context, db bun.IDB, schema, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			CONSTRAINT_NAME,
			TABLE_SCHEMA,
			TABLE_NAME,
			COLUMN_NAME,
			REFERENCED_TABLE_SCHEMA,
			REFERENCED_TABLE_NAME,
			REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE REFERENCED_TABLE_SCHEMA = ?
			AND REFERENCED_TABLE_NAME = ?
		ORDER BY TABLE_SCHEMA, TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION`, schema, table)
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

func (mysqlDialect) BindUUID(u uuid.UUID) interface{} {
	b := make([]byte, len(u))
	copy(b, u[:])
	return b
}

func (mysqlDialect) Classify(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}

	switch myErr.Number {
	case mysqlErrRowIsReferenced2, mysqlErrRowIsReferenced:
		conflict := &common.IntegrityConflictError{Message: myErr.Message, Err: err}
		if m := mysqlChildPattern.FindStringSubmatch(myErr.Message); m != nil {
			conflict.ChildSchema = m[1]
			conflict.ChildTable = m[2]
		}
		return conflict
	case mysqlErrDupEntry, mysqlErrNoReferencedRow2:
		return &common.IntegrityConflictError{Message: myErr.Message, Err: err}
	case mysqlErrDBAccessDenied, mysqlErrAccessDenied, mysqlErrTableAccessDenied,
		mysqlErrColumnAccessDenied, mysqlErrSpecificAccess, mysqlErrProcAccessDenied:
		return &common.AccessDeniedError{Err: err}
	case mysqlErrBadDB, mysqlErrNoSuchTable:
		return &common.NotFoundError{Message: myErr.Message}
	case mysqlErrBadField:
		return common.NewValidationError("attribute", "%s", myErr.Message)
	case mysqlErrLockDeadlock, mysqlErrLockWaitTimeout:
		return &common.ConflictError{Retryable: true, Err: err}
	default:
		return err
	}
}

// queryStrings runs a single column query
func queryStrings(ctx context.Context, db bun.IDB, query string, args ...interface{}) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
