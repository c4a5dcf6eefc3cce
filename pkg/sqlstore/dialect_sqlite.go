package sqlstore

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
)

const sqliteMainSchema = "main"

// sqliteDialect reads the catalog through PRAGMA statements. SQLite errors
// carry no structured codes across drivers, so classification goes by message.
type sqliteDialect struct{}

func (sqliteDialect) Name() dialect.Name {
	return dialect.SQLite
}

func (sqliteDialect) TableRef(schema, table string) string {
	if schema == "" || schema == sqliteMainSchema {
		return table
	}
	return schema + "." + table
}

func (sqliteDialect) ListSchemas(ctx context.Context, db bun.IDB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var schemas []string
	for rows.Next() {
		var (
			seq        int
			name, file sql.NullString
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err
		}
		if name.String != "temp" {
			schemas = append(schemas, name.String)
		}
	}
	sort.Strings(schemas)
	return schemas, rows.Err()
}

func (sqliteDialect) ListTables(ctx context.Context, db bun.IDB, schema string) ([]string, error) {
	return queryStrings(ctx, db, `
		SELECT name
		FROM ?.sqlite_master
		WHERE type = 'table'
			AND substr(name, 1, 7) <> 'sqlite_'
		ORDER BY name`, bun.Ident(sqliteSchema(schema)))
}

func (sqliteDialect) DescribeTable(ctx context.Context, db bun.IDB, schema, table string) (*tableInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA ?.table_info(?)", bun.Ident(sqliteSchema(schema)), bun.Ident(table))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	info := &tableInfo{}
	keyCount := 0
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			def              sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &def, &pk); err != nil {
			return nil, err
		}
		attr := heading.NewAttribute(name, colType)
		attr.Nullable = notNull == 0 && pk == 0
		attr.InKey = pk > 0
		if def.Valid {
			v := def.String
			attr.Default = &v
		}
		if attr.InKey {
			keyCount++
		}
		info.Attributes = append(info.Attributes, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Attributes) == 0 {
		return nil, common.NewNotFoundError("table %s.%s does not exist", sqliteSchema(schema), table)
	}

	// a lone INTEGER PRIMARY KEY aliases the rowid and is assigned automatically
	if keyCount == 1 {
		for i := range info.Attributes {
			a := &info.Attributes[i]
			if a.InKey && strings.EqualFold(strings.TrimSpace(a.Type), "integer") {
				a.Autoincrement = true
			}
		}
	}
	return info, nil
}

func (d sqliteDialect) ReferencingKeys(ctx context.Context, db bun.IDB, schema, table string) ([]foreignKey, error) {
	schema = sqliteSchema(schema)
	tables, err := d.ListTables(ctx, db, schema)
	if err != nil {
		return nil, err
	}

	var keys []foreignKey
	for _, child := range tables {
		childKeys, err := d.foreignKeysOf(ctx, db, schema, child)
		if err != nil {
			return nil, err
		}
		for _, fk := range childKeys {
			if strings.EqualFold(fk.ParentTable, table) {
				fk.ParentTable = table
				keys = append(keys, fk)
			}
		}
	}

	for i := range keys {
		if err := d.resolveImplicitParentColumns(ctx, db, &keys[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (sqliteDialect) foreignKeysOf(ctx context.Context, db bun.IDB, schema, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA ?.foreign_key_list(?)", bun.Ident(schema), bun.Ident(table))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var keyRows []keyColumnRow
	for rows.Next() {
		var (
			id, seq                           int
			parent, from                      string
			to, onUpdate, onDelete, matchMode sql.NullString
		)
		if err := rows.Scan(&id, &seq, &parent, &from, &to, &onUpdate, &onDelete, &matchMode); err != nil {
			return nil, err
		}
		keyRows = append(keyRows, keyColumnRow{
			Constraint:   "fk_" + table + "_" + strconv.Itoa(id),
			ChildSchema:  schema,
			ChildTable:   table,
			ChildColumn:  from,
			ParentSchema: schema,
			ParentTable:  parent,
			ParentColumn: to.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupKeys(keyRows), nil
}

// resolveImplicitParentColumns fills parent columns for "REFERENCES parent"
// clauses that omit the column list and so target the parent's primary key
func (d sqliteDialect) resolveImplicitParentColumns(ctx context.Context, db bun.IDB, fk *foreignKey) error {
	implicit := false
	for _, c := range fk.Columns {
		if c.Parent == "" {
			implicit = true
		}
	}
	if !implicit {
		return nil
	}

	info, err := d.DescribeTable(ctx, db, fk.ParentSchema, fk.ParentTable)
	if err != nil {
		return err
	}
	key := heading.New(info.Attributes).PrimaryKey()
	for i := range fk.Columns {
		if fk.Columns[i].Parent == "" && i < len(key) {
			fk.Columns[i].Parent = key[i]
		}
	}
	return nil
}

func (sqliteDialect) BindUUID(u uuid.UUID) interface{} {
	b := make([]byte, len(u))
	copy(b, u[:])
	return b
}

func (sqliteDialect) Classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &common.IntegrityConflictError{Message: "rows are referenced by a dependent table", Err: err}
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return &common.IntegrityConflictError{Message: msg, Err: err}
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return &common.ConflictError{Retryable: true, Err: err}
	case strings.Contains(msg, "no such table"):
		return &common.NotFoundError{Message: msg}
	case strings.Contains(msg, "no such column"):
		return common.NewValidationError("attribute", "%s", msg)
	case strings.Contains(msg, "not authorized"):
		return &common.AccessDeniedError{Err: err}
	default:
		return err
	}
}

func sqliteSchema(schema string) string {
	if schema == "" {
		return sqliteMainSchema
	}
	return schema
}
