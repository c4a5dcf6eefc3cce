package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/bitechdev/RecordSpec/pkg/heading"
)

// columnPair maps a referencing column to the referenced one
type columnPair struct {
	Child  string
	Parent string
}

// foreignKey is one constraint from a child table to a parent table
type foreignKey struct {
	Name         string
	ChildSchema  string
	ChildTable   string
	ParentSchema string
	ParentTable  string
	Columns      []columnPair
}

// tableInfo is what introspection reports about one table
type tableInfo struct {
	Attributes []heading.Attribute
	Comment    string
}

// storeDialect hides catalog queries and error codes of one database family.
// Query building itself goes through bun and its dialect.
type storeDialect interface {
	Name() dialect.Name

	// TableRef is the qualified name used both as identifier and as column prefix
	TableRef(schema, table string) string

	ListSchemas(ctx context.Context, db bun.IDB) ([]string, error)
	ListTables(ctx context.Context, db bun.IDB, schema string) ([]string, error)
	DescribeTable(ctx context.Context, db bun.IDB, schema, table string) (*tableInfo, error)

	// ReferencingKeys lists the foreign keys that point at schema.table
	ReferencingKeys(ctx context.Context, db bun.IDB, schema, table string) ([]foreignKey, error)

	// BindUUID converts a uuid into the value stored in a uuid column
	BindUUID(u uuid.UUID) interface{}

	// Classify maps a driver error into the common error taxonomy
	Classify(err error) error
}

func dialectFor(name dialect.Name) (storeDialect, error) {
	switch name {
	case dialect.MySQL:
		return mysqlDialect{}, nil
	case dialect.PG:
		return postgresDialect{}, nil
	case dialect.SQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %s", name)
	}
}

// groupKeys folds ordered constraint column rows into foreign keys
func groupKeys(rows []keyColumnRow) []foreignKey {
	var keys []foreignKey
	index := make(map[string]int)
	for _, r := range rows {
		id := r.ChildSchema + "." + r.ChildTable + "." + r.Constraint
		i, ok := index[id]
		if !ok {
			keys = append(keys, foreignKey{
				Name:         r.Constraint,
				ChildSchema:  r.ChildSchema,
				ChildTable:   r.ChildTable,
				ParentSchema: r.ParentSchema,
				ParentTable:  r.ParentTable,
			})
			i = len(keys) - 1
			index[id] = i
		}
		keys[i].Columns = append(keys[i].Columns, columnPair{Child: r.ChildColumn, Parent: r.ParentColumn})
	}
	return keys
}

type keyColumnRow struct {
	Constraint   string
	ChildSchema  string
	ChildTable   string
	ChildColumn  string
	ParentSchema string
	ParentTable  string
	ParentColumn string
}
