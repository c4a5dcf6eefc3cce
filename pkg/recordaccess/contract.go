package recordaccess

import (
	"context"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// Table is a handle on one table of the store. Every method that takes a
// predicate evaluates it against a fresh query; handles keep no result state.
type Table interface {
	Schema() string
	Name() string
	Heading() *heading.Heading

	// Restriction is the scoping predicate already carried by the handle.
	// The engine conjoins it before any client clause.
	Restriction() restriction.Predicate

	Count(ctx context.Context, pred restriction.Predicate) (int, error)
	Fetch(ctx context.Context, pred restriction.Predicate, spec common.FetchSpec) ([]common.Row, error)
	Distinct(ctx context.Context, pred restriction.Predicate, attribute string) ([]interface{}, error)

	// Descendants returns the foreign key descendant closure with the table
	// itself first. Each node appears once.
	Descendants(ctx context.Context) ([]Descendant, error)

	Insert(ctx context.Context, rows []common.Row) (int64, error)
	Update(ctx context.Context, rows []common.Row) (int64, error)

	// Delete removes the rows matching pred and returns how many were removed.
	// With cascade set, dependent rows across the closure go first, all in one
	// transaction.
	Delete(ctx context.Context, pred restriction.Predicate, cascade bool) (int64, error)

	Definition() string
}

// Descendant is one node of a table's descendant closure
type Descendant interface {
	Schema() string
	Name() string

	// CountRelated counts the node's rows that reference rows of the root
	// table matching pred. A row reachable along several paths counts once.
	CountRelated(ctx context.Context, pred restriction.Predicate) (int, error)
}

// Catalog resolves schemas and tables of one connection
type Catalog interface {
	ListSchemas(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) (common.TableListing, error)
	Table(ctx context.Context, schema, name string) (Table, error)
}

type scopedTable struct {
	Table
	scope restriction.Predicate
}

func (s *scopedTable) Restriction() restriction.Predicate {
	return restriction.And(s.Table.Restriction(), s.scope)
}

// Scope returns a handle whose restriction additionally carries clauses.
// It is used for per-endpoint default restrictions.
func Scope(t Table, clauses []restriction.FilterClause) (Table, error) {
	if len(clauses) == 0 {
		return t, nil
	}
	pred, err := restriction.Compile(t.Heading(), clauses)
	if err != nil {
		return nil, err
	}
	return &scopedTable{Table: t, scope: pred}, nil
}
