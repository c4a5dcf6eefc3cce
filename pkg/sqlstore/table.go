package sqlstore

import (
	"context"
	"errors"
	"sort"

	"github.com/uptrace/bun"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// errNothingDeleted rolls back a cascade whose restriction matched no rows
var errNothingDeleted = errors.New("nothing deleted")

// Table is a handle on one physical table
type Table struct {
	store   *Store
	schema  string
	name    string
	heading *heading.Heading
	comment string
}

func (t *Table) Schema() string {
	return t.schema
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Heading() *heading.Heading {
	return t.heading
}

// Restriction is empty for a freshly opened table
func (t *Table) Restriction() restriction.Predicate {
	return nil
}

// Comment returns the table comment, if any
func (t *Table) Comment() string {
	return t.comment
}

func (t *Table) Definition() string {
	return t.heading.Definition(t.comment)
}

func (t *Table) ref() string {
	return t.store.dialect.TableRef(t.schema, t.name)
}

func (t *Table) ident() bun.Ident {
	return bun.Ident(t.ref())
}

func (t *Table) Count(ctx context.Context, pred restriction.Predicate) (int, error) {
	var n int
	err := t.store.observe(ctx, "count", t.schema, t.name, func(ctx context.Context) error {
		var err error
		n, err = t.count(ctx, t.store.db, pred)
		return err
	})
	return n, err
}

func (t *Table) count(ctx context.Context, db bun.IDB, pred restriction.Predicate) (int, error) {
	q := db.NewSelect().TableExpr("?", t.ident())
	if where := t.store.renderPredicate("", pred); !where.Empty() {
		q = q.Where(where.Query, where.Args...)
	}
	return q.Count(ctx)
}

func (t *Table) Fetch(ctx context.Context, pred restriction.Predicate, spec common.FetchSpec) ([]common.Row, error) {
	columns := spec.Attributes
	if len(columns) == 0 {
		columns = t.heading.Names()
	}

	q := t.store.db.NewSelect().TableExpr("?", t.ident())
	for _, c := range columns {
		q = q.ColumnExpr("?", bun.Ident(c))
	}
	if where := t.store.renderPredicate("", pred); !where.Empty() {
		q = q.Where(where.Query, where.Args...)
	}
	for _, term := range spec.Order {
		expr, col, err := orderFragment(term)
		if err != nil {
			return nil, err
		}
		q = q.OrderExpr(expr, col)
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}
	if spec.Offset > 0 {
		q = q.Offset(spec.Offset)
	}

	var rows []map[string]interface{}
	err := t.store.observe(ctx, "fetch", t.schema, t.name, func(ctx context.Context) error {
		return q.Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *Table) Distinct(ctx context.Context, pred restriction.Predicate, attribute string) ([]interface{}, error) {
	if !t.heading.Has(attribute) {
		return nil, common.NewValidationError("attribute", "unknown attribute %q", attribute)
	}

	col := bun.Ident(attribute)
	q := t.store.db.NewSelect().Distinct().ColumnExpr("?", col).TableExpr("?", t.ident())
	if where := t.store.renderPredicate("", pred); !where.Empty() {
		q = q.Where(where.Query, where.Args...)
	}
	q = q.OrderExpr("? ASC", col)

	var rows []map[string]interface{}
	err := t.store.observe(ctx, "distinct", t.schema, t.name, func(ctx context.Context) error {
		return q.Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[attribute])
	}
	return values, nil
}

func (t *Table) Descendants(ctx context.Context) ([]recordaccess.Descendant, error) {
	var g *descendantGraph
	err := t.store.observe(ctx, "descendants", t.schema, t.name, func(ctx context.Context) error {
		var err error
		g, err = t.store.buildGraph(ctx, t.store.db, t.schema, t.name)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]recordaccess.Descendant, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = &descendant{table: t, graph: g, node: n}
	}
	return out, nil
}

func (t *Table) Insert(ctx context.Context, rows []common.Row) (int64, error) {
	var total int64
	err := t.store.observe(ctx, "insert", t.schema, t.name, func(ctx context.Context) error {
		return t.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, row := range rows {
				values, err := t.bindRow(row)
				if err != nil {
					return err
				}
				res, err := tx.NewInsert().Model(&values).TableExpr("?", t.ident()).Exec(ctx)
				if err != nil {
					return err
				}
				n, _ := res.RowsAffected()
				total += n
			}
			return nil
		})
	})
	return total, err
}

func (t *Table) Update(ctx context.Context, rows []common.Row) (int64, error) {
	key := t.heading.PrimaryKey()
	var total int64
	err := t.store.observe(ctx, "update", t.schema, t.name, func(ctx context.Context) error {
		return t.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, row := range rows {
				values, err := t.bindRow(row)
				if err != nil {
					return err
				}

				var match restriction.Predicate
				for _, k := range key {
					v, ok := values[k]
					if !ok || v == nil {
						return common.NewValidationError("row", "primary key attribute %q is required", k)
					}
					match = append(match, restriction.Condition{Attribute: k, Op: restriction.OpEq, Value: v})
					delete(values, k)
				}
				if len(values) == 0 {
					return common.NewValidationError("row", "no attributes to update")
				}

				n, err := t.count(ctx, tx, match)
				if err != nil {
					return err
				}
				if n == 0 {
					return common.NewNotFoundError("no row of %s matches the given primary key", t.name)
				}

				columns := make([]string, 0, len(values))
				for c := range values {
					columns = append(columns, c)
				}
				sort.Strings(columns)

				q := tx.NewUpdate().TableExpr("?", t.ident())
				for _, c := range columns {
					q = q.Set("? = ?", bun.Ident(c), values[c])
				}
				where := t.store.renderPredicate("", match)
				if _, err := q.Where(where.Query, where.Args...).Exec(ctx); err != nil {
					return err
				}
				total++
			}
			return nil
		})
	})
	return total, err
}

// bindRow validates attribute names and converts values for storage
func (t *Table) bindRow(row common.Row) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(row))
	for name, v := range row {
		attr, ok := t.heading.Get(name)
		if !ok {
			return nil, common.NewValidationError("row", "unknown attribute %q", name)
		}
		bound, err := t.store.bindColumnValue(attr, v)
		if err != nil {
			return nil, err
		}
		values[name] = bound
	}
	if len(values) == 0 {
		return nil, common.NewValidationError("row", "row has no attributes")
	}
	return values, nil
}

func (t *Table) Delete(ctx context.Context, pred restriction.Predicate, cascade bool) (int64, error) {
	var affected int64
	op := "delete"
	if cascade {
		op = "delete_cascade"
	}

	err := t.store.observe(ctx, op, t.schema, t.name, func(ctx context.Context) error {
		if !cascade {
			var err error
			affected, err = t.deleteRows(ctx, t.store.db, pred)
			return err
		}

		err := t.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			g, err := t.store.buildGraph(ctx, tx, t.schema, t.name)
			if err != nil {
				return err
			}
			for i := len(g.nodes) - 1; i > 0; i-- {
				n := g.nodes[i]
				ref := t.store.dialect.TableRef(n.Schema, n.Table)
				seq := 0
				where := g.related(n, ref, pred, &seq)
				res, err := tx.NewDelete().TableExpr("?", bun.Ident(ref)).Where(where.Query, where.Args...).Exec(ctx)
				if err != nil {
					return err
				}
				if n, _ := res.RowsAffected(); n > 0 {
					logger.Debug("cascade from %s.%s removed %d rows of %s", t.schema, t.name, n, ref)
				}
			}

			affected, err = t.deleteRows(ctx, tx, pred)
			if err != nil {
				return err
			}
			if affected == 0 {
				return errNothingDeleted
			}
			return nil
		})
		if errors.Is(err, errNothingDeleted) {
			return nil
		}
		return err
	})
	return affected, err
}

func (t *Table) deleteRows(ctx context.Context, db bun.IDB, pred restriction.Predicate) (int64, error) {
	q := db.NewDelete().TableExpr("?", t.ident())
	if where := t.store.renderPredicate("", pred); !where.Empty() {
		q = q.Where(where.Query, where.Args...)
	} else {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// descendant is one node of a table's closure
type descendant struct {
	table *Table
	graph *descendantGraph
	node  *graphNode
}

func (d *descendant) Schema() string {
	return d.node.Schema
}

func (d *descendant) Name() string {
	return d.node.Table
}

// Depth is the breadth-first distance from the root table
func (d *descendant) Depth() int {
	return d.node.Depth
}

func (d *descendant) CountRelated(ctx context.Context, pred restriction.Predicate) (int, error) {
	if d.node == d.graph.root {
		return d.table.Count(ctx, pred)
	}

	const ref = "d0"
	seq := 0
	where := d.graph.related(d.node, ref, pred, &seq)
	store := d.table.store
	tableRef := store.dialect.TableRef(d.node.Schema, d.node.Table)

	var n int
	err := store.observe(ctx, "count_related", d.node.Schema, d.node.Table, func(ctx context.Context) error {
		var err error
		n, err = store.db.NewSelect().
			TableExpr("? AS ?", bun.Ident(tableRef), bun.Ident(ref)).
			Where(where.Query, where.Args...).
			Count(ctx)
		return err
	})
	return n, err
}
