package sqlstore

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

var fixtureSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE table_a (
		a_id INTEGER NOT NULL,
		a_name VARCHAR(32) NOT NULL,
		PRIMARY KEY (a_id))`,
	`CREATE TABLE table_b (
		a_id INTEGER NOT NULL,
		b_id INTEGER NOT NULL,
		b_number FLOAT NOT NULL,
		PRIMARY KEY (a_id, b_id),
		FOREIGN KEY (a_id) REFERENCES table_a (a_id))`,
	`CREATE TABLE table_c (
		a_id INTEGER NOT NULL,
		b_id INTEGER NOT NULL,
		c_id INTEGER NOT NULL,
		c_int INTEGER,
		PRIMARY KEY (a_id, b_id, c_id),
		FOREIGN KEY (a_id, b_id) REFERENCES table_b (a_id, b_id))`,
	`CREATE TABLE diff_table_b (
		a_id INTEGER NOT NULL,
		bs_id INTEGER NOT NULL,
		PRIMARY KEY (a_id, bs_id),
		FOREIGN KEY (a_id) REFERENCES table_a)`,
	`CREATE TABLE table_d (
		a_id INTEGER NOT NULL,
		b_id INTEGER NOT NULL,
		bs_id INTEGER NOT NULL,
		d_note VARCHAR(64),
		PRIMARY KEY (a_id, b_id, bs_id),
		FOREIGN KEY (a_id, b_id) REFERENCES table_b (a_id, b_id),
		FOREIGN KEY (a_id, bs_id) REFERENCES diff_table_b (a_id, bs_id))`,
	`CREATE TABLE "#color" (color_name VARCHAR(16) PRIMARY KEY)`,
	`CREATE TABLE "_scan" (scan_id INTEGER PRIMARY KEY, scan_date DATE)`,
	`CREATE TABLE "__scan_summary" (scan_id INTEGER PRIMARY KEY)`,
	`CREATE TABLE "__scan_summary__channel" (scan_id INTEGER, channel INTEGER, PRIMARY KEY (scan_id, channel))`,
	`INSERT INTO table_a VALUES (0, 'Raphael'), (1, 'Bernie')`,
	`INSERT INTO table_b VALUES (0, 10, 22.12), (0, 11, -1.21), (1, 21, 7.77)`,
	`INSERT INTO table_c VALUES (0, 10, 100, -8), (0, 10, 200, 12), (0, 11, 300, NULL), (1, 21, 400, 3)`,
	`INSERT INTO diff_table_b VALUES (0, 5), (0, 6)`,
	`INSERT INTO table_d VALUES (0, 10, 5, 'first'), (0, 11, 5, 'second'), (0, 11, 6, NULL)`,
}

func newFixture(t *testing.T) *Store {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqldb.Close() })

	for _, stmt := range fixtureSchema {
		_, err := sqldb.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	store, err := New(bun.NewDB(sqldb, sqlitedialect.New()))
	require.NoError(t, err)
	return store
}

func eq(attr string, v interface{}) restriction.Predicate {
	return restriction.Predicate{{Attribute: attr, Op: restriction.OpEq, Value: v}}
}

func TestStore_ListSchemasAndTables(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	schemas, err := store.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, schemas)

	listing, err := store.ListTables(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"DiffTableB", "TableA", "TableB", "TableC", "TableD"}, listing.Manual)
	assert.Equal(t, []string{"Color"}, listing.Lookup)
	assert.Equal(t, []string{"Scan"}, listing.Imported)
	assert.Equal(t, []string{"ScanSummary"}, listing.Computed)
	assert.Equal(t, []string{"ScanSummary.Channel"}, listing.Part)

	_, err = store.ListTables(ctx, "missing")
	assert.Equal(t, common.KindNotFound, common.Kind(err))
}

func TestStore_Open(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableB")
	require.NoError(t, err)
	assert.Equal(t, "table_b", tbl.Name())
	assert.Equal(t, []string{"a_id", "b_id"}, tbl.Heading().PrimaryKey())
	assert.Equal(t, []string{"a_id", "b_id", "b_number"}, tbl.Heading().Names())

	scan, err := store.Open(ctx, "main", "_scan")
	require.NoError(t, err)
	attr, ok := scan.Heading().Get("scan_id")
	require.True(t, ok)
	assert.True(t, attr.Autoincrement)

	_, err = store.Open(ctx, "main", "NoSuchTable")
	assert.Equal(t, common.KindNotFound, common.Kind(err))
}

func TestTable_FetchAndCount(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableC")
	require.NoError(t, err)

	n, err := tbl.Count(ctx, eq("a_id", int64(0)))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := tbl.Fetch(ctx, eq("a_id", int64(0)), common.FetchSpec{
		Attributes: []string{"c_id", "c_int"},
		Order:      []common.OrderTerm{{Attribute: "c_id", Direction: "desc"}},
		Limit:      2,
		Offset:     1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 200, rows[0]["c_id"])
	assert.EqualValues(t, 100, rows[1]["c_id"])
	assert.NotContains(t, rows[0], "a_id")

	nulls, err := tbl.Count(ctx, restriction.Predicate{{Attribute: "c_int", Op: restriction.OpIsNull}})
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)

	_, err = tbl.Fetch(ctx, nil, common.FetchSpec{Order: []common.OrderTerm{{Attribute: "c_id", Direction: "sideways"}}})
	assert.Equal(t, common.KindValidation, common.Kind(err))
}

func TestTable_Distinct(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableB")
	require.NoError(t, err)

	values, err := tbl.Distinct(ctx, nil, "a_id")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.EqualValues(t, 0, values[0])
	assert.EqualValues(t, 1, values[1])

	_, err = tbl.Distinct(ctx, nil, "nope")
	assert.Equal(t, common.KindValidation, common.Kind(err))
}

func TestTable_Descendants(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableA")
	require.NoError(t, err)

	nodes, err := tbl.Descendants(ctx)
	require.NoError(t, err)

	var names []string
	counts := map[string]int{}
	for _, n := range nodes {
		names = append(names, n.Name())
		c, err := n.CountRelated(ctx, eq("a_id", int64(0)))
		require.NoError(t, err)
		counts[n.Name()] = c
	}

	assert.Equal(t, []string{"table_a", "diff_table_b", "table_b", "table_c", "table_d"}, names)
	assert.Equal(t, map[string]int{
		"table_a":      1,
		"diff_table_b": 2,
		"table_b":      2,
		"table_c":      3,
		"table_d":      3,
	}, counts)
}

func TestTable_DescendantsOfLeaf(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableC")
	require.NoError(t, err)

	nodes, err := tbl.Descendants(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "table_c", nodes[0].Name())
}

func TestTable_DeleteWithoutCascade(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableA")
	require.NoError(t, err)

	_, err = tbl.Delete(ctx, eq("a_id", int64(0)), false)
	require.Error(t, err)
	assert.Equal(t, common.KindIntegrityConflict, common.Kind(err))

	n, err := tbl.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	leaf, err := store.Open(ctx, "main", "TableC")
	require.NoError(t, err)
	deleted, err := leaf.Delete(ctx, eq("c_id", int64(300)), false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestTable_DeleteCascade(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableA")
	require.NoError(t, err)

	deleted, err := tbl.Delete(ctx, eq("a_id", int64(0)), true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	remaining := map[string]int{"TableA": 1, "TableB": 1, "TableC": 1, "DiffTableB": 0, "TableD": 0}
	for name, want := range remaining {
		other, err := store.Open(ctx, "main", name)
		require.NoError(t, err)
		n, err := other.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, want, n, name)
	}

	again, err := tbl.Delete(ctx, eq("a_id", int64(0)), true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, again)
}

func TestTable_DeleteCascadeRollsBackWhenNothingMatches(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableB")
	require.NoError(t, err)

	deleted, err := tbl.Delete(ctx, eq("b_id", int64(99)), true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)

	c, err := store.Open(ctx, "main", "TableC")
	require.NoError(t, err)
	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestTable_InsertAndUpdate(t *testing.T) {
	store := newFixture(t)
	ctx := context.Background()

	tbl, err := store.Open(ctx, "main", "TableA")
	require.NoError(t, err)

	n, err := tbl.Insert(ctx, []common.Row{{"a_id": int64(2), "a_name": "Carol"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = tbl.Insert(ctx, []common.Row{{"a_id": int64(2), "a_name": "Dup"}})
	assert.Equal(t, common.KindIntegrityConflict, common.Kind(err))

	_, err = tbl.Insert(ctx, []common.Row{{"a_id": int64(3), "bogus": 1}})
	assert.Equal(t, common.KindValidation, common.Kind(err))

	n, err = tbl.Update(ctx, []common.Row{{"a_id": int64(2), "a_name": "Caroline"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := tbl.Fetch(ctx, eq("a_id", int64(2)), common.FetchSpec{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Caroline", rows[0]["a_name"])

	_, err = tbl.Update(ctx, []common.Row{{"a_name": "no key"}})
	assert.Equal(t, common.KindValidation, common.Kind(err))

	_, err = tbl.Update(ctx, []common.Row{{"a_id": int64(42), "a_name": "ghost"}})
	assert.Equal(t, common.KindNotFound, common.Kind(err))
}

func TestTable_Definition(t *testing.T) {
	store := newFixture(t)
	tbl, err := store.Open(context.Background(), "main", "TableC")
	require.NoError(t, err)

	def := tbl.Definition()
	assert.Contains(t, def, "c_id")
	assert.Contains(t, def, "---")
	assert.Contains(t, def, "c_int")
}
