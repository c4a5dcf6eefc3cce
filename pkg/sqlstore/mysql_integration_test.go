//go:build integration

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

var mysqlSchema = []string{
	`CREATE TABLE table_a (
		a_id INT NOT NULL,
		a_name VARCHAR(32) NOT NULL,
		PRIMARY KEY (a_id)) ENGINE=InnoDB`,
	`CREATE TABLE table_b (
		a_id INT NOT NULL,
		b_id INT NOT NULL,
		b_number DECIMAL(5,2) NOT NULL,
		PRIMARY KEY (a_id, b_id),
		FOREIGN KEY (a_id) REFERENCES table_a (a_id)) ENGINE=InnoDB`,
	`CREATE TABLE table_c (
		a_id INT NOT NULL,
		b_id INT NOT NULL,
		c_id INT NOT NULL,
		c_date DATE,
		PRIMARY KEY (a_id, b_id, c_id),
		FOREIGN KEY (a_id, b_id) REFERENCES table_b (a_id, b_id)) ENGINE=InnoDB`,
	"CREATE TABLE `#tagged` (" +
		"tag_uuid BINARY(16) NOT NULL COMMENT ':uuid: tag identifier', " +
		"tag_name VARCHAR(16) NOT NULL, " +
		"PRIMARY KEY (tag_uuid)) ENGINE=InnoDB",
	`INSERT INTO table_a VALUES (0, 'Raphael'), (1, 'Bernie')`,
	`INSERT INTO table_b VALUES (0, 10, 6.123), (0, 11, -1.21), (1, 21, 7.77)`,
	`INSERT INTO table_c VALUES (0, 10, 100, '1970-01-02'), (0, 10, 200, NULL), (0, 11, 300, NULL), (1, 21, 400, NULL)`,
	"INSERT INTO `#tagged` VALUES (UNHEX(REPLACE('d710463d-86d5-4885-8c62-d0ae857e2910', '-', '')), 'first')",
}

// setupMySQL starts a MySQL container with the fixture schema "lab"
func setupMySQL(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_DATABASE":      "lab",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(120 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)

	dsn := fmt.Sprintf("root:secret@tcp(%s:%s)/lab?parseTime=true", host, port.Port())
	sqldb, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, sqldb.PingContext(ctx))

	for _, stmt := range mysqlSchema {
		_, err := sqldb.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	store, err := New(bun.NewDB(sqldb, mysqldialect.New()))
	require.NoError(t, err)
	return store
}

func TestMySQLStore(t *testing.T) {
	store := setupMySQL(t)
	engine := recordaccess.NewEngine(recordaccess.WithTableDisplayName(DisplayTableName))
	ctx := context.Background()

	t.Run("catalog", func(t *testing.T) {
		schemas, err := store.ListSchemas(ctx)
		require.NoError(t, err)
		assert.Contains(t, schemas, "lab")
		assert.NotContains(t, schemas, "mysql")

		listing, err := store.ListTables(ctx, "lab")
		require.NoError(t, err)
		assert.Equal(t, []string{"TableA", "TableB", "TableC"}, listing.Manual)
		assert.Equal(t, []string{"Tagged"}, listing.Lookup)
	})

	t.Run("decimal and date projection", func(t *testing.T) {
		tbl, err := store.Table(ctx, "lab", "TableB")
		require.NoError(t, err)
		resp, err := engine.Fetch(ctx, tbl, recordaccess.FetchRequest{
			Restriction: []restriction.FilterClause{{AttributeName: "b_id", Operation: "=", Value: 10}},
		})
		require.NoError(t, err)
		require.Len(t, resp.Records, 1)
		assert.Equal(t, "6.12", resp.Records[0][2])

		tbl, err = store.Table(ctx, "lab", "TableC")
		require.NoError(t, err)
		resp, err = engine.Fetch(ctx, tbl, recordaccess.FetchRequest{
			Restriction: []restriction.FilterClause{{AttributeName: "c_date", Operation: "!=", Value: nil}},
		})
		require.NoError(t, err)
		require.Len(t, resp.Records, 1)
		assert.EqualValues(t, 86400, resp.Records[0][3])
	})

	t.Run("uuid round trip", func(t *testing.T) {
		const id = "d710463d-86d5-4885-8c62-d0ae857e2910"
		tbl, err := store.Table(ctx, "lab", "Tagged")
		require.NoError(t, err)
		resp, err := engine.Fetch(ctx, tbl, recordaccess.FetchRequest{
			Restriction: []restriction.FilterClause{{AttributeName: "tag_uuid", Operation: "=", Value: id}},
		})
		require.NoError(t, err)
		require.Equal(t, 1, resp.TotalCount)
		assert.Equal(t, id, resp.Records[0][0])
	})

	t.Run("dependencies and deletes", func(t *testing.T) {
		tbl, err := store.Table(ctx, "lab", "TableA")
		require.NoError(t, err)
		zero := []restriction.FilterClause{{AttributeName: "a_id", Operation: "=", Value: 0}}

		deps, err := engine.Dependencies(ctx, tbl, zero)
		require.NoError(t, err)
		counts := map[string]int{}
		for _, d := range deps.Dependencies {
			require.True(t, d.Accessible)
			counts[d.Table] = *d.Count
		}
		assert.Equal(t, map[string]int{"table_a": 1, "table_b": 2, "table_c": 3}, counts)

		_, err = engine.Delete(ctx, tbl, recordaccess.DeleteRequest{Restriction: zero})
		require.Error(t, err)
		var conflict *common.IntegrityConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "lab", conflict.ChildSchema)
		assert.Equal(t, "TableB", conflict.ChildTable)

		n, err := engine.Delete(ctx, tbl, recordaccess.DeleteRequest{Restriction: zero, Cascade: true})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, err = engine.Delete(ctx, tbl, recordaccess.DeleteRequest{Restriction: zero, Cascade: true})
		assert.Equal(t, common.KindNotFound, common.Kind(err))
	})
}
