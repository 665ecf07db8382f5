package dbutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/dbutil"
)

func TestOpen_SQLite3RoundTrips(t *testing.T) {
	db, err := dbutil.Open(dbutil.SQLite3, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecRebind(context.Background(), `CREATE TABLE t (id integer PRIMARY KEY, name text)`)
	require.NoError(t, err)

	_, err = db.ExecRebind(context.Background(), `INSERT INTO t (id, name) VALUES (?, ?)`, 1, "alice")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRowRebind(context.Background(), `SELECT name FROM t WHERE id = ?`, 1).Scan(&name))
	require.Equal(t, "alice", name)
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	_, err := dbutil.Open("mysql", "whatever")
	require.Error(t, err)
}

func TestRebind_TranslatesPlaceholdersForPostgres(t *testing.T) {
	db := &dbutil.DB{Driver: dbutil.Postgres}
	got := db.Rebind(`SELECT * FROM t WHERE a = ? AND b = ?`)
	require.Equal(t, `SELECT * FROM t WHERE a = $1 AND b = $2`, got)
}

func TestRebind_LeavesSQLitePlaceholdersAlone(t *testing.T) {
	db := &dbutil.DB{Driver: dbutil.SQLite3}
	got := db.Rebind(`SELECT * FROM t WHERE a = ?`)
	require.Equal(t, `SELECT * FROM t WHERE a = ?`, got)
}
