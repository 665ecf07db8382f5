package migrate_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/migrate"
)

func openMemory(t *testing.T) *dbutil.DB {
	t.Helper()
	db, err := dbutil.Open(dbutil.SQLite3, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigration_AppliesStepsInOrder(t *testing.T) {
	db := openMemory(t)

	var ran []int
	m := migrate.Migration{
		Table: "versions",
		Steps: []*migrate.Step{
			{
				Version:     1,
				Description: "create users",
				Action:      migrate.SQL{`CREATE TABLE users (id text PRIMARY KEY)`},
			},
			{
				Version:     2,
				Description: "backfill",
				Action: migrate.Func(func(log *zap.Logger, db *dbutil.DB, tx *sql.Tx) error {
					ran = append(ran, 2)
					return nil
				}),
			},
		},
	}

	require.NoError(t, m.Run(nil, db))
	require.Equal(t, []int{2}, ran)

	_, err := db.Exec(`INSERT INTO users (id) VALUES ('a')`)
	require.NoError(t, err)
}

func TestMigration_SkipsAlreadyAppliedSteps(t *testing.T) {
	db := openMemory(t)

	count := 0
	step := &migrate.Step{
		Version:     1,
		Description: "once",
		Action: migrate.Func(func(log *zap.Logger, db *dbutil.DB, tx *sql.Tx) error {
			count++
			return nil
		}),
	}
	m := migrate.Migration{Table: "versions", Steps: []*migrate.Step{step}}

	require.NoError(t, m.Run(nil, db))
	require.NoError(t, m.Run(nil, db))
	require.Equal(t, 1, count)
}
