// Package sqldb is the SQL-backed repository.Set implementation,
// adapted from the teacher's satellite/satellitedb package: one file
// per facet, raw SQL written with "?" placeholders and rebound per
// dialect by internal/dbutil, schema managed by internal/migrate.
// internal/repository/memdb remains the implementation engine tests
// use; this package is what cmd/brokerd always opens and what a
// deployed broker points at a real Postgres (or, for small/dev
// installs, sqlite3) instance.
package sqldb

import (
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

// DB is the SQL-backed repository.Set implementation.
type DB struct {
	conn *dbutil.DB
	log  *zap.Logger
}

var _ repository.Set = (*DB)(nil)

// Open opens driver/dsn, applies the schema migration, and returns a
// ready-to-use DB.
func Open(driver, dsn string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := dbutil.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := schema().Run(log, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{conn: conn, log: log}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// Users returns the Users repository facet.
func (db *DB) Users() repository.Users { return usersRepo{db.conn} }

// Nodes returns the Nodes repository facet.
func (db *DB) Nodes() repository.Nodes { return nodesRepo{db.conn} }

// Roots returns the Roots repository facet.
func (db *DB) Roots() repository.Roots { return rootsRepo{db.conn} }

// Workspaces returns the Workspaces repository facet.
func (db *DB) Workspaces() repository.Workspaces { return workspacesRepo{db.conn} }

// Shares returns the Shares repository facet.
func (db *DB) Shares() repository.Shares { return sharesRepo{db.conn} }

// Tokens returns the Tokens repository facet.
func (db *DB) Tokens() repository.Tokens { return tokensRepo{db.conn} }

// ApiKeys returns the ApiKeys repository facet.
func (db *DB) ApiKeys() repository.ApiKeys { return apikeysRepo{db.conn} }

// RootIndexes returns the RootIndexes repository facet.
func (db *DB) RootIndexes() repository.RootIndexes { return rootIndexesRepo{db.conn} }

// CrawlRounds returns the CrawlRounds repository facet.
func (db *DB) CrawlRounds() repository.CrawlRounds { return crawlRoundsRepo{db.conn} }

// Artifacts returns the Artifacts repository facet.
func (db *DB) Artifacts() repository.Artifacts { return artifactsRepo{db.conn} }
