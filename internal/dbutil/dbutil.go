// Package dbutil opens the broker's persistence database, adapted from
// the teacher's private/dbutil + private/tagsql: repositories write
// queries once, using "?" placeholders, and dbutil rebinds them for
// whichever driver is actually open. Only the two drivers the broker
// ships are recognized; anything else is a configuration error, not a
// runtime one.
package dbutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names recognized by Open.
const (
	Postgres = "postgres"
	SQLite3  = "sqlite3"
)

// DB wraps a *sql.DB with the driver name needed to rebind placeholders,
// mirroring the narrow subset of tagsql.DB the repositories use.
type DB struct {
	*sql.DB
	Driver string
}

// Open opens driver with the given dsn and verifies connectivity.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case Postgres, SQLite3:
	default:
		return nil, fmt.Errorf("dbutil: unsupported driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbutil: open %s: %w", driver, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("dbutil: ping %s: %w", driver, err)
	}
	return &DB{DB: sqlDB, Driver: driver}, nil
}

// Rebind rewrites a query written with "?" placeholders into the
// dialect the DB was opened with. Postgres wants "$1", "$2", ...;
// sqlite3 accepts "?" natively and is returned unchanged.
func (db *DB) Rebind(query string) string {
	if db.Driver != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ExecRebind is a convenience wrapper around Rebind+ExecContext.
func (db *DB) ExecRebind(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.ExecContext(ctx, db.Rebind(query), args...)
}

// QueryRebind is a convenience wrapper around Rebind+QueryContext.
func (db *DB) QueryRebind(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, db.Rebind(query), args...)
}

// QueryRowRebind is a convenience wrapper around Rebind+QueryRowContext.
func (db *DB) QueryRowRebind(ctx context.Context, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ctx, db.Rebind(query), args...)
}
