// Package migrate runs ordered, versioned schema migrations against a
// *sql.DB, adapted from the teacher's internal/migrate package: a
// Migration is a Table tracking applied versions plus a list of Steps,
// each either raw SQL or a Go function given the open transaction.
package migrate

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/dbutil"
)

// Action applies one migration step against tx.
type Action interface {
	Run(log *zap.Logger, db *dbutil.DB, tx *sql.Tx) error
}

// SQL is an Action that executes a fixed list of statements in order.
type SQL []string

// Run implements Action.
func (stmts SQL) Run(log *zap.Logger, db *dbutil.DB, tx *sql.Tx) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: exec %q: %w", stmt, err)
		}
	}
	return nil
}

// Func adapts a plain function into an Action, for steps that need to
// do more than run SQL (backfills, file moves, ...).
type Func func(log *zap.Logger, db *dbutil.DB, tx *sql.Tx) error

// Run implements Action.
func (f Func) Run(log *zap.Logger, db *dbutil.DB, tx *sql.Tx) error { return f(log, db, tx) }

// Step is one version in a Migration.
type Step struct {
	Description string
	Version     int
	Action      Action
}

// Migration is an ordered set of Steps tracked in Table.
type Migration struct {
	Table string
	Steps []*Step
}

// Run applies every Step whose Version is greater than the highest
// version already recorded in Table, each inside its own transaction,
// recording the new version on success before moving to the next step.
func (m *Migration) Run(log *zap.Logger, db *dbutil.DB) error {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (version integer NOT NULL)`, m.Table)); err != nil {
		return fmt.Errorf("migrate: create version table: %w", err)
	}

	current, err := m.currentVersion(db.DB)
	if err != nil {
		return err
	}

	for _, step := range m.Steps {
		if step.Version <= current {
			continue
		}
		log.Info("applying migration step",
			zap.Int("version", step.Version), zap.String("description", step.Description))

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate: begin step %d: %w", step.Version, err)
		}
		if err := step.Action.Run(log, db, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: step %d (%s): %w", step.Version, step.Description, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, m.Table)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: clear version table at step %d: %w", step.Version, err)
		}
		if _, err := tx.Exec(db.Rebind(fmt.Sprintf(`INSERT INTO %s (version) VALUES (?)`, m.Table)), step.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: record version %d: %w", step.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate: commit step %d: %w", step.Version, err)
		}
		current = step.Version
	}
	return nil
}

func (m *Migration) currentVersion(db *sql.DB) (int, error) {
	row := db.QueryRow(fmt.Sprintf(`SELECT version FROM %s LIMIT 1`, m.Table))
	var version int
	switch err := row.Scan(&version); err {
	case nil:
		return version, nil
	case sql.ErrNoRows:
		return 0, nil
	default:
		return 0, fmt.Errorf("migrate: read current version: %w", err)
	}
}
