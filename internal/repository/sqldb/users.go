package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type usersRepo struct{ db *dbutil.DB }

func (r usersRepo) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT id, username, email FROM users WHERE id = ?`, id.String())
	return scanUser(row, id)
}

func (r usersRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT id, username, email FROM users WHERE username = ?`, username)
	return scanUser(row, uuid.Nil)
}

func scanUser(row *sql.Row, id uuid.UUID) (model.User, error) {
	var idStr, name, email string
	switch err := row.Scan(&idStr, &name, &email); err {
	case nil:
		parsed, err := uuid.Parse(idStr)
		if err != nil {
			return model.User{}, apierror.UpstreamError(err, "corrupt user id in storage")
		}
		return model.User{ID: parsed, Username: name, Email: email}, nil
	case sql.ErrNoRows:
		return model.User{}, apierror.NotFound("user %s not found", id)
	default:
		return model.User{}, apierror.UpstreamError(err, "failed to read user")
	}
}

func (r usersRepo) Upsert(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO users (id, username, email) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username, email = excluded.email
	`, u.ID.String(), u.Username, u.Email)
	if err != nil {
		return model.User{}, apierror.UpstreamError(err, "failed to upsert user")
	}
	return u, nil
}
