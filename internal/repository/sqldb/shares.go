package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type sharesRepo struct{ db *dbutil.DB }

const shareColumns = `id, workspace_id, creator_id, sharee_id, permission, expiration`

func scanShare(row rowScanner) (model.Share, error) {
	var idStr, wsStr, creatorStr, shareeStr, permission string
	var expiration sql.NullTime
	if err := row.Scan(&idStr, &wsStr, &creatorStr, &shareeStr, &permission, &expiration); err != nil {
		return model.Share{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Share{}, apierror.UpstreamError(err, "corrupt share id in storage")
	}
	ws, err := uuid.Parse(wsStr)
	if err != nil {
		return model.Share{}, apierror.UpstreamError(err, "corrupt workspace id in storage")
	}
	creator, err := uuid.Parse(creatorStr)
	if err != nil {
		return model.Share{}, apierror.UpstreamError(err, "corrupt creator id in storage")
	}
	sharee, err := uuid.Parse(shareeStr)
	if err != nil {
		return model.Share{}, apierror.UpstreamError(err, "corrupt sharee id in storage")
	}
	s := model.Share{ID: id, WorkspaceID: ws, CreatorID: creator, ShareeID: sharee, Permission: model.Permission(permission)}
	if expiration.Valid {
		s.Expiration = &expiration.Time
	}
	return s, nil
}

func (r sharesRepo) Get(ctx context.Context, id uuid.UUID) (model.Share, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT `+shareColumns+` FROM shares WHERE id = ?`, id.String())
	s, err := scanShare(row)
	if err == sql.ErrNoRows {
		return model.Share{}, apierror.NotFound("share %s not found", id)
	} else if err != nil {
		return model.Share{}, apierror.UpstreamError(err, "failed to read share")
	}
	return s, nil
}

func (r sharesRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Share, error) {
	rows, err := r.db.QueryRebind(ctx,
		`SELECT `+shareColumns+` FROM shares WHERE creator_id = ? OR sharee_id = ?`, userID.String(), userID.String())
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to list shares for user")
	}
	defer rows.Close()
	var out []model.Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read share row")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r sharesRepo) ListForWorkspaceAndSharee(ctx context.Context, workspaceID, shareeID uuid.UUID) (*model.Share, error) {
	row := r.db.QueryRowRebind(ctx,
		`SELECT `+shareColumns+` FROM shares WHERE workspace_id = ? AND sharee_id = ?`, workspaceID.String(), shareeID.String())
	s, err := scanShare(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, apierror.UpstreamError(err, "failed to read share")
	}
	return &s, nil
}

func (r sharesRepo) Create(ctx context.Context, s model.Share) (model.Share, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var expiration any
	if s.Expiration != nil {
		expiration = *s.Expiration
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO shares (id, workspace_id, creator_id, sharee_id, permission, expiration) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.WorkspaceID.String(), s.CreatorID.String(), s.ShareeID.String(), string(s.Permission), expiration)
	if err != nil {
		return model.Share{}, apierror.IntegrityViolation(err, "(workspace, creator, sharee) already exists")
	}
	return s, nil
}

func (r sharesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM shares WHERE id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete share")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("share %s not found", id)
	}
	return nil
}
