package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type artifactsRepo struct{ db *dbutil.DB }

const artifactColumns = `id, workspace_id, object_path, object_name, object_revision_date, name, complete`

func scanArtifact(row rowScanner) (model.Artifact, error) {
	var idStr, wsStr, objectPath, objectName, name string
	var revisionDate sql.NullTime
	var complete bool
	if err := row.Scan(&idStr, &wsStr, &objectPath, &objectName, &revisionDate, &name, &complete); err != nil {
		return model.Artifact{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Artifact{}, apierror.UpstreamError(err, "corrupt artifact id in storage")
	}
	ws, err := uuid.Parse(wsStr)
	if err != nil {
		return model.Artifact{}, apierror.UpstreamError(err, "corrupt workspace id in storage")
	}
	a := model.Artifact{
		ID: id, WorkspaceID: ws, ObjectPath: objectPath, ObjectName: objectName,
		Name: name, Complete: complete,
	}
	if revisionDate.Valid {
		a.ObjectRevisionDate = revisionDate.Time
	}
	return a, nil
}

func (r artifactsRepo) Get(ctx context.Context, id uuid.UUID) (model.Artifact, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id.String())
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return model.Artifact{}, apierror.NotFound("artifact %s not found", id)
	} else if err != nil {
		return model.Artifact{}, apierror.UpstreamError(err, "failed to read artifact")
	}
	return a, nil
}

func (r artifactsRepo) ListForWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Artifact, error) {
	rows, err := r.db.QueryRebind(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE workspace_id = ? ORDER BY object_path`, workspaceID.String())
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to list artifacts")
	}
	defer rows.Close()
	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read artifact row")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r artifactsRepo) FindByPath(ctx context.Context, workspaceID uuid.UUID, objectPath string) (*model.Artifact, error) {
	row := r.db.QueryRowRebind(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE workspace_id = ? AND object_path = ?`,
		workspaceID.String(), objectPath)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, apierror.UpstreamError(err, "failed to read artifact")
	}
	return &a, nil
}

func (r artifactsRepo) Create(ctx context.Context, a model.Artifact) (model.Artifact, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	var revisionDate any
	if !a.ObjectRevisionDate.IsZero() {
		revisionDate = a.ObjectRevisionDate
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO artifacts (id, workspace_id, object_path, object_name, object_revision_date, name, complete)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.WorkspaceID.String(), a.ObjectPath, a.ObjectName, revisionDate, a.Name, a.Complete)
	if err != nil {
		return model.Artifact{}, apierror.IntegrityViolation(err, "(workspace, object_path) already registered")
	}
	return a, nil
}

func (r artifactsRepo) MarkComplete(ctx context.Context, id uuid.UUID, revisionDate time.Time) error {
	res, err := r.db.ExecRebind(ctx,
		`UPDATE artifacts SET complete = ?, object_revision_date = ? WHERE id = ?`,
		true, revisionDate, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to mark artifact complete")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("artifact %s not found", id)
	}
	return nil
}

func (r artifactsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM artifacts WHERE id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete artifact")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("artifact %s not found", id)
	}
	return nil
}
