package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type nodesRepo struct{ db *dbutil.DB }

func (r nodesRepo) Get(ctx context.Context, id uuid.UUID) (model.StorageNode, error) {
	row := r.db.QueryRowRebind(ctx, `
		SELECT id, name, api_url, sts_api_url, region, access_key_id, secret_access_key, assume_role_arn, creator_id
		FROM storage_nodes WHERE id = ?`, id.String())
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return model.StorageNode{}, apierror.NotFound("node %s not found", id)
	}
	return n, err
}

func (r nodesRepo) List(ctx context.Context) ([]model.StorageNode, error) {
	rows, err := r.db.QueryRebind(ctx, `
		SELECT id, name, api_url, sts_api_url, region, access_key_id, secret_access_key, assume_role_arn, creator_id
		FROM storage_nodes ORDER BY name`)
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to list nodes")
	}
	defer rows.Close()

	var out []model.StorageNode
	for rows.Next() {
		n, err := scanNodeRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (model.StorageNode, error) {
	var idStr, creatorStr string
	var n model.StorageNode
	if err := row.Scan(&idStr, &n.Name, &n.APIURL, &n.STSAPIURL, &n.Region,
		&n.AccessKeyID, &n.SecretAccessKey, &n.AssumeRoleARN, &creatorStr); err != nil {
		return model.StorageNode{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.StorageNode{}, apierror.UpstreamError(err, "corrupt node id in storage")
	}
	n.ID = id
	if creatorStr != "" {
		creator, err := uuid.Parse(creatorStr)
		if err != nil {
			return model.StorageNode{}, apierror.UpstreamError(err, "corrupt creator id in storage")
		}
		n.CreatorID = creator
	}
	return n, nil
}

func scanNodeRows(rows *sql.Rows) (model.StorageNode, error) {
	n, err := scanNode(rows)
	if err != nil {
		return model.StorageNode{}, apierror.UpstreamError(err, "failed to read node row")
	}
	return n, nil
}

func (r nodesRepo) Create(ctx context.Context, n model.StorageNode) (model.StorageNode, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO storage_nodes
			(id, name, api_url, sts_api_url, region, access_key_id, secret_access_key, assume_role_arn, creator_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID.String(), n.Name, n.APIURL, n.STSAPIURL, n.Region,
		n.AccessKeyID, n.SecretAccessKey, n.AssumeRoleARN, n.CreatorID.String())
	if err != nil {
		return model.StorageNode{}, apierror.IntegrityViolation(err, "node name or api_url already registered")
	}
	return n, nil
}

func (r nodesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM storage_nodes WHERE id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete node")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("node %s not found", id)
	}
	_, err = r.db.ExecRebind(ctx, `DELETE FROM workspace_roots WHERE node_id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to cascade-delete roots for node")
	}
	return nil
}
