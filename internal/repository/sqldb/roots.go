package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type rootsRepo struct{ db *dbutil.DB }

func scanRoot(row rowScanner) (model.WorkspaceRoot, error) {
	var idStr, nodeStr string
	var root model.WorkspaceRoot
	var rootType string
	if err := row.Scan(&idStr, &nodeStr, &root.Bucket, &root.BasePath, &rootType); err != nil {
		return model.WorkspaceRoot{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.WorkspaceRoot{}, apierror.UpstreamError(err, "corrupt root id in storage")
	}
	nodeID, err := uuid.Parse(nodeStr)
	if err != nil {
		return model.WorkspaceRoot{}, apierror.UpstreamError(err, "corrupt node id in storage")
	}
	root.ID, root.NodeID, root.RootType = id, nodeID, model.RootType(rootType)
	return root, nil
}

func (r rootsRepo) Get(ctx context.Context, id uuid.UUID) (model.WorkspaceRoot, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT id, node_id, bucket, base_path, root_type FROM workspace_roots WHERE id = ?`, id.String())
	root, err := scanRoot(row)
	if err == sql.ErrNoRows {
		return model.WorkspaceRoot{}, apierror.NotFound("root %s not found", id)
	} else if err != nil {
		return model.WorkspaceRoot{}, apierror.UpstreamError(err, "failed to read root")
	}
	return root, nil
}

func (r rootsRepo) ListByNode(ctx context.Context, nodeID uuid.UUID) ([]model.WorkspaceRoot, error) {
	rows, err := r.db.QueryRebind(ctx, `SELECT id, node_id, bucket, base_path, root_type FROM workspace_roots WHERE node_id = ?`, nodeID.String())
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to list roots for node")
	}
	defer rows.Close()
	var out []model.WorkspaceRoot
	for rows.Next() {
		root, err := scanRoot(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read root row")
		}
		out = append(out, root)
	}
	return out, rows.Err()
}

// FindCovering loads every root on bucket and picks the one whose
// base_path is the longest matching prefix of key in application code;
// expressing "longest prefix" portably across sqlite3 and postgres in
// SQL alone is not worth the dialect divergence for a table this small.
func (r rootsRepo) FindCovering(ctx context.Context, bucket, key string) (model.WorkspaceRoot, error) {
	rows, err := r.db.QueryRebind(ctx, `SELECT id, node_id, bucket, base_path, root_type FROM workspace_roots WHERE bucket = ?`, bucket)
	if err != nil {
		return model.WorkspaceRoot{}, apierror.UpstreamError(err, "failed to query roots by bucket")
	}
	defer rows.Close()

	var best model.WorkspaceRoot
	found := false
	for rows.Next() {
		root, err := scanRoot(rows)
		if err != nil {
			return model.WorkspaceRoot{}, apierror.UpstreamError(err, "failed to read root row")
		}
		if !isPrefixPath(root.BasePath, key) {
			continue
		}
		if !found || len(root.BasePath) > len(best.BasePath) {
			best, found = root, true
		}
	}
	if err := rows.Err(); err != nil {
		return model.WorkspaceRoot{}, apierror.UpstreamError(err, "failed to scan roots")
	}
	if !found {
		return model.WorkspaceRoot{}, apierror.InvalidArgument("no index for object: no root covers bucket %q key %q", bucket, key)
	}
	return best, nil
}

func isPrefixPath(basePath, key string) bool {
	if basePath == "" {
		return true
	}
	return key == basePath || strings.HasPrefix(key, basePath+"/")
}

func (r rootsRepo) Create(ctx context.Context, root model.WorkspaceRoot) (model.WorkspaceRoot, error) {
	if root.ID == uuid.Nil {
		root.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO workspace_roots (id, node_id, bucket, base_path, root_type) VALUES (?, ?, ?, ?, ?)`,
		root.ID.String(), root.NodeID.String(), root.Bucket, root.BasePath, string(root.RootType))
	if err != nil {
		return model.WorkspaceRoot{}, apierror.IntegrityViolation(err, "root (bucket, base_path, node) already exists")
	}
	return root, nil
}

func (r rootsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM workspace_roots WHERE id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete root")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("root %s not found", id)
	}
	return nil
}

func (r rootsRepo) CountWorkspaces(ctx context.Context, rootID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowRebind(ctx, `SELECT COUNT(*) FROM workspaces WHERE root_id = ?`, rootID.String()).Scan(&n)
	if err != nil {
		return 0, apierror.UpstreamError(err, "failed to count workspaces for root")
	}
	return n, nil
}
