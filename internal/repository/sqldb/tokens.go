package sqldb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type tokensRepo struct{ db *dbutil.DB }

const tokenColumns = `id, owner_id, storage_node_id, access_key_id, secret_access_key, session_token, expiration, policy_json, workspace_ids, root_ids`

func joinUUIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitUUIDs(s string) ([]uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uuid.UUID, len(parts))
	for i, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func scanToken(row rowScanner) (model.S3Token, error) {
	var idStr, ownerStr, nodeStr, wsIDs, rootIDs string
	var t model.S3Token
	if err := row.Scan(&idStr, &ownerStr, &nodeStr, &t.AccessKeyID, &t.SecretAccessKey,
		&t.SessionToken, &t.Expiration, &t.PolicyJSON, &wsIDs, &rootIDs); err != nil {
		return model.S3Token{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "corrupt token id in storage")
	}
	owner, err := uuid.Parse(ownerStr)
	if err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "corrupt owner id in storage")
	}
	node, err := uuid.Parse(nodeStr)
	if err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "corrupt node id in storage")
	}
	t.ID, t.OwnerID, t.StorageNodeID = id, owner, node
	if t.WorkspaceIDs, err = splitUUIDs(wsIDs); err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "corrupt workspace id list in storage")
	}
	if t.RootIDs, err = splitUUIDs(rootIDs); err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "corrupt root id list in storage")
	}
	return t, nil
}

func (r tokensRepo) Get(ctx context.Context, id uuid.UUID) (model.S3Token, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT `+tokenColumns+` FROM s3_tokens WHERE id = ?`, id.String())
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return model.S3Token{}, apierror.NotFound("token %s not found", id)
	} else if err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "failed to read token")
	}
	return t, nil
}

func (r tokensRepo) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]model.S3Token, error) {
	rows, err := r.db.QueryRebind(ctx, `SELECT `+tokenColumns+` FROM s3_tokens WHERE owner_id = ?`, ownerID.String())
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to query tokens for owner")
	}
	defer rows.Close()

	var out []model.S3Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read token row")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func sameSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := map[uuid.UUID]bool{}
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
		delete(set, id)
	}
	return len(set) == 0
}

func (r tokensRepo) FindReusable(ctx context.Context, ownerID uuid.UUID, foreignWorkspaceIDs, rootIDs []uuid.UUID, now time.Time) (*model.S3Token, error) {
	rows, err := r.db.QueryRebind(ctx,
		`SELECT `+tokenColumns+` FROM s3_tokens WHERE owner_id = ? AND expiration > ?`, ownerID.String(), now)
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to query reusable tokens")
	}
	defer rows.Close()

	var best *model.S3Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read token row")
		}
		if !sameSet(t.WorkspaceIDs, foreignWorkspaceIDs) || !sameSet(t.RootIDs, rootIDs) {
			continue
		}
		if best == nil || t.Expiration.After(best.Expiration) {
			cp := t
			best = &cp
		}
	}
	return best, rows.Err()
}

func (r tokensRepo) Create(ctx context.Context, t model.S3Token) (model.S3Token, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO s3_tokens
			(id, owner_id, storage_node_id, access_key_id, secret_access_key, session_token, expiration, policy_json, workspace_ids, root_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.OwnerID.String(), t.StorageNodeID.String(), t.AccessKeyID, t.SecretAccessKey,
		t.SessionToken, t.Expiration, t.PolicyJSON, joinUUIDs(t.WorkspaceIDs), joinUUIDs(t.RootIDs))
	if err != nil {
		return model.S3Token{}, apierror.UpstreamError(err, "failed to persist token")
	}
	return t, nil
}

func (r tokensRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecRebind(ctx, `DELETE FROM s3_tokens WHERE id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete token")
	}
	return nil
}

func (r tokensRepo) DeleteAllForOwner(ctx context.Context, ownerID uuid.UUID) error {
	_, err := r.db.ExecRebind(ctx, `DELETE FROM s3_tokens WHERE owner_id = ?`, ownerID.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete tokens for owner")
	}
	return nil
}

// DeleteReferencingWorkspace scans application-side since workspace_ids
// is a comma-joined column, not a normalized join table; token volume
// per owner is small enough that this matches memdb's O(n) behavior
// without needing a separate token_workspaces table.
func (r tokensRepo) DeleteReferencingWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	rows, err := r.db.QueryRebind(ctx, `SELECT id, workspace_ids FROM s3_tokens`)
	if err != nil {
		return apierror.UpstreamError(err, "failed to scan tokens for cascade delete")
	}
	var toDelete []string
	for rows.Next() {
		var idStr, wsIDs string
		if err := rows.Scan(&idStr, &wsIDs); err != nil {
			rows.Close()
			return apierror.UpstreamError(err, "failed to read token row")
		}
		ids, err := splitUUIDs(wsIDs)
		if err != nil {
			rows.Close()
			return apierror.UpstreamError(err, "corrupt workspace id list in storage")
		}
		for _, id := range ids {
			if id == workspaceID {
				toDelete = append(toDelete, idStr)
				break
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apierror.UpstreamError(err, "failed to scan tokens")
	}

	for _, idStr := range toDelete {
		if _, err := r.db.ExecRebind(ctx, `DELETE FROM s3_tokens WHERE id = ?`, idStr); err != nil {
			return apierror.UpstreamError(err, "failed to cascade-delete token")
		}
	}
	return nil
}

func (r tokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM s3_tokens WHERE expiration <= ?`, now)
	if err != nil {
		return 0, apierror.UpstreamError(err, "failed to delete expired tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apierror.UpstreamError(err, "failed to count deleted tokens")
	}
	return int(n), nil
}
