package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

type workspacesRepo struct{ db *dbutil.DB }

func scanWorkspace(row rowScanner) (model.Workspace, error) {
	var idStr, ownerStr, rootStr string
	var ws model.Workspace
	if err := row.Scan(&idStr, &ws.Name, &ownerStr, &rootStr, &ws.BasePath); err != nil {
		return model.Workspace{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "corrupt workspace id in storage")
	}
	owner, err := uuid.Parse(ownerStr)
	if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "corrupt owner id in storage")
	}
	root, err := uuid.Parse(rootStr)
	if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "corrupt root id in storage")
	}
	ws.ID, ws.OwnerID, ws.RootID = id, owner, root
	return ws, nil
}

const workspaceColumns = `id, name, owner_id, root_id, base_path`

func (r workspacesRepo) Get(ctx context.Context, id uuid.UUID) (model.Workspace, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id.String())
	ws, err := scanWorkspace(row)
	if err == sql.ErrNoRows {
		return model.Workspace{}, apierror.NotFound("workspace %s not found", id)
	} else if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "failed to read workspace")
	}
	return ws, nil
}

func (r workspacesRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Workspace, error) {
	out := make([]model.Workspace, 0, len(ids))
	for _, id := range ids {
		ws, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// accessible mirrors memdb's workspacesRepo.accessible: owned, shared
// with the user, or sitting on a public root.
func (r workspacesRepo) accessible(ctx context.Context, ws model.Workspace, userID uuid.UUID) (bool, error) {
	if ws.OwnerID == userID {
		return true, nil
	}
	var n int
	err := r.db.QueryRowRebind(ctx,
		`SELECT COUNT(*) FROM shares WHERE workspace_id = ? AND sharee_id = ?`,
		ws.ID.String(), userID.String()).Scan(&n)
	if err != nil {
		return false, apierror.UpstreamError(err, "failed to check shares for workspace")
	}
	if n > 0 {
		return true, nil
	}
	var rootType string
	err = r.db.QueryRowRebind(ctx, `SELECT root_type FROM workspace_roots WHERE id = ?`, ws.RootID.String()).Scan(&rootType)
	if err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, apierror.UpstreamError(err, "failed to check root type for workspace")
	}
	return model.RootType(rootType) == model.RootPublic, nil
}

func (r workspacesRepo) Search(ctx context.Context, filter repository.WorkspaceFilter) ([]model.Workspace, error) {
	rows, err := r.db.QueryRebind(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to search workspaces")
	}
	defer rows.Close()

	var candidates []model.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read workspace row")
		}
		candidates = append(candidates, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.UpstreamError(err, "failed to scan workspaces")
	}

	var out []model.Workspace
	for _, ws := range candidates {
		if filter.Name != "" && !equalFold(ws.Name, filter.Name) {
			continue
		}
		if filter.OwnerID != nil && ws.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AccessibleTo != uuid.Nil {
			ok, err := r.accessible(ctx, ws, filter.AccessibleTo)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, ws)
	}
	return out, nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// FindByBasePathPrefix mirrors rootsRepo.FindCovering's longest-prefix
// scan, scoped to unmanaged workspaces on one root.
func (r workspacesRepo) FindByBasePathPrefix(ctx context.Context, rootID uuid.UUID, key string) (model.Workspace, error) {
	rows, err := r.db.QueryRebind(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE root_id = ? AND base_path != ''`, rootID.String())
	if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "failed to query unmanaged workspaces")
	}
	defer rows.Close()

	var best model.Workspace
	found := false
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return model.Workspace{}, apierror.UpstreamError(err, "failed to read workspace row")
		}
		if !isPrefixPath(ws.BasePath, key) {
			continue
		}
		if !found || len(ws.BasePath) > len(best.BasePath) {
			best, found = ws, true
		}
	}
	if err := rows.Err(); err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "failed to scan workspaces")
	}
	if !found {
		return model.Workspace{}, apierror.NotFound("no unmanaged workspace covers key %q", key)
	}
	return best, nil
}

func (r workspacesRepo) FindByNameAndOwner(ctx context.Context, rootID uuid.UUID, name, ownerUsername string) (model.Workspace, error) {
	var ownerStr string
	err := r.db.QueryRowRebind(ctx, `SELECT id FROM users WHERE username = ?`, ownerUsername).Scan(&ownerStr)
	if err == sql.ErrNoRows {
		return model.Workspace{}, apierror.NotFound("user %q not found", ownerUsername)
	} else if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "failed to look up owner")
	}

	row := r.db.QueryRowRebind(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE root_id = ? AND owner_id = ? AND LOWER(name) = LOWER(?)`,
		rootID.String(), ownerStr, name)
	ws, err := scanWorkspace(row)
	if err == sql.ErrNoRows {
		return model.Workspace{}, apierror.NotFound("workspace %q for owner %q not found", name, ownerUsername)
	} else if err != nil {
		return model.Workspace{}, apierror.UpstreamError(err, "failed to read workspace")
	}
	return ws, nil
}

func (r workspacesRepo) Create(ctx context.Context, ws model.Workspace) (model.Workspace, error) {
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO workspaces (id, name, owner_id, root_id, base_path) VALUES (?, ?, ?, ?, ?)`,
		ws.ID.String(), ws.Name, ws.OwnerID.String(), ws.RootID.String(), ws.BasePath)
	if err != nil {
		return model.Workspace{}, apierror.IntegrityViolation(err, "(name, owner) already exists")
	}
	return ws, nil
}

func (r workspacesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM workspaces WHERE id = ?`, id.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete workspace")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("workspace %s not found", id)
	}
	return nil
}
