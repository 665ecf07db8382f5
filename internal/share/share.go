// Package share implements the share manager from spec §4.F: create
// and list explicit access grants from a workspace owner to another
// user, and cascade-invalidate any outstanding tokens when a share is
// revoked. Grounded on the teacher's satellite/console project-members
// style of CRUD-with-ownership-check repository wrapper.
package share

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
	"github.com/storj-labs/workspace-broker/internal/resolver"
)

// Manager is the share manager.
type Manager struct {
	Repo     repository.Set
	Resolver *resolver.Resolver
}

// New builds a Manager.
func New(repo repository.Set, resolve *resolver.Resolver) *Manager {
	return &Manager{Repo: repo, Resolver: resolve}
}

// CreateRequest is the union-typed input spec §4.F's create() accepts:
// either an id or a username/search-term identifies the sharee and
// workspace respectively.
type CreateRequest struct {
	WorkspaceID   *uuid.UUID
	WorkspaceTerm string // resolved via §4.D when WorkspaceID is nil
	ShareeID      *uuid.UUID
	ShareeName    string // resolved by username when ShareeID is nil
	Permission    model.Permission
	Expiration    *time.Time
}

// Create implements spec §4.F's create(): resolve sharee and
// workspace, enforce that only the owner may share, and insert under
// the (workspace, creator, sharee) uniqueness constraint.
func (m *Manager) Create(ctx context.Context, creator model.User, req CreateRequest) (model.Share, error) {
	sharee, err := m.resolveSharee(ctx, req.ShareeID, req.ShareeName)
	if err != nil {
		return model.Share{}, err
	}

	ws, err := m.resolveWorkspace(ctx, creator.ID, req.WorkspaceID, req.WorkspaceTerm)
	if err != nil {
		return model.Share{}, err
	}

	if ws.OwnerID != creator.ID {
		return model.Share{}, apierror.PermissionDenied("only the workspace owner may create shares")
	}

	return m.Repo.Shares().Create(ctx, model.Share{
		WorkspaceID: ws.ID,
		CreatorID:   creator.ID,
		ShareeID:    sharee.ID,
		Permission:  req.Permission,
		Expiration:  req.Expiration,
	})
}

func (m *Manager) resolveSharee(ctx context.Context, id *uuid.UUID, username string) (model.User, error) {
	if id != nil {
		return m.Repo.Users().Get(ctx, *id)
	}
	return m.Repo.Users().GetByUsername(ctx, username)
}

func (m *Manager) resolveWorkspace(ctx context.Context, requester uuid.UUID, id *uuid.UUID, term string) (model.Workspace, error) {
	if id != nil {
		return m.Repo.Workspaces().Get(ctx, *id)
	}
	res, err := m.Resolver.Resolve(ctx, requester, term)
	if err != nil {
		return model.Workspace{}, err
	}
	if !res.Found {
		return model.Workspace{}, apierror.NotFound("workspace %q not found", term)
	}
	return res.Workspace, nil
}

// List implements spec §4.F's list(user): shares where the user is
// creator or sharee.
func (m *Manager) List(ctx context.Context, userID uuid.UUID) ([]model.Share, error) {
	return m.Repo.Shares().ListForUser(ctx, userID)
}

// Revoke deletes a share and cascade-invalidates any token bound to
// the workspace it granted, the behavior DESIGN.md settles on for
// the open item in spec §4.F/§9 ("deletion should cascade-invalidate
// tokens").
func (m *Manager) Revoke(ctx context.Context, requester uuid.UUID, shareID uuid.UUID) error {
	s, err := m.Repo.Shares().Get(ctx, shareID)
	if err != nil {
		return err
	}
	if s.CreatorID != requester {
		return apierror.PermissionDenied("only the share's creator may revoke it")
	}
	if err := m.Repo.Shares().Delete(ctx, shareID); err != nil {
		return err
	}
	return m.Repo.Tokens().DeleteReferencingWorkspace(ctx, s.WorkspaceID)
}
