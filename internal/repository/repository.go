// Package repository declares the explicit, request-scoped data-access
// interfaces every engine depends on. Spec §9 calls for replacing
// "ORM relationships as implicit graphs" with repositories returning
// owned rows and accepting ids; cross-entity joins are spelled out by
// callers rather than traversed lazily. Mirrors the shape of the
// teacher's satellite/console repositories (db.Console().Projects(),
// .APIKeys(), ...), just flattened into one aggregate.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/model"
)

// Users is the repository for User rows.
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	Upsert(ctx context.Context, u model.User) (model.User, error)
}

// Nodes is the repository for StorageNode rows.
type Nodes interface {
	Get(ctx context.Context, id uuid.UUID) (model.StorageNode, error)
	List(ctx context.Context) ([]model.StorageNode, error)
	Create(ctx context.Context, n model.StorageNode) (model.StorageNode, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Roots is the repository for WorkspaceRoot rows.
type Roots interface {
	Get(ctx context.Context, id uuid.UUID) (model.WorkspaceRoot, error)
	ListByNode(ctx context.Context, nodeID uuid.UUID) ([]model.WorkspaceRoot, error)
	// FindCovering returns the root on the given bucket whose base path
	// is a prefix of key, used by the event handler (spec §4.H step 2).
	FindCovering(ctx context.Context, bucket, key string) (model.WorkspaceRoot, error)
	Create(ctx context.Context, r model.WorkspaceRoot) (model.WorkspaceRoot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// CountWorkspaces reports how many workspaces still reference the
	// root, used to decide whether a delete may proceed (spec §3).
	CountWorkspaces(ctx context.Context, rootID uuid.UUID) (int, error)
}

// WorkspaceFilter narrows WorkspaceSearch (spec §4.D/§9 Open Question
// on workspace_search's public filter).
type WorkspaceFilter struct {
	Name        string
	OwnerID     *uuid.UUID
	AccessibleTo uuid.UUID // owned, shared-with, or public-root workspaces visible to this user
}

// Workspaces is the repository for Workspace rows.
type Workspaces interface {
	Get(ctx context.Context, id uuid.UUID) (model.Workspace, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Workspace, error)
	// Search implements spec §4.D step 3: workspaces accessible to the
	// requester (owned, shared-with, or public) with the given name
	// and optional owner filter.
	Search(ctx context.Context, filter WorkspaceFilter) ([]model.Workspace, error)
	// FindByBasePathPrefix implements spec §4.H step 3's unmanaged-root
	// case: the workspace whose base_path is the longest prefix of key
	// inside the root.
	FindByBasePathPrefix(ctx context.Context, rootID uuid.UUID, key string) (model.Workspace, error)
	FindByNameAndOwner(ctx context.Context, rootID uuid.UUID, name, ownerUsername string) (model.Workspace, error)
	Create(ctx context.Context, w model.Workspace) (model.Workspace, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Shares is the repository for Share rows.
type Shares interface {
	Get(ctx context.Context, id uuid.UUID) (model.Share, error)
	// ListForUser returns shares where the user is creator or sharee
	// (spec §4.F list).
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Share, error)
	// ListForWorkspaceAndSharee returns the (at most one, by the
	// unique constraint) share granting sharee access to workspace.
	ListForWorkspaceAndSharee(ctx context.Context, workspaceID, shareeID uuid.UUID) (*model.Share, error)
	Create(ctx context.Context, s model.Share) (model.Share, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Tokens is the repository for S3Token rows.
type Tokens interface {
	Get(ctx context.Context, id uuid.UUID) (model.S3Token, error)
	// ListForOwner returns every token the owner currently holds,
	// backing GET /api/token.
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]model.S3Token, error)
	// FindReusable implements spec §4.E step 4: a token owned by
	// requester, not expired, bound to exactly the given foreign
	// workspace set and root set.
	FindReusable(ctx context.Context, ownerID uuid.UUID, foreignWorkspaceIDs, rootIDs []uuid.UUID, now time.Time) (*model.S3Token, error)
	Create(ctx context.Context, t model.S3Token) (model.S3Token, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForOwner(ctx context.Context, ownerID uuid.UUID) error
	// DeleteReferencingWorkspace implements the share-revocation
	// contract from spec §9 Open Questions.
	DeleteReferencingWorkspace(ctx context.Context, workspaceID uuid.UUID) error
	// DeleteExpired implements the token-GC supplement from
	// SPEC_FULL.md.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ApiKeys is the repository for ApiKey rows.
type ApiKeys interface {
	GetByKeyID(ctx context.Context, keyID string) (model.ApiKey, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.ApiKey, error)
	Create(ctx context.Context, k model.ApiKey) (model.ApiKey, error)
}

// RootIndexes is the repository for RootIndex rows.
type RootIndexes interface {
	Get(ctx context.Context, rootID uuid.UUID, indexType model.IndexType) (model.RootIndex, error)
	ListForRoot(ctx context.Context, rootID uuid.UUID) ([]model.RootIndex, error)
	// CountForIndexType reports how many roots still subscribe to the
	// given index type, used to decide whether a delete should drop
	// the search index (spec §6, SPEC_FULL.md's DropIfUnused).
	CountForIndexType(ctx context.Context, indexType model.IndexType) (int, error)
	Create(ctx context.Context, ri model.RootIndex) (model.RootIndex, error)
	Delete(ctx context.Context, rootID uuid.UUID, indexType model.IndexType) error
}

// Artifacts is the repository for Artifact rows: a registry of named,
// derived objects within a workspace, distinct from the crawled
// object inventory the index holds (spec.md's crawl/index modules
// track what exists; Artifacts tracks what the broker itself, or a
// collaborator, has generated from it).
type Artifacts interface {
	Get(ctx context.Context, id uuid.UUID) (model.Artifact, error)
	ListForWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Artifact, error)
	// FindByPath looks up the artifact registered for object_path
	// inside workspaceID, used to avoid re-registering or
	// re-generating an artifact that already exists.
	FindByPath(ctx context.Context, workspaceID uuid.UUID, objectPath string) (*model.Artifact, error)
	Create(ctx context.Context, a model.Artifact) (model.Artifact, error)
	// MarkComplete flips Complete to true and stamps the revision date
	// once the derived object has actually been written to storage.
	MarkComplete(ctx context.Context, id uuid.UUID, revisionDate time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CrawlRounds is the repository for WorkspaceCrawlRound rows.
type CrawlRounds interface {
	// Latest returns the most recent round by start_time for the
	// workspace, or ok=false if none exists.
	Latest(ctx context.Context, workspaceID uuid.UUID) (round model.WorkspaceCrawlRound, ok bool, err error)
	Create(ctx context.Context, r model.WorkspaceCrawlRound) (model.WorkspaceCrawlRound, error)
	Update(ctx context.Context, r model.WorkspaceCrawlRound) error
}

// Set bundles every repository the engines need, mirroring the
// teacher's satellite.DB aggregate interface.
type Set interface {
	Users() Users
	Nodes() Nodes
	Roots() Roots
	Workspaces() Workspaces
	Shares() Shares
	Tokens() Tokens
	ApiKeys() ApiKeys
	RootIndexes() RootIndexes
	CrawlRounds() CrawlRounds
	Artifacts() Artifacts
}
