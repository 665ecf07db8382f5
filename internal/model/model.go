// Package model holds the entities shared by every engine in the broker:
// users, storage nodes, roots, workspaces, shares, tokens, api keys and
// the index/crawl bookkeeping rows.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is created on first OIDC login or API-key registration and is
// never destroyed by the core.
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// RootType controls the default layout and permission shape of a
// WorkspaceRoot.
type RootType string

// Root types recognized by the naming & placement engine.
const (
	RootPublic    RootType = "public"
	RootPrivate   RootType = "private"
	RootUnmanaged RootType = "unmanaged"
)

// StorageNode is an S3-compatible endpoint registered by an operator.
// Credentials are secret operator material and must never be returned
// to a non-creator.
type StorageNode struct {
	ID              uuid.UUID
	Name            string
	APIURL          string
	STSAPIURL       string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AssumeRoleARN   string
	CreatorID       uuid.UUID
}

// WorkspaceRoot is a (node, bucket, base_path) triple with a naming
// convention. Unique on (bucket, base_path, node_id).
type WorkspaceRoot struct {
	ID       uuid.UUID
	NodeID   uuid.UUID
	Bucket   string
	BasePath string
	RootType RootType
}

// Workspace is a named prefix inside a root, owned by a user.
// (Name, OwnerID) is unique. BasePath is only set for unmanaged roots.
type Workspace struct {
	ID       uuid.UUID
	Name     string
	OwnerID  uuid.UUID
	RootID   uuid.UUID
	BasePath string // set only when the workspace is unmanaged
}

// IsUnmanaged reports whether the workspace carries its own base path
// rather than deriving one from (root, owner, name).
func (w Workspace) IsUnmanaged() bool {
	return w.BasePath != ""
}

// Permission is the access level a Share grants.
type Permission string

// Permission levels, from least to most privileged.
const (
	PermissionRead      Permission = "read"
	PermissionReadWrite Permission = "readwrite"
	PermissionOwn       Permission = "own"
)

// Share is an explicit grant from a workspace owner to another user.
// Unique on (workspace_id, creator_id, sharee_id).
type Share struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	CreatorID   uuid.UUID
	ShareeID    uuid.UUID
	Permission  Permission
	Expiration  *time.Time
}

// Expired reports whether the share's expiration, if any, has passed.
func (s Share) Expired(now time.Time) bool {
	return s.Expiration != nil && now.After(*s.Expiration)
}

// S3Token is a persisted STS credential bound to a requester and a set
// of workspaces/roots on one storage node.
type S3Token struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	StorageNodeID   uuid.UUID
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
	PolicyJSON      []byte
	WorkspaceIDs    []uuid.UUID
	RootIDs         []uuid.UUID
}

// Valid reports whether the token has not yet expired.
func (t S3Token) Valid(now time.Time) bool {
	return t.Expiration.After(now)
}

// ApiKey authenticates a user over HTTP Basic. The secret is returned
// once on creation; only its hash is persisted.
type ApiKey struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	KeyID      string
	SecretHash []byte
}

// IndexType distinguishes the search backend an index lives in; the
// broker only ships the "default" type today but keeps the column so
// an operator can subscribe a root to more than one engine later.
type IndexType string

// DefaultIndexType is the only index type the broker currently wires.
const DefaultIndexType IndexType = "default"

// RootIndex marks a root as subscribed for indexing.
type RootIndex struct {
	ID        uuid.UUID
	RootID    uuid.UUID
	IndexType IndexType
}

// Artifact registers a named, derived object inside a workspace — a
// thumbnail, transcode, or other output expensive enough to compute
// that the broker tracks whether it has already been produced rather
// than regenerating it on every request. Unique on
// (workspace_id, object_path).
type Artifact struct {
	ID                 uuid.UUID
	WorkspaceID        uuid.UUID
	ObjectPath         string
	ObjectName         string
	ObjectRevisionDate time.Time
	Name               string
	Complete           bool
}

// WorkspaceCrawlRound is the unit of work for pulling a workspace's
// object inventory into the index. At most one open (Succeeded==false)
// round exists per workspace at any time.
type WorkspaceCrawlRound struct {
	ID             uuid.UUID
	WorkspaceID    uuid.UUID
	StartTime      time.Time
	EndTime        *time.Time
	Succeeded      bool
	LastIndexedKey string
	TotalObjects   int64
	TotalSize      int64
}

// Open reports whether the round is still accepting bulk batches.
func (r WorkspaceCrawlRound) Open() bool {
	return !r.Succeeded
}

// MediaMetadata carries the optional ffprobe-style fields attached to
// video objects. Zero value means "not a media object".
type MediaMetadata struct {
	CodecTagString string  `json:"codec_tag_string,omitempty"`
	Width          float64 `json:"width,omitempty"`
	Height         float64 `json:"height,omitempty"`
	DurationTS     float64 `json:"duration_ts,omitempty"`
	RFrameRate     string  `json:"r_frame_rate,omitempty"`
	BitRate        float64 `json:"bit_rate,omitempty"`
	DurationSec    float64 `json:"duration_sec,omitempty"`
	FormatName     string  `json:"format_name,omitempty"`
}

// IndexDocument is the denormalized record stored in the search
// engine, keyed by the content-derived id from keybuilder.PrimaryKey.
// JSON field names match the event payload's snake_case convention
// since this struct is marshaled directly into the bulk request body.
type IndexDocument struct {
	ID          string         `json:"-"`
	Time        time.Time      `json:"time"`
	Size        float64        `json:"size"`
	ETag        string         `json:"etag"`
	Path        string         `json:"path"`
	Filename    string         `json:"filename"`
	Extension   string         `json:"extension"`
	ContentType string         `json:"content_type,omitempty"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	RootID      uuid.UUID      `json:"root_id"`
	UserShares  []uuid.UUID    `json:"user_shares,omitempty"`
	Media       *MediaMetadata `json:"media_metadata,omitempty"`
}
