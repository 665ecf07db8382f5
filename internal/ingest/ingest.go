// Package ingest implements the push-ingest event handler from spec
// §4.H: it accepts an object-store bucket-event payload, derives the
// owning workspace for each record, and submits the resulting upserts
// and deletes to the search engine. Grounded on the teacher's
// satellite/eventing package, which plays the same "bucket
// notification in, search-relevant side effect out" role for its own
// pub/sub delivery path.
package ingest

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/keybuilder"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
	"github.com/storj-labs/workspace-broker/internal/search"
)

// Record is one entry in a bucket-event payload's Records array,
// narrowed to the fields the handler needs.
type Record struct {
	EventName string
	Bucket    string
	ObjectKey string
	ETag      string
	Size      float64

	ContentType   string
	MediaMetadata *model.MediaMetadata
}

// Payload is the decoded bucket-event body.
type Payload struct {
	Records []Record
}

// Handler applies §4.H to a decoded Payload.
type Handler struct {
	Repo   repository.Set
	Search *search.Client
	Cache  *RootIndexCache // optional; nil disables root-lookup caching
}

// New builds a Handler. A nil cache disables the lookup cache.
func New(repo repository.Set, searchClient *search.Client, cache *RootIndexCache) *Handler {
	return &Handler{Repo: repo, Search: searchClient, Cache: cache}
}

// Handle implements spec §4.H steps 1-7 for an entire payload,
// batching ops per destination index since the index writer (§4.I)
// refuses to mix indices within one bulk call.
func (h *Handler) Handle(ctx context.Context, payload Payload) error {
	opsByIndex := make(map[string][]search.Op)

	for _, rec := range payload.Records {
		key, err := url.QueryUnescape(rec.ObjectKey)
		if err != nil {
			return apierror.InvalidArgument("failed to url-decode object key %q: %v", rec.ObjectKey, err)
		}

		root, err := h.findCoveringRoot(ctx, rec.Bucket, key)
		if err != nil {
			return err
		}
		node, err := h.Repo.Nodes().Get(ctx, root.NodeID)
		if err != nil {
			return err
		}

		ws, owner, err := h.deriveWorkspace(ctx, root, key)
		if err != nil {
			return err
		}

		wsKey, err := keybuilder.WorkspaceKey(ws, root, owner)
		if err != nil {
			return err
		}
		innerPath := strings.TrimPrefix(strings.TrimPrefix(key, wsKey), "/")
		id := keybuilder.PrimaryKey(node.APIURL, root.Bucket, wsKey, innerPath)

		op, err := h.buildOp(ctx, rec, id, ws, root, innerPath)
		if err != nil {
			return err
		}

		index := search.IndexName(root.ID, model.DefaultIndexType)
		opsByIndex[index] = append(opsByIndex[index], op)
	}

	for index, ops := range opsByIndex {
		if err := h.Search.Bulk(ctx, index, ops); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) findCoveringRoot(ctx context.Context, bucket, key string) (model.WorkspaceRoot, error) {
	if h.Cache != nil {
		return h.Cache.FindCovering(ctx, bucket, key)
	}
	return h.Repo.Roots().FindCovering(ctx, bucket, key)
}

// deriveWorkspace implements spec §4.H step 3.
func (h *Handler) deriveWorkspace(ctx context.Context, root model.WorkspaceRoot, key string) (model.Workspace, model.User, error) {
	if root.RootType == model.RootUnmanaged {
		ws, err := h.Repo.Workspaces().FindByBasePathPrefix(ctx, root.ID, key)
		if err != nil {
			return model.Workspace{}, model.User{}, err
		}
		owner, err := h.Repo.Users().Get(ctx, ws.OwnerID)
		return ws, owner, err
	}

	rest := strings.TrimPrefix(strings.TrimPrefix(key, root.BasePath), "/")
	parts := nonEmptyParts(rest)
	if len(parts) < 3 {
		return model.Workspace{}, model.User{}, apierror.InvalidArgument("key %q does not have scope/user/workspace components", key)
	}
	// parts[0] is a scope discriminator the notification payload
	// carries but the lookup itself ignores; only user and workspace
	// name participate (spec §4.H step 3).
	username, workspaceName := parts[1], parts[2]
	ws, err := h.Repo.Workspaces().FindByNameAndOwner(ctx, root.ID, workspaceName, username)
	if err != nil {
		return model.Workspace{}, model.User{}, err
	}
	owner, err := h.Repo.Users().Get(ctx, ws.OwnerID)
	return ws, owner, err
}

func nonEmptyParts(s string) []string {
	raw := strings.Split(s, "/")
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildOp implements spec §4.H steps 4-6.
func (h *Handler) buildOp(ctx context.Context, rec Record, id string, ws model.Workspace, root model.WorkspaceRoot, innerPath string) (search.Op, error) {
	switch {
	case isCreate(rec.EventName):
		shares, err := h.Repo.Shares().ListForUser(ctx, ws.OwnerID)
		if err != nil {
			return search.Op{}, err
		}
		var userShares []uuid.UUID
		for _, s := range shares {
			if s.WorkspaceID == ws.ID {
				userShares = append(userShares, s.ShareeID)
			}
		}

		doc := model.IndexDocument{
			ID:          id,
			ETag:        rec.ETag,
			Size:        rec.Size,
			Path:        innerPath,
			Filename:    lastSegment(innerPath),
			Extension:   extensionOf(innerPath),
			ContentType: rec.ContentType,
			OwnerID:     ws.OwnerID,
			WorkspaceID: ws.ID,
			RootID:      root.ID,
			UserShares:  userShares,
			Media:       rec.MediaMetadata,
		}
		return search.Op{ID: id, Doc: doc}, nil

	case isRemove(rec.EventName):
		return search.Op{ID: id, Delete: true}, nil

	default:
		return search.Op{}, apierror.InvalidArgument("unsupported event type %q", rec.EventName)
	}
}

func isCreate(eventName string) bool {
	return strings.HasPrefix(eventName, "s3:ObjectCreated:")
}

func isRemove(eventName string) bool {
	return strings.HasPrefix(eventName, "s3:ObjectRemoved:")
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func extensionOf(path string) string {
	name := lastSegment(path)
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}
