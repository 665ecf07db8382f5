// Package crawl implements the crawl coordinator from spec §4.G: the
// per-workspace Open/Closed state machine that lets a client stream
// paginated object-listing batches into the search index and resume
// after a crash from the last acknowledged key. Grounded on the
// teacher's pkg/process/lifecycle-style "resumable long operation"
// bookkeeping, adapted to the broker's own round/bulk shape.
package crawl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/keybuilder"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
	"github.com/storj-labs/workspace-broker/internal/search"
)

// Coordinator runs the crawl state machine.
type Coordinator struct {
	Repo   repository.Set
	Search *search.Client
	Log    *zap.Logger
}

// New builds a Coordinator.
func New(repo repository.Set, searchClient *search.Client, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{Repo: repo, Search: searchClient, Log: log}
}

// CreateRound implements spec §4.G's create_round(workspace): only the
// node operator may create a round, and an existing Open round is
// returned unchanged so the caller can resume from LastIndexedKey.
func (c *Coordinator) CreateRound(ctx context.Context, requester uuid.UUID, workspaceID uuid.UUID, now time.Time) (model.WorkspaceCrawlRound, error) {
	ws, err := c.Repo.Workspaces().Get(ctx, workspaceID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	root, err := c.Repo.Roots().Get(ctx, ws.RootID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	node, err := c.Repo.Nodes().Get(ctx, root.NodeID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	if node.CreatorID != requester {
		return model.WorkspaceCrawlRound{}, apierror.PermissionDenied("only the node operator may create crawl rounds")
	}

	latest, ok, err := c.Repo.CrawlRounds().Latest(ctx, workspaceID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	if ok && latest.Open() {
		return latest, nil
	}

	round := model.WorkspaceCrawlRound{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		StartTime:   now,
	}
	return c.Repo.CrawlRounds().Create(ctx, round)
}

// Document is one item in a bulk ingest batch, matching the
// {time, size, etag, path, filename, extension, content_type?,
// media_metadata?} shape from spec §4.G.
type Document struct {
	Time          time.Time
	Size          float64
	ETag          string
	Path          string
	Filename      string
	Extension     string
	ContentType   string
	MediaMetadata *model.MediaMetadata
}

// BulkRequest is one tagged batch in the ingest stream.
type BulkRequest struct {
	RoundID        uuid.UUID
	LastIndexedKey string
	Succeeded      bool
	Documents      []Document
}

// Bulk implements spec §4.G's ingest step: append to the search
// engine, update round counters and resume bookmark, and close the
// round when Succeeded is set on the final batch. Rejects a bulk
// against an already-Closed round. Bulk does not check who submits the
// batch: any caller that names the workspace's open round advances it.
func (c *Coordinator) Bulk(ctx context.Context, workspaceID uuid.UUID, req BulkRequest, now time.Time) (model.WorkspaceCrawlRound, error) {
	latest, ok, err := c.Repo.CrawlRounds().Latest(ctx, workspaceID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	if !ok || latest.ID != req.RoundID {
		return model.WorkspaceCrawlRound{}, apierror.ConflictInState("bulk targets a round that is not the latest for this workspace")
	}
	if !latest.Open() {
		return model.WorkspaceCrawlRound{}, apierror.ConflictInState("round %s is already closed", latest.ID)
	}

	ws, err := c.Repo.Workspaces().Get(ctx, workspaceID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	root, err := c.Repo.Roots().Get(ctx, ws.RootID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	node, err := c.Repo.Nodes().Get(ctx, root.NodeID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	owner, err := c.Repo.Users().Get(ctx, ws.OwnerID)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	wsKey, err := keybuilder.WorkspaceKey(ws, root, owner)
	if err != nil {
		return model.WorkspaceCrawlRound{}, err
	}

	var totalSize float64
	docs := make([]model.IndexDocument, 0, len(req.Documents))
	for _, d := range req.Documents {
		totalSize += d.Size
		docs = append(docs, model.IndexDocument{
			ID:          keybuilder.PrimaryKey(node.APIURL, root.Bucket, wsKey, d.Path),
			Time:        d.Time,
			Size:        d.Size,
			ETag:        d.ETag,
			Path:        d.Path,
			Filename:    d.Filename,
			Extension:   d.Extension,
			ContentType: d.ContentType,
			OwnerID:     ws.OwnerID,
			WorkspaceID: ws.ID,
			RootID:      root.ID,
			Media:       d.MediaMetadata,
		})
	}

	if len(docs) > 0 {
		if err := c.Search.BulkUpsert(ctx, root.ID, docs); err != nil {
			return model.WorkspaceCrawlRound{}, err
		}
	}

	latest.TotalObjects += int64(len(req.Documents))
	latest.TotalSize += int64(totalSize)
	latest.LastIndexedKey = req.LastIndexedKey
	if req.Succeeded {
		end := now
		latest.EndTime = &end
		latest.Succeeded = true
	}

	if err := c.Repo.CrawlRounds().Update(ctx, latest); err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	c.Log.Debug("crawl bulk applied",
		zap.String("workspace", ws.ID.String()),
		zap.Int("documents", len(docs)),
		zap.Bool("succeeded", req.Succeeded))
	return latest, nil
}
