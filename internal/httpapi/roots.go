package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
)

func (s *Server) handleRootList(w http.ResponseWriter, r *http.Request) {
	nodeID, err := uuid.Parse(r.URL.Query().Get("node_id"))
	if err != nil {
		writeError(w, apierror.InvalidArgument("node_id query parameter is required"))
		return
	}
	roots, err := s.services.Repo.Roots().ListByNode(r.Context(), nodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

// handleRootGet implements GET /api/root/{id}: a single root lookup,
// used by cmd/brokerctl's `mc` wrapper to recover a workspace's
// backing bucket and node before rewriting an mc invocation.
func (s *Server) handleRootGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed root id"))
		return
	}
	root, err := s.services.Repo.Roots().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

type createRootRequest struct {
	NodeID   uuid.UUID      `json:"node_id"`
	Bucket   string         `json:"bucket"`
	BasePath string         `json:"base_path"`
	RootType model.RootType `json:"root_type"`
}

// handleRootCreate creates the root row and, best-effort, the backing
// bucket on the node's S3 endpoint. A BucketAlreadyOwnedByYou response
// is logged and ignored rather than surfaced, per spec §7.
func (s *Server) handleRootCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req createRootRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	node, err := s.services.Repo.Nodes().Get(r.Context(), req.NodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if node.CreatorID != user.ID {
		writeError(w, apierror.PermissionDenied("only the node's creator may create roots on it"))
		return
	}

	if err := s.ensureBucket(r, node, req.Bucket); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.services.Repo.Roots().Create(r.Context(), model.WorkspaceRoot{
		NodeID: req.NodeID, Bucket: req.Bucket, BasePath: req.BasePath, RootType: req.RootType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) ensureBucket(r *http.Request, node model.StorageNode, bucket string) error {
	client, err := s.services.Clients.S3Client(node)
	if err != nil {
		return err
	}
	err = client.MakeBucket(r.Context(), bucket, minio.MakeBucketOptions{Region: node.Region})
	if err == nil {
		return nil
	}
	if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
		s.services.Log.Info("bucket already owned by this node, ignoring", zap.String("bucket", bucket))
		return nil
	}
	return apierror.UpstreamError(err, "failed to create backing bucket")
}

func (s *Server) handleRootDelete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed root id"))
		return
	}

	root, err := s.services.Repo.Roots().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	node, err := s.services.Repo.Nodes().Get(r.Context(), root.NodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if node.CreatorID != user.ID {
		writeError(w, apierror.PermissionDenied("only the node's creator may delete its roots"))
		return
	}

	count, err := s.services.Repo.Roots().CountWorkspaces(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if count > 0 {
		writeError(w, apierror.ConflictInState("root %s still has %d workspace(s) referencing it", id, count))
		return
	}

	if err := s.services.Repo.Roots().Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleRootIndexCreate implements POST /api/root/{id}/index: subscribe
// the root for indexing (spec §6).
func (s *Server) handleRootIndexCreate(w http.ResponseWriter, r *http.Request) {
	rootID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed root id"))
		return
	}
	created, err := s.services.Repo.RootIndexes().Create(r.Context(), model.RootIndex{
		RootID: rootID, IndexType: model.DefaultIndexType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleRootIndexDelete implements the DropIfUnused supplement: delete
// the subscription row, then drop the backing search index only if no
// other root still references model.DefaultIndexType.
func (s *Server) handleRootIndexDelete(w http.ResponseWriter, r *http.Request) {
	rootID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed root id"))
		return
	}

	if err := s.services.Repo.RootIndexes().Delete(r.Context(), rootID, model.DefaultIndexType); err != nil {
		writeError(w, err)
		return
	}

	count, err := s.services.Repo.RootIndexes().CountForIndexType(r.Context(), model.DefaultIndexType)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.services.Search.DropIfUnused(r.Context(), rootID, model.DefaultIndexType, count > 0); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
