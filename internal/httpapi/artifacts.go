package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
)

// handleArtifactList implements GET /api/artifact: the artifacts
// registered for a workspace, restricted to the workspace's owner.
func (s *Server) handleArtifactList(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	wsID, err := uuid.Parse(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeError(w, apierror.InvalidArgument("workspace_id query parameter is required"))
		return
	}
	if _, err := s.workspaceVisibleTo(r, wsID, user.ID); err != nil {
		writeError(w, err)
		return
	}
	artifacts, err := s.services.Repo.Artifacts().ListForWorkspace(r.Context(), wsID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

type createArtifactRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ObjectPath  string    `json:"object_path"`
	ObjectName  string    `json:"object_name"`
	Name        string    `json:"name"`
}

// handleArtifactCreate implements POST /api/artifact: register a
// derived object against a workspace the caller owns.
// The row starts incomplete; a caller calls the complete endpoint once
// the derived object has actually been written.
func (s *Server) handleArtifactCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req createArtifactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.workspaceVisibleTo(r, req.WorkspaceID, user.ID); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.services.Repo.Artifacts().Create(r.Context(), model.Artifact{
		WorkspaceID: req.WorkspaceID,
		ObjectPath:  req.ObjectPath,
		ObjectName:  req.ObjectName,
		Name:        req.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleArtifactComplete implements POST /api/artifact/{id}/complete:
// mark a previously registered artifact as generated.
func (s *Server) handleArtifactComplete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed artifact id"))
		return
	}
	existing, err := s.services.Repo.Artifacts().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.workspaceVisibleTo(r, existing.WorkspaceID, user.ID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.services.Repo.Artifacts().MarkComplete(r.Context(), id, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	artifact, err := s.services.Repo.Artifacts().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleArtifactDelete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed artifact id"))
		return
	}
	artifact, err := s.services.Repo.Artifacts().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.workspaceVisibleTo(r, artifact.WorkspaceID, user.ID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.services.Repo.Artifacts().Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// workspaceVisibleTo loads the workspace and confirms the caller owns
// it; shared/public visibility for artifact registration is left to a
// future Share-aware check, the same scoping the workspace handlers
// themselves apply to mutating operations.
func (s *Server) workspaceVisibleTo(r *http.Request, workspaceID, userID uuid.UUID) (model.Workspace, error) {
	ws, err := s.services.Repo.Workspaces().Get(r.Context(), workspaceID)
	if err != nil {
		return model.Workspace{}, err
	}
	if ws.OwnerID != userID {
		return model.Workspace{}, apierror.PermissionDenied("only the workspace owner may manage its artifacts")
	}
	return ws, nil
}
