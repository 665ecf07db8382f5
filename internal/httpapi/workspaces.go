package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

// handleWorkspaceSearch implements GET /api/workspace: the name/owner
// filtered search from spec §4.D step 3, scoped to workspaces the
// requester can see.
func (s *Server) handleWorkspaceSearch(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	q := r.URL.Query()

	filter := repository.WorkspaceFilter{Name: q.Get("name"), AccessibleTo: user.ID}
	if ownerID := q.Get("owner_id"); ownerID != "" {
		id, err := uuid.Parse(ownerID)
		if err != nil {
			writeError(w, apierror.InvalidArgument("malformed owner_id"))
			return
		}
		filter.OwnerID = &id
	}

	workspaces, err := s.services.Repo.Workspaces().Search(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaces)
}

type createWorkspaceRequest struct {
	Name     string    `json:"name"`
	RootID   uuid.UUID `json:"root_id"`
	BasePath string    `json:"base_path"`
}

// handleWorkspaceCreate implements POST /api/workspace. A managed-root
// workspace is created by its owner (the caller); an unmanaged-root
// workspace (BasePath set) may only be created by the root's node
// operator, per spec §3.
func (s *Server) handleWorkspaceCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req createWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	root, err := s.services.Repo.Roots().Get(r.Context(), req.RootID)
	if err != nil {
		writeError(w, err)
		return
	}

	ownerID := user.ID
	if req.BasePath != "" {
		if root.RootType != model.RootUnmanaged {
			writeError(w, apierror.InvalidArgument("base_path may only be set on an unmanaged root"))
			return
		}
		node, err := s.services.Repo.Nodes().Get(r.Context(), root.NodeID)
		if err != nil {
			writeError(w, err)
			return
		}
		if node.CreatorID != user.ID {
			writeError(w, apierror.PermissionDenied("only the node operator may create unmanaged workspaces"))
			return
		}
	}

	created, err := s.services.Repo.Workspaces().Create(r.Context(), model.Workspace{
		Name: req.Name, OwnerID: ownerID, RootID: req.RootID, BasePath: req.BasePath,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleWorkspaceGet implements GET /api/workspace/{id}: a single
// workspace lookup, used by cmd/brokerctl to resolve a workspace's
// root before delegating to the root-index endpoints.
func (s *Server) handleWorkspaceGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed workspace id"))
		return
	}
	ws, err := s.services.Repo.Workspaces().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleWorkspaceDelete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed workspace id"))
		return
	}

	ws, err := s.services.Repo.Workspaces().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if ws.OwnerID != user.ID {
		writeError(w, apierror.PermissionDenied("only the workspace owner may delete it"))
		return
	}
	if err := s.services.Repo.Workspaces().Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
