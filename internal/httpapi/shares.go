package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/share"
)

type createShareRequest struct {
	WorkspaceID   *uuid.UUID       `json:"workspace_id"`
	WorkspaceTerm string           `json:"workspace_term"`
	ShareeID      *uuid.UUID       `json:"sharee_id"`
	ShareeName    string           `json:"sharee_username"`
	Permission    model.Permission `json:"permission"`
	Expiration    *time.Time       `json:"expiration"`
}

// handleShareCreate implements POST /api/workspace/share (spec §4.F
// create()).
func (s *Server) handleShareCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req createShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Permission == "" {
		writeError(w, apierror.InvalidArgument("permission is required"))
		return
	}

	created, err := s.services.Share.Create(r.Context(), user, share.CreateRequest{
		WorkspaceID:   req.WorkspaceID,
		WorkspaceTerm: req.WorkspaceTerm,
		ShareeID:      req.ShareeID,
		ShareeName:    req.ShareeName,
		Permission:    req.Permission,
		Expiration:    req.Expiration,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
