package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/storj-labs/workspace-broker/internal/apierror"
)

// handleTokenList implements GET /api/token: every token the caller
// currently holds.
func (s *Server) handleTokenList(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	tokens, err := s.services.Repo.Tokens().ListForOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type createTokenRequest struct {
	WorkspaceIDs []uuid.UUID `json:"workspace_ids"`
}

// handleTokenCreate implements POST /api/token: the credential
// broker's Request operation for an explicit workspace id set (spec
// §4.E).
func (s *Server) handleTokenCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req createTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	issued, err := s.services.Credential.Request(r.Context(), user, req.WorkspaceIDs, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issued)
}

func (s *Server) handleTokenDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed token id"))
		return
	}
	if err := s.services.Credential.Revoke(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type tokenGCResponse struct {
	Reclaimed int `json:"reclaimed"`
}

// handleTokenGC implements POST /api/token/gc: the token-GC supplement
// (spec §4.E Revocation), exposed so cmd/brokerctl's `token gc` can
// trigger a sweep without direct database access.
func (s *Server) handleTokenGC(w http.ResponseWriter, r *http.Request) {
	n, err := s.services.Credential.GC(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenGCResponse{Reclaimed: n})
}

type tokenSearchRequest struct {
	Terms []string `json:"terms"`
}

// handleTokenSearch implements POST /api/token/search: spec §4.E's
// token-search end-to-end operation.
func (s *Server) handleTokenSearch(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req tokenSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.services.Credential.Search(r.Context(), s.services.Resolver, user, req.Terms, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
