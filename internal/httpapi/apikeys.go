package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apikey"
	"github.com/storj-labs/workspace-broker/internal/model"
)

// handleApiKeyList implements GET /api/apikey: every key registered
// under the caller's account. Secret hashes never leave this package.
func (s *Server) handleApiKeyList(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	keys, err := s.services.Repo.ApiKeys().ListForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]apiKeyDTO, len(keys))
	for i, k := range keys {
		out[i] = apiKeyDTO{ID: k.ID, KeyID: k.KeyID}
	}
	writeJSON(w, http.StatusOK, out)
}

type apiKeyDTO struct {
	ID    uuid.UUID `json:"id"`
	KeyID string    `json:"key_id"`
}

type apiKeyCreatedResponse struct {
	ID     uuid.UUID `json:"id"`
	KeyID  string    `json:"key_id"`
	Secret string    `json:"secret"`
}

// handleApiKeyCreate implements POST /api/apikey: mints a new key and
// returns its secret once (spec §3: credentials are never recoverable
// after creation).
func (s *Server) handleApiKeyCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	keyID, secret, hash, err := apikey.Generate()
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := s.services.Repo.ApiKeys().Create(r.Context(), model.ApiKey{
		UserID:     user.ID,
		KeyID:      keyID,
		SecretHash: hash,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, apiKeyCreatedResponse{
		ID:     created.ID,
		KeyID:  created.KeyID,
		Secret: secret,
	})
}
