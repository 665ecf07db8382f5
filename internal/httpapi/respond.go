package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type userContextKey struct{}

func contextWithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// userFromContext returns the authenticated user stashed by authed.
func userFromContext(ctx context.Context) model.User {
	u, _ := ctx.Value(userContextKey{}).(model.User)
	return u
}

// authed wraps handler with Authenticator verification, rejecting the
// request with 401 on failure and otherwise stashing the resolved user
// in the request context (spec §6 Authentication).
func (s *Server) authed(auth Authenticator, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := auth.Authenticate(r)
		if err != nil {
			writeError(w, apierror.Unauthorized("authentication failed: %v", err))
			return
		}
		handler(w, r.WithContext(contextWithUser(r.Context(), u)))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a classified error to its HTTP status and {message}
// body, the centralized mapper spec §5/§7 requires.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apierror.HTTPStatus(err), apierror.ToBody(err))
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.InvalidArgument("malformed request body: %v", err)
	}
	return nil
}
