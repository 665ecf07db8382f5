package main

import (
	"net/http"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/apikey"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

// basicAuthenticator implements spec §6's primary authentication path:
// HTTP Basic with (api_key_id, api_secret) validated against
// ApiKey.secret_hash. The OIDC session-cookie path spec §6 also names
// is out of scope for the core (spec §1) and is not implemented here.
type basicAuthenticator struct {
	repo repository.Set
}

func (a basicAuthenticator) Authenticate(r *http.Request) (model.User, error) {
	keyID, secret, ok := r.BasicAuth()
	if !ok {
		return model.User{}, apierror.Unauthorized("missing basic auth credentials")
	}

	key, err := a.repo.ApiKeys().GetByKeyID(r.Context(), keyID)
	if err != nil {
		return model.User{}, apierror.Unauthorized("unknown api key")
	}
	if !apikey.Verify(secret, key.SecretHash) {
		return model.User{}, apierror.Unauthorized("invalid api key secret")
	}

	return a.repo.Users().Get(r.Context(), key.UserID)
}
