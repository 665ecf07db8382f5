// Package httpapi is the thin HTTP façade spec §1 calls an external
// collaborator with "named interfaces only": it wires the four core
// engines (resolver, credential broker, share manager, crawl
// coordinator/event handler) to the REST surface in spec §6. The
// router itself and the Authenticator it depends on are exactly the
// "glue" the spec declares out of scope — the concrete API-key
// Authenticator lives in cmd/brokerd. Grounded on the teacher's
// metasearch.Server shape (NewServer(log, repo, auth, addr) returning
// a Server whose Handler field is an http.Handler) and routed with
// gorilla/mux, the router the teacher's own go.mod pulls in
// transitively via minio-go.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/crawl"
	"github.com/storj-labs/workspace-broker/internal/credential"
	"github.com/storj-labs/workspace-broker/internal/ingest"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
	"github.com/storj-labs/workspace-broker/internal/resolver"
	"github.com/storj-labs/workspace-broker/internal/search"
	"github.com/storj-labs/workspace-broker/internal/share"
	"github.com/storj-labs/workspace-broker/internal/storageclient"
)

// Authenticator verifies an inbound request and returns the
// authenticated user. Spec §6 names two real schemes (HTTP Basic
// against ApiKey.SecretHash, or an OIDC session cookie verified
// against a cached JWKS); both are out of scope for the core, so only
// the interface lives here. cmd/brokerd wires the concrete
// implementation.
type Authenticator interface {
	Authenticate(r *http.Request) (model.User, error)
}

// Services aggregates every engine and repository the router's
// handlers call into, instantiated once at process start and passed
// by reference — the "Services struct" spec §9 asks for in place of
// global client caches or module state.
type Services struct {
	Repo       repository.Set
	Clients    *storageclient.Cache
	Resolver   *resolver.Resolver
	Credential *credential.Broker
	Share      *share.Manager
	Crawl      *crawl.Coordinator
	Ingest     *ingest.Handler
	Search     *search.Client
	Log        *zap.Logger

	// PublicAddress is returned by GET /api/info.
	PublicAddress string
}

// Server wraps the routed handler together with the services it was
// built from.
type Server struct {
	Handler  http.Handler
	services *Services
}

// NewServer builds the router for every path in spec §6's REST
// surface table.
func NewServer(log *zap.Logger, services *Services, auth Authenticator) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	services.Log = log

	r := mux.NewRouter()
	s := &Server{services: services}

	r.HandleFunc("/api/info", s.handleInfo).Methods(http.MethodGet)

	r.HandleFunc("/api/users/me", s.authed(auth, s.handleUsersMe)).Methods(http.MethodGet)

	r.HandleFunc("/api/node", s.authed(auth, s.handleNodeList)).Methods(http.MethodGet)
	r.HandleFunc("/api/node", s.authed(auth, s.handleNodeCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/node/{id}", s.authed(auth, s.handleNodeDelete)).Methods(http.MethodDelete)

	r.HandleFunc("/api/root", s.authed(auth, s.handleRootList)).Methods(http.MethodGet)
	r.HandleFunc("/api/root", s.authed(auth, s.handleRootCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/root/{id}", s.authed(auth, s.handleRootGet)).Methods(http.MethodGet)
	r.HandleFunc("/api/root/{id}", s.authed(auth, s.handleRootDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/api/root/{id}/index", s.authed(auth, s.handleRootIndexCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/root/{id}/index", s.authed(auth, s.handleRootIndexDelete)).Methods(http.MethodDelete)

	r.HandleFunc("/api/workspace", s.authed(auth, s.handleWorkspaceSearch)).Methods(http.MethodGet)
	r.HandleFunc("/api/workspace", s.authed(auth, s.handleWorkspaceCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/workspace/{id}", s.authed(auth, s.handleWorkspaceGet)).Methods(http.MethodGet)
	r.HandleFunc("/api/workspace/{id}", s.authed(auth, s.handleWorkspaceDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/api/workspace/{id}/crawl", s.authed(auth, s.handleWorkspaceCrawl)).Methods(http.MethodPost)
	r.HandleFunc("/api/workspace/{id}/bulk_index", s.authed(auth, s.handleWorkspaceBulkIndex)).Methods(http.MethodPost)
	r.HandleFunc("/api/workspace/share", s.authed(auth, s.handleShareCreate)).Methods(http.MethodPost)

	r.HandleFunc("/api/token", s.authed(auth, s.handleTokenList)).Methods(http.MethodGet)
	r.HandleFunc("/api/token", s.authed(auth, s.handleTokenCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/token/{id}", s.authed(auth, s.handleTokenDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/api/token/search", s.authed(auth, s.handleTokenSearch)).Methods(http.MethodPost)
	r.HandleFunc("/api/token/gc", s.authed(auth, s.handleTokenGC)).Methods(http.MethodPost)

	r.HandleFunc("/api/apikey", s.authed(auth, s.handleApiKeyList)).Methods(http.MethodGet)
	r.HandleFunc("/api/apikey", s.authed(auth, s.handleApiKeyCreate)).Methods(http.MethodPost)

	r.HandleFunc("/api/artifact", s.authed(auth, s.handleArtifactList)).Methods(http.MethodGet)
	r.HandleFunc("/api/artifact", s.authed(auth, s.handleArtifactCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/artifact/{id}", s.authed(auth, s.handleArtifactDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/api/artifact/{id}/complete", s.authed(auth, s.handleArtifactComplete)).Methods(http.MethodPost)

	r.HandleFunc("/api/minio/events", s.handleEventsProbe).Methods(http.MethodHead)
	r.HandleFunc("/api/minio/events", s.handleEvents).Methods(http.MethodPost)

	s.Handler = r
	return s
}
