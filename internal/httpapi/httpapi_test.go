package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/httpapi"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository/memdb"
	"github.com/storj-labs/workspace-broker/internal/resolver"
	"github.com/storj-labs/workspace-broker/internal/share"
)

type fixedAuth struct {
	user model.User
}

func (a fixedAuth) Authenticate(r *http.Request) (model.User, error) {
	return a.user, nil
}

func testServer(t *testing.T) (*httpapi.Server, *memdb.DB, model.User) {
	t.Helper()

	repo := memdb.New()
	user, err := repo.Users().Upsert(context.Background(), model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	resolve := resolver.New(repo.Users(), repo.Workspaces())
	shareMgr := share.New(repo, resolve)

	services := &httpapi.Services{
		Repo:          repo,
		Share:         shareMgr,
		Resolver:      resolve,
		PublicAddress: "broker.example.test:8080",
	}
	server := httpapi.NewServer(nil, services, fixedAuth{user: user})
	return server, repo, user
}

// createRootDirect seeds a node and a root straight through the
// repository, bypassing POST /api/root's bucket-provisioning side
// effect (which requires a live S3 endpoint).
func createRootDirect(t *testing.T, repo *memdb.DB, creator model.User, rootType model.RootType) model.WorkspaceRoot {
	t.Helper()
	node, err := repo.Nodes().Create(context.Background(), model.StorageNode{
		Name: "n", APIURL: "https://s3.example.test", Region: "us-east-1", CreatorID: creator.ID,
	})
	require.NoError(t, err)
	root, err := repo.Roots().Create(context.Background(), model.WorkspaceRoot{
		NodeID: node.ID, Bucket: "b", RootType: rootType,
	})
	require.NoError(t, err)
	return root
}

func doRequest(server *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	server.Handler.ServeHTTP(rr, r)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	b, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

func TestInfo(t *testing.T) {
	server, _, _ := testServer(t)
	rr := doRequest(server, http.MethodGet, "/api/info", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		PublicAddress string `json:"public_address"`
	}
	decodeBody(t, rr, &resp)
	require.Equal(t, "broker.example.test:8080", resp.PublicAddress)
}

func TestUsersMe(t *testing.T) {
	server, _, user := testServer(t)
	rr := doRequest(server, http.MethodGet, "/api/users/me", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got model.User
	decodeBody(t, rr, &got)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "alice", got.Username)
}

func TestNodeCRUDReturnsCredentialsToCreator(t *testing.T) {
	server, _, _ := testServer(t)

	rr := doRequest(server, http.MethodPost, "/api/node", `{
		"name": "primary",
		"api_url": "https://s3.example.test",
		"region": "us-east-1",
		"access_key_id": "AKIDEXAMPLE",
		"secret_access_key": "supersecret"
	}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created struct {
		ID              uuid.UUID `json:"id"`
		AccessKeyID     string    `json:"access_key_id"`
		SecretAccessKey string    `json:"secret_access_key"`
	}
	decodeBody(t, rr, &created)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "AKIDEXAMPLE", created.AccessKeyID, "creator sees its own node's credentials")

	rr = doRequest(server, http.MethodGet, "/api/node", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []struct {
		AccessKeyID     string `json:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key"`
	}
	decodeBody(t, rr, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, "AKIDEXAMPLE", listed[0].AccessKeyID)

	rr = doRequest(server, http.MethodDelete, "/api/node/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(server, http.MethodGet, "/api/node", "")
	decodeBody(t, rr, &listed)
	require.Empty(t, listed)
}

func TestWorkspaceSearchCreateDelete(t *testing.T) {
	server, repo, user := testServer(t)
	root := createRootDirect(t, repo, user, model.RootPublic)

	rr := doRequest(server, http.MethodPost, "/api/workspace", `{"name": "ws1", "root_id": "`+root.ID.String()+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var ws struct {
		ID uuid.UUID `json:"id"`
	}
	decodeBody(t, rr, &ws)
	require.NotEqual(t, uuid.Nil, ws.ID)

	rr = doRequest(server, http.MethodGet, "/api/workspace?name=ws1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var found []struct {
		Name string `json:"name"`
	}
	decodeBody(t, rr, &found)
	require.Len(t, found, 1)
	require.Equal(t, "ws1", found[0].Name)

	rr = doRequest(server, http.MethodDelete, "/api/workspace/"+ws.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(server, http.MethodGet, "/api/workspace?name=ws1", "")
	decodeBody(t, rr, &found)
	require.Empty(t, found)
}

func TestWorkspaceCreateRejectsBasePathOnManagedRoot(t *testing.T) {
	server, repo, user := testServer(t)
	root := createRootDirect(t, repo, user, model.RootPublic)

	rr := doRequest(server, http.MethodPost, "/api/workspace", `{"name": "ws1", "root_id": "`+root.ID.String()+`", "base_path": "custom/path"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWorkspaceDeleteRequiresOwner(t *testing.T) {
	server, repo, user := testServer(t)
	root := createRootDirect(t, repo, user, model.RootPublic)

	other, err := repo.Users().Upsert(context.Background(), model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	ws, err := repo.Workspaces().Create(context.Background(), model.Workspace{Name: "ws1", OwnerID: other.ID, RootID: root.ID})
	require.NoError(t, err)

	rr := doRequest(server, http.MethodDelete, "/api/workspace/"+ws.ID.String(), "")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestEventsProbe(t *testing.T) {
	server, _, _ := testServer(t)
	rr := doRequest(server, http.MethodHead, "/api/minio/events", "")
	require.Equal(t, http.StatusOK, rr.Code)
	b, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.Empty(t, b)
}
