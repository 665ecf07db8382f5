// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package resolver_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository/memdb"
	"github.com/storj-labs/workspace-broker/internal/resolver"
)

func setup(t *testing.T) (*memdb.DB, context.Context) {
	t.Helper()
	return memdb.New(), context.Background()
}

func mustUser(t *testing.T, db *memdb.DB, ctx context.Context, username string) model.User {
	t.Helper()
	u, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: username})
	require.NoError(t, err)
	return u
}

func mustRoot(t *testing.T, db *memdb.DB, ctx context.Context, rootType model.RootType) model.WorkspaceRoot {
	t.Helper()
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n-" + uuid.NewString(), APIURL: "http://x-" + uuid.NewString()})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: rootType})
	require.NoError(t, err)
	return root
}

func TestResolve_UsernamePrefixedSuccess(t *testing.T) {
	db, ctx := setup(t)
	alice := mustUser(t, db, ctx, "alice")
	root := mustRoot(t, db, ctx, model.RootPrivate)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	res, err := r.Resolve(ctx, alice.ID, "alice/photos/2024/sep.jpg")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, ws.ID, res.Workspace.ID)
	assert.Equal(t, "2024/sep.jpg", res.InnerPath)
}

func TestResolve_Ambiguous(t *testing.T) {
	db, ctx := setup(t)
	alice := mustUser(t, db, ctx, "alice")
	bob := mustUser(t, db, ctx, "bob")
	root := mustRoot(t, db, ctx, model.RootPublic)
	_, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)
	_, err = db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: bob.ID, RootID: root.ID})
	require.NoError(t, err)

	carol := mustUser(t, db, ctx, "carol")
	r := resolver.New(db.Users(), db.Workspaces())
	_, err = r.Resolve(ctx, carol.ID, "photos")
	assert.Error(t, err)
}

func TestResolve_HailMaryWhenUsernameGuessWrong(t *testing.T) {
	db, ctx := setup(t)
	alice := mustUser(t, db, ctx, "alice")
	root := mustRoot(t, db, ctx, model.RootPrivate)
	// Workspace named "alice" (not owned by a user named "photos"):
	// "alice/inner/path" should resolve "alice" as the workspace name
	// once the username guess for "alice" (as if alice/... meant user
	// alice) but workspace lookup under owner alice for name "inner"
	// fails, falling back to treating "alice" itself as the workspace.
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "alice", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	res, err := r.Resolve(ctx, alice.ID, "alice/notes.txt")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, ws.ID, res.Workspace.ID)
	assert.Equal(t, "notes.txt", res.InnerPath)
}

func TestResolve_NoMatch(t *testing.T) {
	db, ctx := setup(t)
	alice := mustUser(t, db, ctx, "alice")

	r := resolver.New(db.Users(), db.Workspaces())
	res, err := r.Resolve(ctx, alice.ID, "nobody/nothing")
	require.NoError(t, err)
	assert.False(t, res.Found)
}
