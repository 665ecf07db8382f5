// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package share_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository/memdb"
	"github.com/storj-labs/workspace-broker/internal/resolver"
	"github.com/storj-labs/workspace-broker/internal/share"
)

func TestCreate_OwnerCanShareByUsername(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	bob, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	m := share.New(db, r)

	s, err := m.Create(ctx, alice, share.CreateRequest{
		WorkspaceID: &ws.ID,
		ShareeName:  "bob",
		Permission:  model.PermissionRead,
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, s.ShareeID)
	assert.Equal(t, alice.ID, s.CreatorID)
}

func TestCreate_NonOwnerRejected(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	bob, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	_, err = db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "carol"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	m := share.New(db, r)

	_, err = m.Create(ctx, bob, share.CreateRequest{
		WorkspaceID: &ws.ID,
		ShareeName:  "carol",
		Permission:  model.PermissionRead,
	})
	assert.Error(t, err)
}

func TestCreate_DuplicateShareConflicts(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	_, err = db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	m := share.New(db, r)

	_, err = m.Create(ctx, alice, share.CreateRequest{WorkspaceID: &ws.ID, ShareeName: "bob", Permission: model.PermissionRead})
	require.NoError(t, err)
	_, err = m.Create(ctx, alice, share.CreateRequest{WorkspaceID: &ws.ID, ShareeName: "bob", Permission: model.PermissionReadWrite})
	assert.Error(t, err)
}

func TestRevoke_CascadesInvalidatesTokens(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	bob, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	m := share.New(db, r)
	s, err := m.Create(ctx, alice, share.CreateRequest{WorkspaceID: &ws.ID, ShareeName: "bob", Permission: model.PermissionRead})
	require.NoError(t, err)

	tok, err := db.Tokens().Create(ctx, model.S3Token{
		OwnerID:       bob.ID,
		StorageNodeID: node.ID,
		Expiration:    time.Now().Add(time.Hour),
		WorkspaceIDs:  []uuid.UUID{ws.ID},
	})
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, alice.ID, s.ID))

	_, err = db.Tokens().Get(ctx, tok.ID)
	assert.Error(t, err)
}

func TestList_ReturnsCreatorAndShareeShares(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	bob, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	r := resolver.New(db.Users(), db.Workspaces())
	m := share.New(db, r)
	_, err = m.Create(ctx, alice, share.CreateRequest{WorkspaceID: &ws.ID, ShareeName: "bob", Permission: model.PermissionRead})
	require.NoError(t, err)

	aliceShares, err := m.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, aliceShares, 1)

	bobShares, err := m.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, bobShares, 1)
}
