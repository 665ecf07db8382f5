// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package sqldb_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository/sqldb"
)

func openTestDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.Open("sqlite3", "file::memory:?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUsers_UpsertAndLookup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	got, err := db.Users().Get(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice, got)

	byName, err := db.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice, byName)

	alice.Email = "alice2@example.com"
	updated, err := db.Users().Upsert(ctx, alice)
	require.NoError(t, err)
	again, err := db.Users().Get(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, updated.Email, again.Email)
}

func TestUsers_GetMissingReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Users().Get(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestNodes_CreateRejectsDuplicateName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://a"})
	require.NoError(t, err)

	_, err = db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://b"})
	require.Error(t, err)
}

func TestRoots_FindCoveringPicksLongestBasePath(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n2", APIURL: "http://x"})
	require.NoError(t, err)

	_, err = db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", BasePath: "imports", RootType: model.RootUnmanaged})
	require.NoError(t, err)
	nested, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", BasePath: "imports/dump", RootType: model.RootUnmanaged})
	require.NoError(t, err)

	covering, err := db.Roots().FindCovering(ctx, "b", "imports/dump/file.txt")
	require.NoError(t, err)
	require.Equal(t, nested.ID, covering.ID)
}

func TestWorkspaces_CreateRejectsDuplicateNameOwner(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n3", APIURL: "http://y"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b2", RootType: model.RootPrivate})
	require.NoError(t, err)
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice3"})
	require.NoError(t, err)

	_, err = db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)
	_, err = db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.Error(t, err)
}

func TestShares_TokensAndCascadeDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n4", APIURL: "http://z"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b3", RootType: model.RootPrivate})
	require.NoError(t, err)
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice4"})
	require.NoError(t, err)
	bob, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob4"})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	share, err := db.Shares().Create(ctx, model.Share{WorkspaceID: ws.ID, CreatorID: alice.ID, ShareeID: bob.ID, Permission: model.PermissionRead})
	require.NoError(t, err)

	shares, err := db.Shares().ListForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	require.Equal(t, share.ID, shares[0].ID)

	tok, err := db.Tokens().Create(ctx, model.S3Token{
		OwnerID:       bob.ID,
		StorageNodeID: node.ID,
		Expiration:    time.Now().Add(time.Hour),
		WorkspaceIDs:  []uuid.UUID{ws.ID},
		RootIDs:       []uuid.UUID{root.ID},
	})
	require.NoError(t, err)

	reused, err := db.Tokens().FindReusable(ctx, bob.ID, []uuid.UUID{ws.ID}, []uuid.UUID{root.ID}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, reused)
	require.Equal(t, tok.ID, reused.ID)

	require.NoError(t, db.Tokens().DeleteReferencingWorkspace(ctx, ws.ID))
	_, err = db.Tokens().Get(ctx, tok.ID)
	require.Error(t, err)
}

func TestCrawlRounds_LatestAndUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n5", APIURL: "http://w"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b4", RootType: model.RootPrivate})
	require.NoError(t, err)
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice5"})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	_, ok, err := db.CrawlRounds().Latest(ctx, ws.ID)
	require.NoError(t, err)
	require.False(t, ok)

	round, err := db.CrawlRounds().Create(ctx, model.WorkspaceCrawlRound{WorkspaceID: ws.ID, StartTime: time.Now()})
	require.NoError(t, err)

	round.TotalObjects = 5
	round.Succeeded = true
	now := time.Now()
	round.EndTime = &now
	require.NoError(t, db.CrawlRounds().Update(ctx, round))

	latest, ok, err := db.CrawlRounds().Latest(ctx, ws.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 5, latest.TotalObjects)
	require.True(t, latest.Succeeded)
}
