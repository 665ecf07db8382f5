// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package crawl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/crawl"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository/memdb"
	"github.com/storj-labs/workspace-broker/internal/search"
)

func setupCrawl(t *testing.T) (*memdb.DB, model.User, model.StorageNode, model.WorkspaceRoot, model.Workspace, *crawl.Coordinator) {
	t.Helper()
	db := memdb.New()
	ctx := context.Background()

	operator, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "ops"})
	require.NoError(t, err)
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x", CreatorID: operator.ID})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	searchClient := search.New(srv.URL, srv.Client(), nil)
	coord := crawl.New(db, searchClient, nil)
	return db, operator, node, root, ws, coord
}

func TestCreateRound_FirstCallOpensRound(t *testing.T) {
	_, operator, _, _, ws, coord := setupCrawl(t)
	ctx := context.Background()

	round, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, round.Open())
	assert.Empty(t, round.LastIndexedKey)
}

func TestCreateRound_ReturnsExistingOpenRound(t *testing.T) {
	_, operator, _, _, ws, coord := setupCrawl(t)
	ctx := context.Background()

	first, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)
	second, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateRound_NonOperatorRejected(t *testing.T) {
	_, _, _, _, ws, coord := setupCrawl(t)
	ctx := context.Background()

	_, err := coord.CreateRound(ctx, uuid.New(), ws.ID, time.Now())
	assert.Error(t, err)
}

func TestBulk_AccumulatesAndClosesOnSucceeded(t *testing.T) {
	_, operator, _, _, ws, coord := setupCrawl(t)
	ctx := context.Background()

	round, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)

	updated, err := coord.Bulk(ctx, ws.ID, crawl.BulkRequest{
		RoundID:        round.ID,
		LastIndexedKey: "page1",
		Succeeded:      false,
		Documents: []crawl.Document{
			{Path: "a.txt", Filename: "a.txt", Size: 10},
			{Path: "b.txt", Filename: "b.txt", Size: 20},
		},
	}, time.Now())
	require.NoError(t, err)
	assert.True(t, updated.Open())
	assert.EqualValues(t, 2, updated.TotalObjects)
	assert.EqualValues(t, 30, updated.TotalSize)
	assert.Equal(t, "page1", updated.LastIndexedKey)

	final, err := coord.Bulk(ctx, ws.ID, crawl.BulkRequest{
		RoundID:        round.ID,
		LastIndexedKey: "page2",
		Succeeded:      true,
		Documents:      []crawl.Document{{Path: "c.txt", Filename: "c.txt", Size: 5}},
	}, time.Now())
	require.NoError(t, err)
	assert.False(t, final.Open())
	assert.EqualValues(t, 3, final.TotalObjects)
	assert.NotNil(t, final.EndTime)
}

func TestBulk_RejectsClosedRound(t *testing.T) {
	_, operator, _, _, ws, coord := setupCrawl(t)
	ctx := context.Background()

	round, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)
	_, err = coord.Bulk(ctx, ws.ID, crawl.BulkRequest{RoundID: round.ID, Succeeded: true}, time.Now())
	require.NoError(t, err)

	_, err = coord.Bulk(ctx, ws.ID, crawl.BulkRequest{RoundID: round.ID, Succeeded: false}, time.Now())
	assert.Error(t, err)
}

func TestCreateRound_StartsFreshAfterPriorRoundSucceeded(t *testing.T) {
	_, operator, _, _, ws, coord := setupCrawl(t)
	ctx := context.Background()

	first, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)
	_, err = coord.Bulk(ctx, ws.ID, crawl.BulkRequest{RoundID: first.ID, Succeeded: true}, time.Now())
	require.NoError(t, err)

	second, err := coord.CreateRound(ctx, operator.ID, ws.ID, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}
