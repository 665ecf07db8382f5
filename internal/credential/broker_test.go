// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package credential

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository/memdb"
)

type fakeSTS struct {
	calls int
}

func (f *fakeSTS) AssumeRole(_ context.Context, input *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.calls++
	return &sts.AssumeRoleOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     strPtr("AKIA-" + uuid.NewString()),
			SecretAccessKey: strPtr("secret"),
			SessionToken:    strPtr("session"),
			Expiration:      timePtr(time.Now().Add(time.Hour)),
		},
	}, nil
}

func strPtr(s string) *string      { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func newTestBroker(db *memdb.DB, fake *fakeSTS) *Broker {
	b := New(db, nil, nil)
	b.stsFor = func(_ context.Context, _ model.StorageNode) (stsAPI, error) {
		return fake, nil
	}
	return b
}

func TestRequest_OwnedWorkspaceMintsToken(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	fake := &fakeSTS{}
	b := newTestBroker(db, fake)

	issued, err := b.Request(ctx, alice, []uuid.UUID{ws.ID}, time.Now())
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, node.ID, issued[0].Node.ID)
	assert.NotEmpty(t, issued[0].Token.AccessKeyID)
	assert.Equal(t, 1, fake.calls)
}

func TestRequest_ReusesMatchingToken(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	node, err := db.Nodes().Create(ctx, model.StorageNode{Name: "n1", APIURL: "http://x"})
	require.NoError(t, err)
	root, err := db.Roots().Create(ctx, model.WorkspaceRoot{NodeID: node.ID, Bucket: "b", RootType: model.RootPrivate})
	require.NoError(t, err)
	ws, err := db.Workspaces().Create(ctx, model.Workspace{Name: "photos", OwnerID: alice.ID, RootID: root.ID})
	require.NoError(t, err)

	fake := &fakeSTS{}
	b := newTestBroker(db, fake)

	_, err = b.Request(ctx, alice, []uuid.UUID{ws.ID}, time.Now())
	require.NoError(t, err)
	_, err = b.Request(ctx, alice, []uuid.UUID{ws.ID}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls, "second request should reuse the cached token without calling STS again")
}

func TestRequest_DeniesAccessWithoutShareOrPublicRoot(t *testing.T) {
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

	fake := &fakeSTS{}
	b := newTestBroker(db, fake)

	_, err = b.Request(ctx, bob, []uuid.UUID{ws.ID}, time.Now())
	assert.Error(t, err)
}

func TestRequest_ShareGrantsForeignAccess(t *testing.T) {
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
	_, err = db.Shares().Create(ctx, model.Share{WorkspaceID: ws.ID, CreatorID: alice.ID, ShareeID: bob.ID, Permission: model.PermissionRead})
	require.NoError(t, err)

	fake := &fakeSTS{}
	b := newTestBroker(db, fake)

	issued, err := b.Request(ctx, bob, []uuid.UUID{ws.ID}, time.Now())
	require.NoError(t, err)
	require.Len(t, issued, 1)
}

func TestRevokeAll_RemovesOwnedTokensOnly(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	alice, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	bob, err := db.Users().Upsert(ctx, model.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)

	b := newTestBroker(db, &fakeSTS{})
	_, err = db.Tokens().Create(ctx, model.S3Token{OwnerID: alice.ID, Expiration: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	bobToken, err := db.Tokens().Create(ctx, model.S3Token{OwnerID: bob.ID, Expiration: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, b.RevokeAll(ctx, alice.ID))

	_, err = db.Tokens().Get(ctx, bobToken.ID)
	assert.NoError(t, err)
}

func TestGC_DeletesOnlyExpiredTokens(t *testing.T) {
	db := memdb.New()
	ctx := context.Background()
	b := newTestBroker(db, &fakeSTS{})

	now := time.Now()
	expired, err := db.Tokens().Create(ctx, model.S3Token{OwnerID: uuid.New(), Expiration: now.Add(-time.Minute)})
	require.NoError(t, err)
	live, err := db.Tokens().Create(ctx, model.S3Token{OwnerID: uuid.New(), Expiration: now.Add(time.Hour)})
	require.NoError(t, err)

	n, err := b.GC(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = db.Tokens().Get(ctx, expired.ID)
	assert.Error(t, err)
	_, err = db.Tokens().Get(ctx, live.ID)
	assert.NoError(t, err)
}
