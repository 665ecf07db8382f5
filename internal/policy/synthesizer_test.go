// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package policy_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/policy"
)

func marshal(t *testing.T, doc *policy.Document) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func hasResource(t *testing.T, doc *policy.Document, action policy.Action, resource string) bool {
	t.Helper()
	for _, s := range doc.Statements {
		actionMatch := false
		for _, a := range s.Action {
			if a == action {
				actionMatch = true
			}
		}
		if !actionMatch {
			continue
		}
		for _, r := range s.Resource {
			if r == resource {
				return true
			}
		}
	}
	return false
}

// Scenario 1 from spec §8: private workspace happy path.
func TestSynthesize_PrivateWorkspaceHappyPath(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice"}
	node := uuid.New()
	root := model.WorkspaceRoot{ID: uuid.New(), NodeID: node, Bucket: "b", BasePath: "", RootType: model.RootPrivate}
	ws := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: alice.ID, RootID: root.ID}

	doc, err := policy.Synthesize(alice, []policy.MyWorkspace{{Workspace: ws, Root: root}}, nil)
	require.NoError(t, err)

	assert.True(t, hasResource(t, doc, policy.ActionAll, "arn:aws:s3:::b/alice/*"))
	assert.False(t, hasResource(t, doc, policy.ActionGetObject, "arn:aws:s3:::b/bob/*"))
}

// For any (requester, workspace-set) with no shares and no public
// roots, the synthesized policy grants no access to other users' keys.
func TestSynthesize_NoForeignAccessWithoutSharesOrPublicRoots(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice"}
	node := uuid.New()
	root := model.WorkspaceRoot{ID: uuid.New(), NodeID: node, Bucket: "b", BasePath: "", RootType: model.RootPrivate}
	ws := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: alice.ID, RootID: root.ID}

	doc, err := policy.Synthesize(alice, []policy.MyWorkspace{{Workspace: ws, Root: root}}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "bob")
}

// Scenario 2 from spec §8: sharing grants exactly GetObject, no write.
func TestSynthesize_ReadShareGrantsGetObjectOnly(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice"}
	bob := model.User{ID: uuid.New(), Username: "bob"}
	node := uuid.New()
	root := model.WorkspaceRoot{ID: uuid.New(), NodeID: node, Bucket: "b", BasePath: "", RootType: model.RootPrivate}
	ws := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: alice.ID, RootID: root.ID}
	share := model.Share{ID: uuid.New(), WorkspaceID: ws.ID, CreatorID: alice.ID, ShareeID: bob.ID, Permission: model.PermissionRead}

	foreign := []policy.ForeignWorkspace{{Workspace: ws, Root: root, Owner: alice, Share: &share}}
	doc, err := policy.Synthesize(bob, nil, foreign)
	require.NoError(t, err)

	assert.True(t, hasResource(t, doc, policy.ActionGetObject, "arn:aws:s3:::b/alice/photos/*"))
	assert.False(t, hasResource(t, doc, policy.ActionPutObject, "arn:aws:s3:::b/alice/photos/*"))
	assert.False(t, hasResource(t, doc, policy.ActionDeleteObject, "arn:aws:s3:::b/alice/photos/*"))
}

func TestSynthesize_ReadWriteShareGrantsPutAndDelete(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice"}
	bob := model.User{ID: uuid.New(), Username: "bob"}
	node := uuid.New()
	root := model.WorkspaceRoot{ID: uuid.New(), NodeID: node, Bucket: "b", BasePath: "", RootType: model.RootPrivate}
	ws := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: alice.ID, RootID: root.ID}
	share := model.Share{ID: uuid.New(), WorkspaceID: ws.ID, CreatorID: alice.ID, ShareeID: bob.ID, Permission: model.PermissionReadWrite}

	foreign := []policy.ForeignWorkspace{{Workspace: ws, Root: root, Owner: alice, Share: &share}}
	doc, err := policy.Synthesize(bob, nil, foreign)
	require.NoError(t, err)

	assert.True(t, hasResource(t, doc, policy.ActionPutObject, "arn:aws:s3:::b/alice/photos/*"))
	assert.True(t, hasResource(t, doc, policy.ActionDeleteObject, "arn:aws:s3:::b/alice/photos/*"))
}

func TestSynthesize_UnmanagedOwnershipWithoutShareGrantsWrite(t *testing.T) {
	ops := model.User{ID: uuid.New(), Username: "ops"}
	node := uuid.New()
	root := model.WorkspaceRoot{ID: uuid.New(), NodeID: node, Bucket: "b", BasePath: "imports", RootType: model.RootUnmanaged}
	ws := model.Workspace{ID: uuid.New(), Name: "legacy", OwnerID: ops.ID, RootID: root.ID, BasePath: "dump"}

	foreign := []policy.ForeignWorkspace{{Workspace: ws, Root: root, Owner: ops, Share: nil}}
	doc, err := policy.Synthesize(ops, nil, foreign)
	require.NoError(t, err)

	assert.True(t, hasResource(t, doc, policy.ActionPutObject, "arn:aws:s3:::b/imports/dump/*"))
}

func TestSynthesize_DedupesRootStatementsAcrossOwnedWorkspaces(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice"}
	node := uuid.New()
	root := model.WorkspaceRoot{ID: uuid.New(), NodeID: node, Bucket: "b", BasePath: "", RootType: model.RootPrivate}
	ws1 := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: alice.ID, RootID: root.ID}
	ws2 := model.Workspace{ID: uuid.New(), Name: "videos", OwnerID: alice.ID, RootID: root.ID}

	doc, err := policy.Synthesize(alice, []policy.MyWorkspace{{Workspace: ws1, Root: root}, {Workspace: ws2, Root: root}}, nil)
	require.NoError(t, err)

	count := 0
	for _, s := range doc.Statements {
		for _, a := range s.Action {
			if a == policy.ActionGetBucketLocation {
				count++
			}
		}
	}
	assert.Equal(t, 1, count)
}

func TestSynthesize_RejectsMultipleNodes(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice"}
	root1 := model.WorkspaceRoot{ID: uuid.New(), NodeID: uuid.New(), Bucket: "b1", RootType: model.RootPrivate}
	root2 := model.WorkspaceRoot{ID: uuid.New(), NodeID: uuid.New(), Bucket: "b2", RootType: model.RootPrivate}
	ws1 := model.Workspace{ID: uuid.New(), Name: "a", OwnerID: alice.ID, RootID: root1.ID}
	ws2 := model.Workspace{ID: uuid.New(), Name: "b", OwnerID: alice.ID, RootID: root2.ID}

	_, err := policy.Synthesize(alice, []policy.MyWorkspace{{Workspace: ws1, Root: root1}, {Workspace: ws2, Root: root2}}, nil)
	assert.Error(t, err)
}

func TestDocument_MarshalsWireShape(t *testing.T) {
	doc := policy.NewDocument().Add(policy.Statement{
		Effect:   policy.Allow,
		Action:   []policy.Action{policy.ActionGetObject},
		Resource: []string{"arn:aws:s3:::b/alice/*"},
	})
	out := marshal(t, doc)
	assert.Equal(t, "2012-10-17", out["Version"])
	statements := out["Statement"].([]interface{})
	require.Len(t, statements, 1)
	first := statements[0].(map[string]interface{})
	assert.Equal(t, "Allow", first["Effect"])
	assert.Equal(t, "s3:GetObject", first["Action"])
}
