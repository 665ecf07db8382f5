// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package keybuilder_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/keybuilder"
	"github.com/storj-labs/workspace-broker/internal/model"
)

func TestWorkspaceKey_Managed(t *testing.T) {
	owner := model.User{ID: uuid.New(), Username: "alice"}
	root := model.WorkspaceRoot{ID: uuid.New(), BasePath: "", RootType: model.RootPrivate}
	ws := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: owner.ID, RootID: root.ID}

	key, err := keybuilder.WorkspaceKey(ws, root, owner)
	require.NoError(t, err)
	assert.Equal(t, "alice/photos", key)
}

func TestWorkspaceKey_ManagedWithBasePrefix(t *testing.T) {
	owner := model.User{ID: uuid.New(), Username: "alice"}
	root := model.WorkspaceRoot{ID: uuid.New(), BasePath: "tenants/east", RootType: model.RootPublic}
	ws := model.Workspace{ID: uuid.New(), Name: "photos", OwnerID: owner.ID, RootID: root.ID}

	key, err := keybuilder.WorkspaceKey(ws, root, owner)
	require.NoError(t, err)
	assert.Equal(t, "tenants/east/alice/photos", key)
}

func TestWorkspaceKey_Unmanaged(t *testing.T) {
	owner := model.User{ID: uuid.New(), Username: "ops"}
	root := model.WorkspaceRoot{ID: uuid.New(), BasePath: "imports", RootType: model.RootUnmanaged}
	ws := model.Workspace{ID: uuid.New(), Name: "legacy", OwnerID: owner.ID, RootID: root.ID, BasePath: "2019/legacy-dump"}

	key, err := keybuilder.WorkspaceKey(ws, root, owner)
	require.NoError(t, err)
	assert.Equal(t, "imports/2019/legacy-dump", key)
}

func TestWorkspaceKey_InjectiveWithinRoot(t *testing.T) {
	root := model.WorkspaceRoot{ID: uuid.New(), BasePath: "", RootType: model.RootPublic}
	alice := model.User{ID: uuid.New(), Username: "alice"}
	bob := model.User{ID: uuid.New(), Username: "bob"}

	keys := map[string]bool{}
	cases := []model.Workspace{
		{Name: "photos", OwnerID: alice.ID},
		{Name: "videos", OwnerID: alice.ID},
		{Name: "photos", OwnerID: bob.ID},
	}
	owners := map[uuid.UUID]model.User{alice.ID: alice, bob.ID: bob}

	for _, ws := range cases {
		key, err := keybuilder.WorkspaceKey(ws, root, owners[ws.OwnerID])
		require.NoError(t, err)
		assert.False(t, keys[key], "key %q collided", key)
		keys[key] = true
	}
}

func TestSanitize_RejectsPrefixInjection(t *testing.T) {
	_, err := keybuilder.Sanitize("../../etc")
	assert.Error(t, err)

	_, err = keybuilder.Sanitize("alice/evil")
	assert.Error(t, err)

	clean, err := keybuilder.Sanitize("alice-bob.2024_x")
	require.NoError(t, err)
	assert.Equal(t, "alice-bob.2024_x", clean)
}

func TestPrimaryKey_StableAndDeterministic(t *testing.T) {
	a := keybuilder.PrimaryKey("https://s3.example.com", "bucket", "alice/photos", "sep.jpg")
	b := keybuilder.PrimaryKey("https://s3.example.com", "bucket", "alice/photos", "sep.jpg")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	c := keybuilder.PrimaryKey("https://s3.example.com", "bucket", "alice/photos", "other.jpg")
	assert.NotEqual(t, a, c)
}

func TestPrimaryKey_EventExample(t *testing.T) {
	// From spec §8 scenario 4: key "public/alice/photos/README.md" on
	// bucket "b", no delimiter between fields.
	got := keybuilder.PrimaryKey("", "b", "public/alice/photos", "README.md")
	assert.Len(t, got, 16)
}
