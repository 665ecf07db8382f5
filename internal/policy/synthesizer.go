package policy

import (
	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/keybuilder"
	"github.com/storj-labs/workspace-broker/internal/model"
)

// MyWorkspace is an owned-or-public workspace in the requester's "my"
// segment (spec §4.E segmentation step).
type MyWorkspace struct {
	Workspace model.Workspace
	Root      model.WorkspaceRoot
}

// ForeignWorkspace is a workspace the requester does not own but has
// been granted access to via an explicit Share, or one the requester
// owns on an unmanaged root (spec §4.E step 2, last bullet).
type ForeignWorkspace struct {
	Workspace model.Workspace
	Root      model.WorkspaceRoot
	Owner     model.User
	Share     *model.Share // nil when access derives from ownership-on-unmanaged
}

func bucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}

func objectARN(bucket, prefix string) string {
	return "arn:aws:s3:::" + bucket + "/" + prefix
}

// Synthesize builds the minimal IAM policy document for one requester
// on one node, granting the "my" segment its default access and each
// foreign workspace exactly the access its share (or ownership, for
// unmanaged roots) implies. All workspaces must share a single node;
// mixing nodes is a caller error (spec §4.C).
func Synthesize(requester model.User, my []MyWorkspace, foreign []ForeignWorkspace) (*Document, error) {
	if err := checkSingleNode(my, foreign); err != nil {
		return nil, err
	}

	doc := NewDocument()

	statemented := make(map[uuid.UUID]bool)
	ownsPublicInRoot := make(map[uuid.UUID]bool)
	for _, m := range my {
		if m.Root.RootType == model.RootPublic {
			ownsPublicInRoot[m.Root.ID] = true
		}
	}

	for _, m := range my {
		if statemented[m.Root.ID] {
			continue
		}
		statemented[m.Root.ID] = true
		addRootStatements(doc, m.Root, requester.Username, ownsPublicInRoot[m.Root.ID])
	}

	for _, f := range foreign {
		key, err := keybuilder.WorkspaceKey(f.Workspace, f.Root, f.Owner)
		if err != nil {
			return nil, apierror.InvalidArgument("cannot derive key for foreign workspace %s: %v", f.Workspace.ID, err)
		}
		addForeignWorkspaceStatements(doc, f, key)
	}

	return doc, nil
}

func checkSingleNode(my []MyWorkspace, foreign []ForeignWorkspace) error {
	var nodeID uuid.UUID
	seen := false
	check := func(id uuid.UUID) error {
		if !seen {
			nodeID, seen = id, true
			return nil
		}
		if id != nodeID {
			return apierror.InvalidArgument("workspaces span multiple storage nodes")
		}
		return nil
	}
	for _, m := range my {
		if err := check(m.Root.NodeID); err != nil {
			return err
		}
	}
	for _, f := range foreign {
		if err := check(f.Root.NodeID); err != nil {
			return err
		}
	}
	return nil
}

// addRootStatements emits the per-root statements for the "my"
// segment: GetBucketLocation always, then the public/private layout
// grants (spec §4.C statements 1-3).
func addRootStatements(doc *Document, root model.WorkspaceRoot, username string, ownsPublicHere bool) {
	bucket := bucketARN(root.Bucket)

	doc.Add(Statement{
		Effect:   Allow,
		Action:   []Action{ActionGetBucketLocation},
		Resource: []string{bucket},
	})

	switch root.RootType {
	case model.RootPublic:
		basePrefix := joinPrefix(root.BasePath, "*")
		doc.Add(Statement{
			Effect:   Allow,
			Action:   []Action{ActionListBucket},
			Resource: []string{bucket},
			Conditions: []Condition{
				{Operator: StringLike, Key: "s3:prefix", Values: []string{basePrefix}},
				{Operator: StringEquals, Key: "s3:delimiter", Values: []string{"/"}},
			},
		})
		doc.Add(Statement{
			Effect:   Allow,
			Action:   []Action{ActionGetObject},
			Resource: []string{objectARN(root.Bucket, basePrefix)},
		})
		if ownsPublicHere {
			ownPrefix := joinPrefix(root.BasePath, username, "*")
			doc.Add(Statement{
				Effect:   Allow,
				Action:   []Action{ActionAll},
				Resource: []string{objectARN(root.Bucket, ownPrefix)},
			})
		}

	case model.RootPrivate:
		ownPrefix := joinPrefix(root.BasePath, username, "*")
		doc.Add(Statement{
			Effect:   Allow,
			Action:   []Action{ActionListBucket},
			Resource: []string{bucket},
			Conditions: []Condition{
				{Operator: StringLike, Key: "s3:prefix", Values: []string{ownPrefix}},
			},
		})
		doc.Add(Statement{
			Effect:   Allow,
			Action:   []Action{ActionAll},
			Resource: []string{objectARN(root.Bucket, ownPrefix)},
		})

	case model.RootUnmanaged:
		// Unmanaged roots never contribute to the "my" segment: any
		// unmanaged workspace the requester holds is handled as a
		// foreign workspace (spec §4.E step 2, last bullet).
	}
}

// addForeignWorkspaceStatements emits the workspace-scoped statements
// for one foreign workspace (spec §4.C statements 1-4).
func addForeignWorkspaceStatements(doc *Document, f ForeignWorkspace, key string) {
	bucket := bucketARN(f.Root.Bucket)

	doc.Add(Statement{
		Effect:   Allow,
		Action:   []Action{ActionListBucket},
		Resource: []string{bucket},
		Conditions: []Condition{
			{Operator: StringLike, Key: "s3:prefix", Values: []string{key, key + "/*"}},
			{Operator: StringEquals, Key: "s3:delimiter", Values: []string{"/"}},
		},
	})

	doc.Add(Statement{
		Effect:   Allow,
		Action:   []Action{ActionGetObject},
		Resource: []string{objectARN(f.Root.Bucket, key+"/*")},
	})

	if canWrite(f) {
		doc.Add(Statement{
			Effect:   Allow,
			Action:   []Action{ActionPutObject, ActionDeleteObject},
			Resource: []string{objectARN(f.Root.Bucket, key+"/*")},
		})
	}
}

// canWrite implements spec §4.C statements 3-4: an explicit
// readwrite/own share grants write, and so does requester ownership of
// an unmanaged-root workspace with no share at all.
func canWrite(f ForeignWorkspace) bool {
	if f.Share != nil {
		return f.Share.Permission == model.PermissionReadWrite || f.Share.Permission == model.PermissionOwn
	}
	return f.Root.RootType == model.RootUnmanaged
}

func joinPrefix(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
			continue
		}
		out = out + "/" + p
	}
	return out
}
