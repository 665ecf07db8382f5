// Package credential implements the credential broker from spec §4.E:
// given a requester and a set of workspace ids, segment them into the
// requester's own workspaces and the foreign ones they have been
// granted access to, synthesize (or reuse) a policy, and mint or reuse
// an STS token scoped to exactly that constellation. Grounded on the
// teacher's pkg/auth package, which similarly wraps a third-party
// credential-issuing call behind a persistence-and-reuse layer.
package credential

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/policy"
	"github.com/storj-labs/workspace-broker/internal/repository"
	"github.com/storj-labs/workspace-broker/internal/resolver"
	"github.com/storj-labs/workspace-broker/internal/storageclient"
)

// fallbackRoleARN is handed to STS providers (MinIO in particular)
// that ignore role_arn entirely but still require the field to be
// well-formed, per spec §4.E step 5.
const fallbackRoleARN = "arn:xxx:xxx:xxx:xxxx"

// IssuedToken pairs a minted or reused token with the node it is valid
// against, the shape spec §4.E's output and §4.E's token-search both
// return.
type IssuedToken struct {
	Token model.S3Token
	Node  model.StorageNode
}

// stsAPI is the slice of *sts.Client the broker calls, narrowed to an
// interface so tests can substitute a fake provider instead of making a
// live AssumeRole call.
type stsAPI interface {
	AssumeRole(ctx context.Context, input *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Broker is the credential broker. It owns no state beyond the
// repositories and client cache it is constructed with.
type Broker struct {
	Repo    repository.Set
	Clients *storageclient.Cache
	Log     *zap.Logger

	// stsFor resolves the STS client for a node. Defaults to the
	// client cache's real STS client; tests override it.
	stsFor func(ctx context.Context, node model.StorageNode) (stsAPI, error)
}

// New builds a Broker backed by the real STS clients in clients.
func New(repo repository.Set, clients *storageclient.Cache, log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Broker{Repo: repo, Clients: clients, Log: log}
	b.stsFor = func(ctx context.Context, node model.StorageNode) (stsAPI, error) {
		return clients.STSClient(ctx, node)
	}
	return b
}

type nodeGroup struct {
	node model.StorageNode
	my   []policy.MyWorkspace
	myRootIDs map[uuid.UUID]bool
	foreign []policy.ForeignWorkspace
}

// Request implements spec §4.E's full algorithm for a set of workspace
// ids, returning one issued token per distinct storage node touched.
func (b *Broker) Request(ctx context.Context, requester model.User, workspaceIDs []uuid.UUID, now time.Time) ([]IssuedToken, error) {
	workspaces, err := b.Repo.Workspaces().GetMany(ctx, workspaceIDs)
	if err != nil {
		return nil, err
	}

	groups := make(map[uuid.UUID]*nodeGroup)
	var nodeOrder []uuid.UUID

	for _, ws := range workspaces {
		root, err := b.Repo.Roots().Get(ctx, ws.RootID)
		if err != nil {
			return nil, err
		}

		g, ok := groups[root.NodeID]
		if !ok {
			node, err := b.Repo.Nodes().Get(ctx, root.NodeID)
			if err != nil {
				return nil, err
			}
			g = &nodeGroup{node: node, myRootIDs: make(map[uuid.UUID]bool)}
			groups[root.NodeID] = g
			nodeOrder = append(nodeOrder, root.NodeID)
		}

		if err := b.segment(ctx, requester, ws, root, g); err != nil {
			return nil, err
		}
	}

	var out []IssuedToken
	for _, nodeID := range nodeOrder {
		g := groups[nodeID]
		issued, err := b.issueForGroup(ctx, requester, g, now)
		if err != nil {
			return nil, err
		}
		out = append(out, issued)
	}
	return out, nil
}

// segment implements spec §4.E step 2: classify one workspace as
// owned-or-public ("my"), explicitly shared, public-root-foreign
// (folded into "my"), owner-held-but-unmanaged (foreign, no share), or
// otherwise denied.
func (b *Broker) segment(ctx context.Context, requester model.User, ws model.Workspace, root model.WorkspaceRoot, g *nodeGroup) error {
	owned := ws.OwnerID == requester.ID

	if owned && root.RootType != model.RootUnmanaged {
		g.my = append(g.my, policy.MyWorkspace{Workspace: ws, Root: root})
		g.myRootIDs[root.ID] = true
		return nil
	}

	if !owned && root.RootType == model.RootPublic {
		g.my = append(g.my, policy.MyWorkspace{Workspace: ws, Root: root})
		g.myRootIDs[root.ID] = true
		return nil
	}

	if owned && root.RootType == model.RootUnmanaged {
		owner, err := b.Repo.Users().Get(ctx, ws.OwnerID)
		if err != nil {
			return err
		}
		g.foreign = append(g.foreign, policy.ForeignWorkspace{Workspace: ws, Root: root, Owner: owner, Share: nil})
		return nil
	}

	share, err := b.Repo.Shares().ListForWorkspaceAndSharee(ctx, ws.ID, requester.ID)
	if err != nil {
		return err
	}
	if share != nil && !share.Expired(time.Now()) {
		owner, err := b.Repo.Users().Get(ctx, ws.OwnerID)
		if err != nil {
			return err
		}
		g.foreign = append(g.foreign, policy.ForeignWorkspace{Workspace: ws, Root: root, Owner: owner, Share: share})
		return nil
	}

	return apierror.PermissionDenied("requester has no access to workspace %s", ws.ID)
}

func (b *Broker) issueForGroup(ctx context.Context, requester model.User, g *nodeGroup, now time.Time) (IssuedToken, error) {
	foreignIDs := make([]uuid.UUID, 0, len(g.foreign))
	for _, f := range g.foreign {
		foreignIDs = append(foreignIDs, f.Workspace.ID)
	}
	rootIDs := make([]uuid.UUID, 0, len(g.myRootIDs))
	for id := range g.myRootIDs {
		rootIDs = append(rootIDs, id)
	}
	sortUUIDs(foreignIDs)
	sortUUIDs(rootIDs)

	if reused, err := b.Repo.Tokens().FindReusable(ctx, requester.ID, foreignIDs, rootIDs, now); err != nil {
		return IssuedToken{}, err
	} else if reused != nil {
		return IssuedToken{Token: *reused, Node: g.node}, nil
	}

	doc, err := policy.Synthesize(requester, g.my, g.foreign)
	if err != nil {
		return IssuedToken{}, err
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return IssuedToken{}, apierror.Wrap(apierror.KindUnknown, err, "failed to marshal synthesized policy")
	}

	roleARN := g.node.AssumeRoleARN
	if roleARN == "" {
		roleARN = fallbackRoleARN
	}

	stsClient, err := b.stsFor(ctx, g.node)
	if err != nil {
		return IssuedToken{}, err
	}

	sessionName := requester.ID.String()
	out, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         &roleARN,
		RoleSessionName: &sessionName,
		Policy:          awsString(string(docJSON)),
	})
	if err != nil {
		return IssuedToken{}, apierror.UpstreamError(err, "STS AssumeRole failed")
	}
	creds := mustCredentials(out)

	token := model.S3Token{
		ID:              uuid.New(),
		OwnerID:         requester.ID,
		StorageNodeID:   g.node.ID,
		AccessKeyID:     *creds.AccessKeyId,
		SecretAccessKey: *creds.SecretAccessKey,
		SessionToken:    *creds.SessionToken,
		Expiration:      *creds.Expiration,
		PolicyJSON:      docJSON,
		WorkspaceIDs:    foreignIDs,
		RootIDs:         rootIDs,
	}
	created, err := b.Repo.Tokens().Create(ctx, token)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{Token: created, Node: g.node}, nil
}

func mustCredentials(out *sts.AssumeRoleOutput) *types.Credentials {
	if out == nil || out.Credentials == nil {
		return &types.Credentials{}
	}
	return out.Credentials
}

func awsString(s string) *string { return &s }

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

// Revoke implements spec §4.E's revoke(token_id): clear associations
// (implicit in the memdb/sqldb Delete, which drops the row outright —
// there are no separate association rows to null out) then delete.
func (b *Broker) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	return b.Repo.Tokens().Delete(ctx, tokenID)
}

// RevokeAll implements spec §4.E's revoke_all(user).
func (b *Broker) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return b.Repo.Tokens().DeleteAllForOwner(ctx, userID)
}

// GC is the token-GC supplement from SPEC_FULL.md: sweep tokens whose
// expiration has passed. Issued object-store credentials keep working
// until their own natural expiry regardless (spec §4.E Revocation); GC
// only reclaims broker-side bookkeeping rows.
func (b *Broker) GC(ctx context.Context, now time.Time) (int, error) {
	n, err := b.Repo.Tokens().DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		b.Log.Info("token gc reclaimed expired rows", zap.Int("count", n))
	}
	return n, nil
}

// SearchResult is the {tokens, workspaces} shape spec §4.E's
// token-search end-to-end operation returns.
type SearchResult struct {
	Tokens     []IssuedToken
	Workspaces map[string]resolver.Result
}

// Search implements spec §4.E's token-search end-to-end: resolve every
// term via §4.D, collect the unique workspace ids, then broker a token
// per touched node.
func (b *Broker) Search(ctx context.Context, resolve *resolver.Resolver, requester model.User, terms []string, now time.Time) (SearchResult, error) {
	byTerm := make(map[string]resolver.Result, len(terms))
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID

	for _, term := range terms {
		res, err := resolve.Resolve(ctx, requester.ID, term)
		if err != nil {
			return SearchResult{}, err
		}
		byTerm[term] = res
		if res.Found && !seen[res.Workspace.ID] {
			seen[res.Workspace.ID] = true
			ids = append(ids, res.Workspace.ID)
		}
	}

	if len(ids) == 0 {
		return SearchResult{Tokens: nil, Workspaces: byTerm}, nil
	}

	tokens, err := b.Request(ctx, requester, ids, now)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Tokens: tokens, Workspaces: byTerm}, nil
}
