// Package memdb is an in-memory implementation of repository.Set used
// by unit tests. It
// exists instead of mocks for every engine test: real invariant
// checks (uniqueness, cascades) live here once instead of being
// re-asserted by every caller, the way the teacher's in-process
// testplanet stands in for a real satellite without a network.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

// DB is the in-memory repository.Set implementation. The zero value
// is not usable; use New.
type DB struct {
	mu sync.Mutex

	users       map[uuid.UUID]model.User
	usersByName map[string]uuid.UUID

	nodes map[uuid.UUID]model.StorageNode
	roots map[uuid.UUID]model.WorkspaceRoot

	workspaces map[uuid.UUID]model.Workspace
	shares     map[uuid.UUID]model.Share
	tokens     map[uuid.UUID]model.S3Token
	apikeys    map[uuid.UUID]model.ApiKey
	rootIdx    map[string]model.RootIndex // key: rootID+indexType
	rounds     map[uuid.UUID][]model.WorkspaceCrawlRound
	artifacts  map[uuid.UUID]model.Artifact
}

// New builds an empty in-memory database.
func New() *DB {
	return &DB{
		users:       map[uuid.UUID]model.User{},
		usersByName: map[string]uuid.UUID{},
		nodes:       map[uuid.UUID]model.StorageNode{},
		roots:       map[uuid.UUID]model.WorkspaceRoot{},
		workspaces:  map[uuid.UUID]model.Workspace{},
		shares:      map[uuid.UUID]model.Share{},
		tokens:      map[uuid.UUID]model.S3Token{},
		apikeys:     map[uuid.UUID]model.ApiKey{},
		rootIdx:     map[string]model.RootIndex{},
		rounds:      map[uuid.UUID][]model.WorkspaceCrawlRound{},
		artifacts:   map[uuid.UUID]model.Artifact{},
	}
}

var _ repository.Set = (*DB)(nil)

// Users returns the Users repository facet.
func (db *DB) Users() repository.Users { return usersRepo{db} }

// Nodes returns the Nodes repository facet.
func (db *DB) Nodes() repository.Nodes { return nodesRepo{db} }

// Roots returns the Roots repository facet.
func (db *DB) Roots() repository.Roots { return rootsRepo{db} }

// Workspaces returns the Workspaces repository facet.
func (db *DB) Workspaces() repository.Workspaces { return workspacesRepo{db} }

// Shares returns the Shares repository facet.
func (db *DB) Shares() repository.Shares { return sharesRepo{db} }

// Tokens returns the Tokens repository facet.
func (db *DB) Tokens() repository.Tokens { return tokensRepo{db} }

// ApiKeys returns the ApiKeys repository facet.
func (db *DB) ApiKeys() repository.ApiKeys { return apikeysRepo{db} }

// RootIndexes returns the RootIndexes repository facet.
func (db *DB) RootIndexes() repository.RootIndexes { return rootIndexesRepo{db} }

// CrawlRounds returns the CrawlRounds repository facet.
func (db *DB) CrawlRounds() repository.CrawlRounds { return crawlRoundsRepo{db} }

// Artifacts returns the Artifacts repository facet.
func (db *DB) Artifacts() repository.Artifacts { return artifactsRepo{db} }

// ---- users ----

type usersRepo struct{ db *DB }

func (r usersRepo) Get(_ context.Context, id uuid.UUID) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return model.User{}, apierror.NotFound("user %s not found", id)
	}
	return u, nil
}

func (r usersRepo) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, ok := r.db.usersByName[strings.ToLower(username)]
	if !ok {
		return model.User{}, apierror.NotFound("user %q not found", username)
	}
	return r.db.users[id], nil
}

func (r usersRepo) Upsert(_ context.Context, u model.User) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.db.users[u.ID] = u
	r.db.usersByName[strings.ToLower(u.Username)] = u.ID
	return u, nil
}

// ---- nodes ----

type nodesRepo struct{ db *DB }

func (r nodesRepo) Get(_ context.Context, id uuid.UUID) (model.StorageNode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.nodes[id]
	if !ok {
		return model.StorageNode{}, apierror.NotFound("node %s not found", id)
	}
	return n, nil
}

func (r nodesRepo) List(_ context.Context) ([]model.StorageNode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.StorageNode, 0, len(r.db.nodes))
	for _, n := range r.db.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r nodesRepo) Create(_ context.Context, n model.StorageNode) (model.StorageNode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.nodes {
		if existing.Name == n.Name || existing.APIURL == n.APIURL {
			return model.StorageNode{}, apierror.IntegrityViolation(nil, "node name or api_url already registered")
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.db.nodes[n.ID] = n
	return n, nil
}

func (r nodesRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.nodes[id]; !ok {
		return apierror.NotFound("node %s not found", id)
	}
	for rootID, root := range r.db.roots {
		if root.NodeID == id {
			delete(r.db.roots, rootID)
		}
	}
	delete(r.db.nodes, id)
	return nil
}

// ---- roots ----

type rootsRepo struct{ db *DB }

func (r rootsRepo) Get(_ context.Context, id uuid.UUID) (model.WorkspaceRoot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	root, ok := r.db.roots[id]
	if !ok {
		return model.WorkspaceRoot{}, apierror.NotFound("root %s not found", id)
	}
	return root, nil
}

func (r rootsRepo) ListByNode(_ context.Context, nodeID uuid.UUID) ([]model.WorkspaceRoot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.WorkspaceRoot
	for _, root := range r.db.roots {
		if root.NodeID == nodeID {
			out = append(out, root)
		}
	}
	return out, nil
}

func (r rootsRepo) FindCovering(_ context.Context, bucket, key string) (model.WorkspaceRoot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best model.WorkspaceRoot
	found := false
	for _, root := range r.db.roots {
		if root.Bucket != bucket {
			continue
		}
		if !isPrefixPath(root.BasePath, key) {
			continue
		}
		if !found || len(root.BasePath) > len(best.BasePath) {
			best, found = root, true
		}
	}
	if !found {
		return model.WorkspaceRoot{}, apierror.InvalidArgument("no index for object: no root covers bucket %q key %q", bucket, key)
	}
	return best, nil
}

func isPrefixPath(basePath, key string) bool {
	if basePath == "" {
		return true
	}
	return key == basePath || strings.HasPrefix(key, basePath+"/")
}

func (r rootsRepo) Create(_ context.Context, root model.WorkspaceRoot) (model.WorkspaceRoot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.roots {
		if existing.Bucket == root.Bucket && existing.BasePath == root.BasePath && existing.NodeID == root.NodeID {
			return model.WorkspaceRoot{}, apierror.IntegrityViolation(nil, "root (bucket, base_path, node) already exists")
		}
	}
	if root.ID == uuid.Nil {
		root.ID = uuid.New()
	}
	r.db.roots[root.ID] = root
	return root, nil
}

func (r rootsRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.roots[id]; !ok {
		return apierror.NotFound("root %s not found", id)
	}
	delete(r.db.roots, id)
	return nil
}

func (r rootsRepo) CountWorkspaces(_ context.Context, rootID uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, ws := range r.db.workspaces {
		if ws.RootID == rootID {
			n++
		}
	}
	return n, nil
}

// ---- workspaces ----

type workspacesRepo struct{ db *DB }

func (r workspacesRepo) Get(_ context.Context, id uuid.UUID) (model.Workspace, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ws, ok := r.db.workspaces[id]
	if !ok {
		return model.Workspace{}, apierror.NotFound("workspace %s not found", id)
	}
	return ws, nil
}

func (r workspacesRepo) GetMany(_ context.Context, ids []uuid.UUID) ([]model.Workspace, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Workspace, 0, len(ids))
	for _, id := range ids {
		ws, ok := r.db.workspaces[id]
		if !ok {
			return nil, apierror.NotFound("workspace %s not found", id)
		}
		out = append(out, ws)
	}
	return out, nil
}

func (r workspacesRepo) accessible(ws model.Workspace, userID uuid.UUID) bool {
	if ws.OwnerID == userID {
		return true
	}
	for _, s := range r.db.shares {
		if s.WorkspaceID == ws.ID && s.ShareeID == userID {
			return true
		}
	}
	root, ok := r.db.roots[ws.RootID]
	return ok && root.RootType == model.RootPublic
}

func (r workspacesRepo) Search(_ context.Context, filter repository.WorkspaceFilter) ([]model.Workspace, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Workspace
	for _, ws := range r.db.workspaces {
		if filter.Name != "" && !strings.EqualFold(ws.Name, filter.Name) {
			continue
		}
		if filter.OwnerID != nil && ws.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AccessibleTo != uuid.Nil && !r.accessible(ws, filter.AccessibleTo) {
			continue
		}
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r workspacesRepo) FindByBasePathPrefix(_ context.Context, rootID uuid.UUID, key string) (model.Workspace, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best model.Workspace
	found := false
	for _, ws := range r.db.workspaces {
		if ws.RootID != rootID || !ws.IsUnmanaged() {
			continue
		}
		if !isPrefixPath(ws.BasePath, key) {
			continue
		}
		if !found || len(ws.BasePath) > len(best.BasePath) {
			best, found = ws, true
		}
	}
	if !found {
		return model.Workspace{}, apierror.NotFound("no unmanaged workspace covers key %q", key)
	}
	return best, nil
}

func (r workspacesRepo) FindByNameAndOwner(_ context.Context, rootID uuid.UUID, name, ownerUsername string) (model.Workspace, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ownerID, ok := r.db.usersByName[strings.ToLower(ownerUsername)]
	if !ok {
		return model.Workspace{}, apierror.NotFound("user %q not found", ownerUsername)
	}
	for _, ws := range r.db.workspaces {
		if ws.RootID == rootID && ws.OwnerID == ownerID && strings.EqualFold(ws.Name, name) {
			return ws, nil
		}
	}
	return model.Workspace{}, apierror.NotFound("workspace %q for owner %q not found", name, ownerUsername)
}

func (r workspacesRepo) Create(_ context.Context, ws model.Workspace) (model.Workspace, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.workspaces {
		if existing.OwnerID == ws.OwnerID && strings.EqualFold(existing.Name, ws.Name) {
			return model.Workspace{}, apierror.IntegrityViolation(nil, "(name, owner) already exists")
		}
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	r.db.workspaces[ws.ID] = ws
	return ws, nil
}

func (r workspacesRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.workspaces[id]; !ok {
		return apierror.NotFound("workspace %s not found", id)
	}
	delete(r.db.workspaces, id)
	return nil
}

// ---- shares ----

type sharesRepo struct{ db *DB }

func (r sharesRepo) Get(_ context.Context, id uuid.UUID) (model.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.shares[id]
	if !ok {
		return model.Share{}, apierror.NotFound("share %s not found", id)
	}
	return s, nil
}

func (r sharesRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]model.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Share
	for _, s := range r.db.shares {
		if s.CreatorID == userID || s.ShareeID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r sharesRepo) ListForWorkspaceAndSharee(_ context.Context, workspaceID, shareeID uuid.UUID) (*model.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.shares {
		if s.WorkspaceID == workspaceID && s.ShareeID == shareeID {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r sharesRepo) Create(_ context.Context, s model.Share) (model.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.shares {
		if existing.WorkspaceID == s.WorkspaceID && existing.CreatorID == s.CreatorID && existing.ShareeID == s.ShareeID {
			return model.Share{}, apierror.IntegrityViolation(nil, "(workspace, creator, sharee) already exists")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.db.shares[s.ID] = s
	return s, nil
}

func (r sharesRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.shares[id]; !ok {
		return apierror.NotFound("share %s not found", id)
	}
	delete(r.db.shares, id)
	return nil
}

// ---- tokens ----

type tokensRepo struct{ db *DB }

func (r tokensRepo) Get(_ context.Context, id uuid.UUID) (model.S3Token, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tokens[id]
	if !ok {
		return model.S3Token{}, apierror.NotFound("token %s not found", id)
	}
	return t, nil
}

func (r tokensRepo) ListForOwner(_ context.Context, ownerID uuid.UUID) ([]model.S3Token, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.S3Token
	for _, t := range r.db.tokens {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func sameSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := map[uuid.UUID]bool{}
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
		delete(set, id)
	}
	return len(set) == 0
}

func (r tokensRepo) FindReusable(_ context.Context, ownerID uuid.UUID, foreignWorkspaceIDs, rootIDs []uuid.UUID, now time.Time) (*model.S3Token, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best *model.S3Token
	for id, t := range r.db.tokens {
		if t.OwnerID != ownerID || !t.Expiration.After(now) {
			continue
		}
		if !sameSet(t.WorkspaceIDs, foreignWorkspaceIDs) || !sameSet(t.RootIDs, rootIDs) {
			continue
		}
		candidate := r.db.tokens[id]
		if best == nil || candidate.Expiration.After(best.Expiration) {
			cp := candidate
			best = &cp
		}
	}
	return best, nil
}

func (r tokensRepo) Create(_ context.Context, t model.S3Token) (model.S3Token, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.db.tokens[t.ID] = t
	return t, nil
}

func (r tokensRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.tokens, id)
	return nil
}

func (r tokensRepo) DeleteAllForOwner(_ context.Context, ownerID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, t := range r.db.tokens {
		if t.OwnerID == ownerID {
			delete(r.db.tokens, id)
		}
	}
	return nil
}

func (r tokensRepo) DeleteReferencingWorkspace(_ context.Context, workspaceID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, t := range r.db.tokens {
		for _, ws := range t.WorkspaceIDs {
			if ws == workspaceID {
				delete(r.db.tokens, id)
				break
			}
		}
	}
	return nil
}

func (r tokensRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for id, t := range r.db.tokens {
		if !t.Expiration.After(now) {
			delete(r.db.tokens, id)
			n++
		}
	}
	return n, nil
}

// ---- api keys ----

type apikeysRepo struct{ db *DB }

func (r apikeysRepo) GetByKeyID(_ context.Context, keyID string) (model.ApiKey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, k := range r.db.apikeys {
		if k.KeyID == keyID {
			return k, nil
		}
	}
	return model.ApiKey{}, apierror.NotFound("api key %q not found", keyID)
}

func (r apikeysRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]model.ApiKey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.ApiKey
	for _, k := range r.db.apikeys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r apikeysRepo) Create(_ context.Context, k model.ApiKey) (model.ApiKey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	r.db.apikeys[k.ID] = k
	return k, nil
}

// ---- root indexes ----

type rootIndexesRepo struct{ db *DB }

func rootIndexKey(rootID uuid.UUID, indexType model.IndexType) string {
	return rootID.String() + "|" + string(indexType)
}

func (r rootIndexesRepo) Get(_ context.Context, rootID uuid.UUID, indexType model.IndexType) (model.RootIndex, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ri, ok := r.db.rootIdx[rootIndexKey(rootID, indexType)]
	if !ok {
		return model.RootIndex{}, apierror.NotFound("root %s is not subscribed for index type %q", rootID, indexType)
	}
	return ri, nil
}

func (r rootIndexesRepo) ListForRoot(_ context.Context, rootID uuid.UUID) ([]model.RootIndex, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.RootIndex
	for _, ri := range r.db.rootIdx {
		if ri.RootID == rootID {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (r rootIndexesRepo) CountForIndexType(_ context.Context, indexType model.IndexType) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, ri := range r.db.rootIdx {
		if ri.IndexType == indexType {
			n++
		}
	}
	return n, nil
}

func (r rootIndexesRepo) Create(_ context.Context, ri model.RootIndex) (model.RootIndex, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := rootIndexKey(ri.RootID, ri.IndexType)
	if _, exists := r.db.rootIdx[key]; exists {
		return model.RootIndex{}, apierror.IntegrityViolation(nil, "root already subscribed for this index type")
	}
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	r.db.rootIdx[key] = ri
	return ri, nil
}

func (r rootIndexesRepo) Delete(_ context.Context, rootID uuid.UUID, indexType model.IndexType) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := rootIndexKey(rootID, indexType)
	if _, ok := r.db.rootIdx[key]; !ok {
		return apierror.NotFound("root %s is not subscribed for index type %q", rootID, indexType)
	}
	delete(r.db.rootIdx, key)
	return nil
}

// ---- crawl rounds ----

type crawlRoundsRepo struct{ db *DB }

func (r crawlRoundsRepo) Latest(_ context.Context, workspaceID uuid.UUID) (model.WorkspaceCrawlRound, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rounds := r.db.rounds[workspaceID]
	if len(rounds) == 0 {
		return model.WorkspaceCrawlRound{}, false, nil
	}
	latest := rounds[0]
	for _, round := range rounds[1:] {
		if round.StartTime.After(latest.StartTime) {
			latest = round
		}
	}
	return latest, true, nil
}

func (r crawlRoundsRepo) Create(_ context.Context, round model.WorkspaceCrawlRound) (model.WorkspaceCrawlRound, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	r.db.rounds[round.WorkspaceID] = append(r.db.rounds[round.WorkspaceID], round)
	return round, nil
}

func (r crawlRoundsRepo) Update(_ context.Context, round model.WorkspaceCrawlRound) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rounds := r.db.rounds[round.WorkspaceID]
	for i, existing := range rounds {
		if existing.ID == round.ID {
			rounds[i] = round
			r.db.rounds[round.WorkspaceID] = rounds
			return nil
		}
	}
	return apierror.NotFound("crawl round %s not found", round.ID)
}

// ---- artifacts ----

type artifactsRepo struct{ db *DB }

func (r artifactsRepo) Get(_ context.Context, id uuid.UUID) (model.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.artifacts[id]
	if !ok {
		return model.Artifact{}, apierror.NotFound("artifact %s not found", id)
	}
	return a, nil
}

func (r artifactsRepo) ListForWorkspace(_ context.Context, workspaceID uuid.UUID) ([]model.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Artifact
	for _, a := range r.db.artifacts {
		if a.WorkspaceID == workspaceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectPath < out[j].ObjectPath })
	return out, nil
}

func (r artifactsRepo) FindByPath(_ context.Context, workspaceID uuid.UUID, objectPath string) (*model.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.artifacts {
		if a.WorkspaceID == workspaceID && a.ObjectPath == objectPath {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r artifactsRepo) Create(_ context.Context, a model.Artifact) (model.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.artifacts {
		if existing.WorkspaceID == a.WorkspaceID && existing.ObjectPath == a.ObjectPath {
			return model.Artifact{}, apierror.IntegrityViolation(nil, "(workspace, object_path) already registered")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.db.artifacts[a.ID] = a
	return a, nil
}

func (r artifactsRepo) MarkComplete(_ context.Context, id uuid.UUID, revisionDate time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.artifacts[id]
	if !ok {
		return apierror.NotFound("artifact %s not found", id)
	}
	a.Complete = true
	a.ObjectRevisionDate = revisionDate
	r.db.artifacts[id] = a
	return nil
}

func (r artifactsRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.artifacts[id]; !ok {
		return apierror.NotFound("artifact %s not found", id)
	}
	delete(r.db.artifacts, id)
	return nil
}
