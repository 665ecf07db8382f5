// Package resolver implements the workspace resolver from spec §4.D:
// turning a slash-separated search term like "alice/photos/sep.jpg"
// into a (workspace, inner path) pair.
package resolver

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

// Resolver resolves search terms against the Users and Workspaces
// repositories.
type Resolver struct {
	Users      repository.Users
	Workspaces repository.Workspaces
}

// New builds a Resolver over the given repositories.
func New(users repository.Users, workspaces repository.Workspaces) *Resolver {
	return &Resolver{Users: users, Workspaces: workspaces}
}

// Result is the (workspace, interior path) pair a successful resolve
// produces. A nil Workspace (zero ID) with no error means "no match",
// per spec §4.D step 6.
type Result struct {
	Workspace model.Workspace
	InnerPath string
	Found     bool
}

func splitTerm(term string) []string {
	raw := strings.Split(term, "/")
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve implements spec §4.D's full algorithm, including the
// "hail-mary" retry (step 5) when the first parts[0]-as-username guess
// turns out to be wrong.
func (r *Resolver) Resolve(ctx context.Context, requester uuid.UUID, term string) (Result, error) {
	parts := splitTerm(term)
	if len(parts) == 0 {
		return Result{}, apierror.InvalidArgument("empty search term")
	}

	if len(parts) >= 2 {
		if user, err := r.Users.GetByUsername(ctx, parts[0]); err == nil {
			ownerID := user.ID
			res, err := r.search(ctx, requester, parts[1], &ownerID, parts[2:])
			if err != nil {
				return Result{}, err
			}
			if res.Found {
				return res, nil
			}
		}
	}

	// Hail-mary: the original parts[0] as the workspace name, with the
	// username guess discarded.
	return r.search(ctx, requester, parts[0], nil, parts[1:])
}

func (r *Resolver) search(ctx context.Context, requester uuid.UUID, name string, ownerID *uuid.UUID, rest []string) (Result, error) {
	matches, err := r.Workspaces.Search(ctx, repository.WorkspaceFilter{
		Name:         name,
		OwnerID:      ownerID,
		AccessibleTo: requester,
	})
	if err != nil {
		return Result{}, err
	}

	switch len(matches) {
	case 0:
		return Result{}, nil
	case 1:
		return Result{Workspace: matches[0], InnerPath: strings.Join(rest, "/"), Found: true}, nil
	default:
		return Result{}, apierror.InvalidArgument("ambiguous: multiple workspace matches for %s", name)
	}
}
