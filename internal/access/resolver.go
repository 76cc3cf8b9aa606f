// Package access computes effective permissions. Resolution is a pure
// read over grants, memberships, and ownership; it owns no state.
package access

import (
	"context"
	"errors"

	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
)

// ErrInsufficientPermission means the actor's effective permission does
// not meet what the attempted operation requires.
var ErrInsufficientPermission = errors.New("insufficient permission")

// Resolver answers "what may this user do with this resource".
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// WithStore returns a resolver bound to a different store view. Used to
// re-run permission checks inside a transaction.
func (r *Resolver) WithStore(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// source is one route by which a user reaches a resource.
type source struct {
	level   permission.Level
	reshare bool
}

// EffectivePermission resolves the user's access to the target as the
// maximum over every applicable source: resource ownership, a direct
// collaborator grant, and team membership reached through the
// Document -> Game -> Team containment chain (at most two hops).
//
// ok is false when no source contributes; callers must treat that as no
// access, not as Viewer. Returns store.ErrNotFound if the target itself
// does not exist.
func (r *Resolver) EffectivePermission(ctx context.Context, userID string, target resource.Target) (permission.Effective, bool, error) {
	var sources []source
	var err error

	switch target.Kind {
	case resource.KindDocument:
		sources, err = r.documentSources(ctx, userID, target.ID)
	case resource.KindGame:
		sources, err = r.gameSources(ctx, userID, target.ID)
	case resource.KindTeam:
		sources, err = r.teamSources(ctx, userID, target.ID)
	default:
		return permission.Effective{}, false, resource.ErrInvalidTarget
	}
	if err != nil {
		return permission.Effective{}, false, err
	}

	return combine(sources)
}

func combine(sources []source) (permission.Effective, bool, error) {
	levels := make([]permission.Level, 0, len(sources))
	reshare := false
	for _, s := range sources {
		levels = append(levels, s.level)
		reshare = reshare || s.reshare
	}
	best, ok := permission.Max(levels...)
	if !ok {
		return permission.Effective{}, false, nil
	}
	return permission.Effective{Level: best, CanReshare: reshare}, true, nil
}

// grantSource translates a collaborator grant into a source. Admin and
// above always reshare; an Editor reshares only when the grant says so.
func grantSource(level permission.Level, canShare bool) source {
	return source{
		level:   level,
		reshare: level.Satisfies(permission.Admin) || (level == permission.Editor && canShare),
	}
}

func ownerSource() source {
	return source{level: permission.Owner, reshare: true}
}

func roleSource(role permission.TeamRole) source {
	level := role.Level()
	return source{level: level, reshare: level.Satisfies(permission.Admin)}
}

func (r *Resolver) documentSources(ctx context.Context, userID, documentID string) ([]source, error) {
	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	var sources []source
	if doc.OwnerUserID == userID {
		sources = append(sources, ownerSource())
	}

	grant, err := r.store.GetGrant(ctx, documentID, userID)
	switch {
	case err == nil:
		level, perr := permission.Parse(grant.Level)
		if perr != nil {
			return nil, perr
		}
		sources = append(sources, grantSource(level, grant.CanShare))
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	// Containment walk: Document -> Game -> Team, two hops at most.
	if doc.GameID != "" {
		gameSources, err := r.gameChain(ctx, userID, doc.GameID)
		if err != nil {
			return nil, err
		}
		sources = append(sources, gameSources...)
	}

	return sources, nil
}

func (r *Resolver) gameSources(ctx context.Context, userID, gameID string) ([]source, error) {
	// The game acting as the target itself must exist.
	if _, err := r.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return r.gameChain(ctx, userID, gameID)
}

// gameChain collects the sources a game contributes: game ownership and
// the owning team's membership. A dangling game reference contributes
// nothing rather than failing the whole resolution.
func (r *Resolver) gameChain(ctx context.Context, userID, gameID string) ([]source, error) {
	game, err := r.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var sources []source
	if game.OwnerUserID == userID {
		sources = append(sources, ownerSource())
	}

	if game.TeamID != "" {
		s, ok, err := r.membershipSource(ctx, userID, game.TeamID)
		if err != nil {
			return nil, err
		}
		if ok {
			sources = append(sources, s)
		}
	}

	return sources, nil
}

func (r *Resolver) teamSources(ctx context.Context, userID, teamID string) ([]source, error) {
	team, err := r.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var sources []source
	if team.OwnerUserID == userID {
		sources = append(sources, ownerSource())
	}

	s, ok, err := r.membershipSource(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	if ok {
		sources = append(sources, s)
	}

	return sources, nil
}

// Require fails with ErrInsufficientPermission unless the user's
// effective permission on the target satisfies the required level.
func (r *Resolver) Require(ctx context.Context, userID string, target resource.Target, required permission.Level) error {
	eff, ok, err := r.EffectivePermission(ctx, userID, target)
	if err != nil {
		return err
	}
	if !ok || !eff.Level.Satisfies(required) {
		return ErrInsufficientPermission
	}
	return nil
}

func (r *Resolver) membershipSource(ctx context.Context, userID, teamID string) (source, bool, error) {
	m, err := r.store.GetMembership(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return source{}, false, nil
		}
		return source{}, false, err
	}
	role, rerr := permission.ParseTeamRole(m.Role)
	if rerr != nil {
		return source{}, false, rerr
	}
	return roleSource(role), true, nil
}
