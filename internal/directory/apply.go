package directory

import (
	"context"
	"errors"
	"time"

	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
)

// ApplyInvitation upserts the directory entry an accepted invitation
// promises: a collaborator grant for document targets, a team membership
// for team targets, and a membership on the owning team for game
// targets. It runs inside the accept transaction, against the same tx
// view, so the invitation transition and the entry land together.
//
// The invitation itself is the authorization; no actor check happens
// here. An existing entry is never downgraded: the result is the max of
// the current and invited levels.
func ApplyInvitation(ctx context.Context, tx store.Store, inv *store.Invitation, userID string) error {
	level, err := permission.Parse(inv.Level)
	if err != nil {
		return err
	}

	switch {
	case inv.DocumentID != "":
		return applyGrant(ctx, tx, inv, userID, level)
	case inv.TeamID != "":
		return applyMembership(ctx, tx, inv.TeamID, userID, level)
	case inv.GameID != "":
		game, err := tx.GetGame(ctx, inv.GameID)
		if err != nil {
			return err
		}
		if game.TeamID == "" {
			return resource.ErrInvalidTarget
		}
		return applyMembership(ctx, tx, game.TeamID, userID, level)
	default:
		return resource.ErrInvalidTarget
	}
}

func applyGrant(ctx context.Context, tx store.Store, inv *store.Invitation, userID string, level permission.Level) error {
	now := time.Now().UTC()
	canShare := inv.CanReshare && level == permission.Editor

	existing, err := tx.GetGrant(ctx, inv.DocumentID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return tx.CreateGrant(ctx, &store.CollaboratorGrant{
			DocumentID: inv.DocumentID,
			UserID:     userID,
			Level:      string(level),
			CanShare:   canShare,
			GrantedBy:  inv.InviterUserID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err != nil {
		return err
	}

	current, perr := permission.Parse(existing.Level)
	if perr != nil {
		return perr
	}
	best, _ := permission.Max(current, level)
	existing.Level = string(best)
	existing.CanShare = existing.CanShare || (canShare && best == permission.Editor)
	existing.UpdatedAt = now
	return tx.UpdateGrant(ctx, existing)
}

func applyMembership(ctx context.Context, tx store.Store, teamID, userID string, level permission.Level) error {
	now := time.Now().UTC()
	role := permission.RoleForLevel(level)

	existing, err := tx.GetMembership(ctx, teamID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return tx.CreateMembership(ctx, &store.TeamMembership{
			TeamID:    teamID,
			UserID:    userID,
			Role:      string(role),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return err
	}

	currentRole, rerr := permission.ParseTeamRole(existing.Role)
	if rerr != nil {
		return rerr
	}
	best, _ := permission.Max(currentRole.Level(), role.Level())
	existing.Role = string(permission.RoleForLevel(best))
	existing.UpdatedAt = now
	return tx.UpdateMembership(ctx, existing)
}
