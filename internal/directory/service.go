// Package directory maintains collaborator grants and team memberships:
// who is attached to which resource, and with what standing.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/notify"
	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
)

var (
	// ErrAlreadyMember means the (resource, user) pair already has an
	// entry. UI layers should treat this as idempotent success.
	ErrAlreadyMember = errors.New("already a member")

	// ErrLastOwner means the operation would leave a team with no owner.
	ErrLastOwner = errors.New("cannot remove or demote the last owner")
)

// Service exposes the add/update/remove operations on the directory.
// Every mutation takes the acting user and enforces its own permission
// guard; callers never pre-check.
type Service struct {
	driver   store.Driver
	resolver *access.Resolver
	notifier *notify.Notifier
}

// NewService creates a directory service.
func NewService(driver store.Driver, resolver *access.Resolver, notifier *notify.Notifier) *Service {
	return &Service{
		driver:   driver,
		resolver: resolver,
		notifier: notifier,
	}
}

// CreateTeam creates a team and its first owner membership atomically.
// A team must never exist with zero owners.
func (s *Service) CreateTeam(ctx context.Context, actorID, name string) (*store.Team, error) {
	now := time.Now().UTC()
	team := &store.Team{
		ID:          uuid.NewString(),
		OwnerUserID: actorID,
		Name:        name,
		CreatedAt:   now,
	}

	err := s.driver.Transact(ctx, func(tx store.Store) error {
		if err := tx.CreateTeam(ctx, team); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, &store.TeamMembership{
			TeamID:    team.ID,
			UserID:    actorID,
			Role:      string(permission.TeamOwner),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// AddCollaborator grants a user a level on a document. Requires the
// actor to hold Admin or above on the document.
func (s *Service) AddCollaborator(ctx context.Context, actorID, documentID, userID string, level permission.Level, canShare bool) (*store.CollaboratorGrant, error) {
	target := resource.Target{Kind: resource.KindDocument, ID: documentID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Admin); err != nil {
		return nil, err
	}
	if _, err := s.driver.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	grant := &store.CollaboratorGrant{
		DocumentID: documentID,
		UserID:     userID,
		Level:      string(level),
		CanShare:   canShare && level == permission.Editor,
		GrantedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.driver.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:       notify.EventCollaboratorAdded,
		ActorID:    actorID,
		TargetKind: string(resource.KindDocument),
		TargetID:   documentID,
		Level:      string(level),
	})
	return grant, nil
}

// UpdateCollaboratorPermission changes an existing grant's level.
// Requires Admin or above on the document.
func (s *Service) UpdateCollaboratorPermission(ctx context.Context, actorID, documentID, userID string, level permission.Level, canShare bool) error {
	target := resource.Target{Kind: resource.KindDocument, ID: documentID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Admin); err != nil {
		return err
	}

	grant, err := s.driver.GetGrant(ctx, documentID, userID)
	if err != nil {
		return err
	}
	grant.Level = string(level)
	grant.CanShare = canShare && level == permission.Editor
	grant.UpdatedAt = time.Now().UTC()
	return s.driver.UpdateGrant(ctx, grant)
}

// RemoveCollaborator deletes a grant. Requires Admin or above on the
// document. Removal is immediate; there is no soft-delete state.
func (s *Service) RemoveCollaborator(ctx context.Context, actorID, documentID, userID string) error {
	target := resource.Target{Kind: resource.KindDocument, ID: documentID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Admin); err != nil {
		return err
	}
	return s.driver.DeleteGrant(ctx, documentID, userID)
}

// ListCollaborators returns a document's grants. Requires at least
// Viewer on the document.
func (s *Service) ListCollaborators(ctx context.Context, actorID, documentID string) ([]*store.CollaboratorGrant, error) {
	target := resource.Target{Kind: resource.KindDocument, ID: documentID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Viewer); err != nil {
		return nil, err
	}
	return s.driver.ListGrantsByDocument(ctx, documentID)
}

// AddTeamMember adds a user to a team. Requires Admin or above on the
// team.
func (s *Service) AddTeamMember(ctx context.Context, actorID, teamID, userID string, role permission.TeamRole) (*store.TeamMembership, error) {
	target := resource.Target{Kind: resource.KindTeam, ID: teamID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Admin); err != nil {
		return nil, err
	}
	if _, err := s.driver.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &store.TeamMembership{
		TeamID:    teamID,
		UserID:    userID,
		Role:      string(role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.driver.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:       notify.EventMemberAdded,
		ActorID:    actorID,
		TargetKind: string(resource.KindTeam),
		TargetID:   teamID,
		Level:      string(role.Level()),
	})
	return m, nil
}

// UpdateTeamRole changes a member's role. Requires Admin or above on
// the team. Demoting the sole owner fails with ErrLastOwner; the owner
// check and the write happen in one transaction.
func (s *Service) UpdateTeamRole(ctx context.Context, actorID, teamID, userID string, role permission.TeamRole) error {
	target := resource.Target{Kind: resource.KindTeam, ID: teamID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Admin); err != nil {
		return err
	}

	return s.driver.Transact(ctx, func(tx store.Store) error {
		m, err := tx.GetMembership(ctx, teamID, userID)
		if err != nil {
			return err
		}
		if m.Role == string(permission.TeamOwner) && role != permission.TeamOwner {
			owners, err := tx.CountOwners(ctx, teamID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		m.Role = string(role)
		m.UpdatedAt = time.Now().UTC()
		return tx.UpdateMembership(ctx, m)
	})
}

// RemoveTeamMember removes a membership. Requires Admin or above on the
// team, except that users may always remove themselves. Removing the
// sole owner fails with ErrLastOwner.
func (s *Service) RemoveTeamMember(ctx context.Context, actorID, teamID, userID string) error {
	if actorID != userID {
		target := resource.Target{Kind: resource.KindTeam, ID: teamID}
		if err := s.resolver.Require(ctx, actorID, target, permission.Admin); err != nil {
			return err
		}
	}

	return s.driver.Transact(ctx, func(tx store.Store) error {
		m, err := tx.GetMembership(ctx, teamID, userID)
		if err != nil {
			return err
		}
		if m.Role == string(permission.TeamOwner) {
			owners, err := tx.CountOwners(ctx, teamID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		return tx.DeleteMembership(ctx, teamID, userID)
	})
}

// ListTeamMembers returns a team's memberships. Requires at least
// Viewer on the team.
func (s *Service) ListTeamMembers(ctx context.Context, actorID, teamID string) ([]*store.TeamMembership, error) {
	target := resource.Target{Kind: resource.KindTeam, ID: teamID}
	if err := s.resolver.Require(ctx, actorID, target, permission.Viewer); err != nil {
		return nil, err
	}
	return s.driver.ListMembershipsByTeam(ctx, teamID)
}
