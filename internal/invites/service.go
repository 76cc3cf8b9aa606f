// Package invites implements the invitation lifecycle: creation, token
// resolution, expiry, and the accept/decline state machine.
package invites

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/directory"
	"github.com/draftdeck/draftdeck/internal/notify"
	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
)

var (
	// ErrInvalidEmail means the invitee email fails format validation.
	ErrInvalidEmail = errors.New("invalid invitee email")

	// ErrNotPending is the state-machine guard: the attempted action
	// requires a pending invitation and the invitation is not pending.
	ErrNotPending = errors.New("invitation is not pending")

	// ErrEmailMismatch means the accepting user's verified email does
	// not match the invitee email.
	ErrEmailMismatch = errors.New("invitee email does not match")

	// ErrExpired means the invitation window has closed.
	ErrExpired = errors.New("invitation expired")
)

// InvitationTTL is the fixed validity window for new invitations.
const InvitationTTL = 7 * 24 * time.Hour

// Service drives the invitation state machine.
type Service struct {
	driver   store.Driver
	resolver *access.Resolver
	notifier *notify.Notifier
}

// NewService creates an invitation service.
func NewService(driver store.Driver, resolver *access.Resolver, notifier *notify.Notifier) *Service {
	return &Service{
		driver:   driver,
		resolver: resolver,
		notifier: notifier,
	}
}

// CreateInput carries everything Create needs beyond the acting user.
// Exactly one of DocumentID, TeamID, GameID must be set.
type CreateInput struct {
	DocumentID   string
	TeamID       string
	GameID       string
	InviteeEmail string
	Level        permission.Level
	CanReshare   bool
	Message      string
}

// Create persists a new pending invitation after checking the inviter's
// standing on the target. An inviter can never grant a level above their
// own; team targets require Admin; document and game targets require
// reshare rights (Owner, Admin, or an Editor grant with the share flag);
// granting Editor-with-reshare requires Admin or above.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*store.Invitation, error) {
	target, err := resource.FromIDs(in.DocumentID, in.TeamID, in.GameID)
	if err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(in.InviteeEmail); err != nil {
		return nil, ErrInvalidEmail
	}
	if !in.Level.Valid() {
		return nil, permission.ErrInvalidLevel
	}
	// Only Editor carries the reshare flag.
	canReshare := in.CanReshare && in.Level == permission.Editor

	eff, ok, err := s.resolver.EffectivePermission(ctx, actorID, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, access.ErrInsufficientPermission
	}
	if permission.Compare(in.Level, eff.Level) > 0 {
		return nil, access.ErrInsufficientPermission
	}
	switch target.Kind {
	case resource.KindTeam:
		if !eff.Level.Satisfies(permission.Admin) {
			return nil, access.ErrInsufficientPermission
		}
	default:
		if !eff.CanReshare {
			return nil, access.ErrInsufficientPermission
		}
	}
	if canReshare && !eff.Level.Satisfies(permission.Admin) {
		return nil, access.ErrInsufficientPermission
	}

	// A game invitation lands as membership on the game's owning team;
	// without one there is nothing the acceptance could grant.
	if target.Kind == resource.KindGame {
		game, err := s.driver.GetGame(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if game.TeamID == "" {
			return nil, resource.ErrInvalidTarget
		}
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &store.Invitation{
		ID:            uuid.NewString(),
		Token:         token,
		InviterUserID: actorID,
		InviteeEmail:  strings.ToLower(in.InviteeEmail),
		DocumentID:    in.DocumentID,
		TeamID:        in.TeamID,
		GameID:        in.GameID,
		Level:         string(in.Level),
		CanReshare:    canReshare,
		Message:       in.Message,
		Status:        store.InvitationPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(InvitationTTL),
	}
	if err := s.driver.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:       notify.EventInvitationSent,
		ActorID:    actorID,
		TargetKind: string(target.Kind),
		TargetID:   target.ID,
		Recipient:  inv.InviteeEmail,
		Level:      inv.Level,
	})
	return inv, nil
}

// Resolve looks up an invitation by its link token. A pending invitation
// whose window has closed is transitioned to expired on this read path
// and returned as expired; that is the only way expired is reached.
func (s *Service) Resolve(ctx context.Context, token string) (*store.Invitation, error) {
	inv, err := s.driver.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.lazyExpire(ctx, inv)
}

// Accept transitions a pending invitation to accepted and applies the
// promised directory entry, atomically. The acting user's verified email
// must match the invitee email (case-insensitive), and the inviter must
// still hold at least the invited level at acceptance time.
func (s *Service) Accept(ctx context.Context, invitationID, actorID string) (*store.Invitation, error) {
	user, err := s.driver.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	inv, err := s.getCurrent(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status == store.InvitationExpired {
		return nil, ErrExpired
	}
	if inv.Status != store.InvitationPending {
		return nil, ErrNotPending
	}
	if !user.EmailVerified || !strings.EqualFold(user.Email, inv.InviteeEmail) {
		return nil, ErrEmailMismatch
	}

	level, err := permission.Parse(inv.Level)
	if err != nil {
		return nil, err
	}
	target, err := resource.FromIDs(inv.DocumentID, inv.TeamID, inv.GameID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.driver.Transact(ctx, func(tx store.Store) error {
		// The status check is the serialization point: a concurrent
		// accept loses here and observes ErrNotPending.
		if err := tx.UpdateInvitationStatus(ctx, inv.ID, store.InvitationPending, store.InvitationAccepted, &now); err != nil {
			if errors.Is(err, store.ErrStale) {
				return ErrNotPending
			}
			return err
		}
		// The invitation carries the inviter's authority, not its own.
		// An inviter who lost standing since sending it can no longer
		// back the promised grant; the transaction rolls back and the
		// invitation stays pending.
		eff, ok, err := s.resolver.WithStore(tx).EffectivePermission(ctx, inv.InviterUserID, target)
		if err != nil {
			return err
		}
		if !ok || permission.Compare(level, eff.Level) > 0 {
			return access.ErrInsufficientPermission
		}
		return directory.ApplyInvitation(ctx, tx, inv, actorID)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = store.InvitationAccepted
	inv.RespondedAt = &now

	s.notifier.Emit(ctx, notify.Event{
		Type:       notify.EventInvitationAccepted,
		ActorID:    actorID,
		TargetKind: inv.TargetKind(),
		TargetID:   inv.TargetID(),
		Recipient:  inv.InviteeEmail,
		Level:      inv.Level,
	})
	return inv, nil
}

// Decline settles a pending invitation without granting anything. The
// invitee declines it; the inviter cancels it, which lands as revoked.
// Declining an already-expired invitation fails with ErrNotPending so
// the caller sees that the window closed.
func (s *Service) Decline(ctx context.Context, invitationID, actorID string) (*store.Invitation, error) {
	user, err := s.driver.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	inv, err := s.getCurrent(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status != store.InvitationPending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	switch {
	case strings.EqualFold(user.Email, inv.InviteeEmail):
		if err := s.transition(ctx, inv.ID, store.InvitationDeclined, &now); err != nil {
			return nil, err
		}
		inv.Status = store.InvitationDeclined
		inv.RespondedAt = &now
		s.emitSettled(ctx, notify.EventInvitationDeclined, actorID, inv)
	case actorID == inv.InviterUserID:
		if err := s.transition(ctx, inv.ID, store.InvitationRevoked, nil); err != nil {
			return nil, err
		}
		inv.Status = store.InvitationRevoked
		s.emitSettled(ctx, notify.EventInvitationRevoked, actorID, inv)
	default:
		return nil, access.ErrInsufficientPermission
	}

	return inv, nil
}

// ListPending returns the open invitations addressed to an email. Expiry
// is computed at read time here; rows are not rewritten by a listing.
func (s *Service) ListPending(ctx context.Context, email string) ([]*store.Invitation, error) {
	invs, err := s.driver.ListInvitationsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []*store.Invitation
	for _, inv := range invs {
		if inv.Status == store.InvitationPending && now.Before(inv.ExpiresAt) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListSent returns every invitation a user has sent, in any state.
func (s *Service) ListSent(ctx context.Context, userID string) ([]*store.Invitation, error) {
	return s.driver.ListInvitationsByInviter(ctx, userID)
}

// getCurrent fetches an invitation by id with lazy expiry applied.
func (s *Service) getCurrent(ctx context.Context, id string) (*store.Invitation, error) {
	inv, err := s.driver.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.lazyExpire(ctx, inv)
}

// lazyExpire persists the pending -> expired transition when the window
// has closed. The boundary counts as expired. Losing the write to a
// concurrent transition is fine; the re-read reflects whoever won.
func (s *Service) lazyExpire(ctx context.Context, inv *store.Invitation) (*store.Invitation, error) {
	if inv.Status != store.InvitationPending || time.Now().Before(inv.ExpiresAt) {
		return inv, nil
	}
	err := s.driver.UpdateInvitationStatus(ctx, inv.ID, store.InvitationPending, store.InvitationExpired, nil)
	if err != nil && !errors.Is(err, store.ErrStale) {
		return nil, err
	}
	return s.driver.GetInvitation(ctx, inv.ID)
}

func (s *Service) transition(ctx context.Context, id string, to store.InvitationStatus, respondedAt *time.Time) error {
	err := s.driver.UpdateInvitationStatus(ctx, id, store.InvitationPending, to, respondedAt)
	if errors.Is(err, store.ErrStale) {
		return ErrNotPending
	}
	return err
}

func (s *Service) emitSettled(ctx context.Context, evType notify.EventType, actorID string, inv *store.Invitation) {
	s.notifier.Emit(ctx, notify.Event{
		Type:       evType,
		ActorID:    actorID,
		TargetKind: inv.TargetKind(),
		TargetID:   inv.TargetID(),
		Recipient:  inv.InviteeEmail,
		Level:      inv.Level,
	})
}

// newToken returns 32 bytes of cryptographic randomness, URL-safe
// encoded. The storage-level unique constraint is the collision
// backstop.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
