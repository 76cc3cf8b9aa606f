// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrStale         = errors.New("stale write: row changed since read")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	Store

	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite, postgres).
	Name() string

	// Transact runs fn against a transactional view of the store. Writes
	// inside fn are applied atomically: if fn returns an error, nothing
	// persists.
	Transact(ctx context.Context, fn func(Store) error) error
}

// Store groups the per-entity store interfaces. It is implemented by
// drivers and by the transactional views Transact hands to callbacks.
type Store interface {
	InvitationStore
	GrantStore
	MembershipStore
	ResourceStore
	UserStore
}

// InvitationStore defines operations for invitation persistence.
// Invitations are never deleted; terminal rows are retained for audit.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitation(ctx context.Context, id string) (*Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)

	// UpdateInvitationStatus transitions an invitation between statuses.
	// The transition is an optimistic compare-and-set: if the row is no
	// longer in the "from" status, ErrStale is returned and nothing is
	// written.
	UpdateInvitationStatus(ctx context.Context, id string, from, to InvitationStatus, respondedAt *time.Time) error

	ListInvitationsByEmail(ctx context.Context, email string) ([]*Invitation, error)
	ListInvitationsByInviter(ctx context.Context, inviterUserID string) ([]*Invitation, error)
}

// GrantStore defines operations for document collaborator grants.
type GrantStore interface {
	// CreateGrant inserts a grant. Returns ErrAlreadyExists for a
	// duplicate (document, user) pair.
	CreateGrant(ctx context.Context, grant *CollaboratorGrant) error
	GetGrant(ctx context.Context, documentID, userID string) (*CollaboratorGrant, error)
	UpdateGrant(ctx context.Context, grant *CollaboratorGrant) error
	DeleteGrant(ctx context.Context, documentID, userID string) error
	ListGrantsByDocument(ctx context.Context, documentID string) ([]*CollaboratorGrant, error)
}

// MembershipStore defines operations for team memberships.
type MembershipStore interface {
	// CreateMembership inserts a membership. Returns ErrAlreadyExists for
	// a duplicate (team, user) pair.
	CreateMembership(ctx context.Context, m *TeamMembership) error
	GetMembership(ctx context.Context, teamID, userID string) (*TeamMembership, error)
	UpdateMembership(ctx context.Context, m *TeamMembership) error
	DeleteMembership(ctx context.Context, teamID, userID string) error
	ListMembershipsByTeam(ctx context.Context, teamID string) ([]*TeamMembership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*TeamMembership, error)

	// CountOwners returns the number of memberships with the owner role.
	CountOwners(ctx context.Context, teamID string) (int, error)
}

// ResourceStore defines access to the resources this subsystem shares.
// Documents and games are created by the surrounding product; teams are
// created here.
type ResourceStore interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)

	CreateGame(ctx context.Context, game *Game) error
	GetGame(ctx context.Context, id string) (*Game, error)

	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id string) (*Team, error)
}

// UserStore defines operations for user persistence.
type UserStore interface {
	// CreateUser inserts a user. Returns ErrAlreadyExists if the email is
	// already registered.
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}
