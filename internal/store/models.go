package store

import "time"

// InvitationStatus enumerates the lifecycle states of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// Terminal reports whether the status admits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s != InvitationPending
}

// RoleOwner is the membership role CountOwners counts. Role semantics
// live in the permission package; the store only needs this one value.
const RoleOwner = "owner"

// Invitation is a pending or settled offer of access to a resource.
// Exactly one of DocumentID, TeamID, GameID is set.
type Invitation struct {
	ID            string           `json:"id" gorm:"primaryKey"`
	Token         string           `json:"-" gorm:"uniqueIndex"`
	InviterUserID string           `json:"inviter_user_id" gorm:"index"`
	InviteeEmail  string           `json:"invitee_email" gorm:"index"`
	DocumentID    string           `json:"document_id,omitempty"`
	TeamID        string           `json:"team_id,omitempty"`
	GameID        string           `json:"game_id,omitempty"`
	Level         string           `json:"level"`
	CanReshare    bool             `json:"can_reshare,omitempty"`
	Message       string           `json:"message,omitempty"`
	Status        InvitationStatus `json:"status" gorm:"index"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
}

// TargetKind names which of the three target ids is set.
func (i *Invitation) TargetKind() string {
	switch {
	case i.DocumentID != "":
		return "document"
	case i.TeamID != "":
		return "team"
	case i.GameID != "":
		return "game"
	default:
		return ""
	}
}

// TargetID returns the id of whichever target is set.
func (i *Invitation) TargetID() string {
	switch {
	case i.DocumentID != "":
		return i.DocumentID
	case i.TeamID != "":
		return i.TeamID
	default:
		return i.GameID
	}
}

// CollaboratorGrant gives a user a permission level on a single document.
type CollaboratorGrant struct {
	DocumentID string    `json:"document_id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"primaryKey"`
	Level      string    `json:"level"`
	CanShare   bool      `json:"can_share"`
	GrantedBy  string    `json:"granted_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TeamMembership ties a user to a team with a role.
type TeamMembership struct {
	TeamID    string    `json:"team_id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"primaryKey;index"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is a game design document. GameID is empty for standalone
// documents.
type Document struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	OwnerUserID string    `json:"owner_user_id" gorm:"index"`
	GameID      string    `json:"game_id,omitempty" gorm:"index"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
}

// Game groups documents. TeamID is empty for personal games.
type Game struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	OwnerUserID string    `json:"owner_user_id" gorm:"index"`
	TeamID      string    `json:"team_id,omitempty" gorm:"index"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Team is a named group of users.
type Team struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	OwnerUserID string    `json:"owner_user_id" gorm:"index"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is a registered account.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Email         string    `json:"email" gorm:"uniqueIndex"`
	EmailVerified bool      `json:"email_verified"`
	DisplayName   string    `json:"display_name"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
