// Package notify delivers collaboration events to interested parties.
// Delivery is best-effort: a failing sink is logged and never blocks or
// fails the operation that produced the event.
package notify

import (
	"context"
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	EventInvitationSent     EventType = "invitation.sent"
	EventInvitationAccepted EventType = "invitation.accepted"
	EventInvitationDeclined EventType = "invitation.declined"
	EventInvitationRevoked  EventType = "invitation.revoked"
	EventCollaboratorAdded  EventType = "collaborator.added"
	EventMemberAdded        EventType = "member.added"
)

// Event is a single collaboration notification.
type Event struct {
	Type       EventType `json:"type"`
	ActorID    string    `json:"actor_id,omitempty"`
	TargetKind string    `json:"target_kind,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	Recipient  string    `json:"recipient,omitempty"` // email of the affected user
	Level      string    `json:"level,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}
