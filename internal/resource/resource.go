// Package resource defines the tagged union used to address invitation and
// access-check targets. A target is exactly one of a document, a team, or a
// game; the all-fields-nullable shape is rejected at the boundary.
package resource

import (
	"errors"
	"fmt"
)

var ErrInvalidTarget = errors.New("invalid target")

// Kind identifies the type of a shareable resource.
type Kind string

const (
	KindDocument Kind = "document"
	KindTeam     Kind = "team"
	KindGame     Kind = "game"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, s)
	}
	return k, nil
}

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDocument, KindTeam, KindGame:
		return true
	}
	return false
}

// Target addresses a single resource.
type Target struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Validate checks that the target has a known kind and a non-empty id.
func (t Target) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, string(t.Kind))
	}
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTarget)
	}
	return nil
}

// FromIDs builds a Target from the three nullable id fields of a wire
// payload. Exactly one id must be set.
func FromIDs(documentID, teamID, gameID string) (Target, error) {
	var targets []Target
	if documentID != "" {
		targets = append(targets, Target{Kind: KindDocument, ID: documentID})
	}
	if teamID != "" {
		targets = append(targets, Target{Kind: KindTeam, ID: teamID})
	}
	if gameID != "" {
		targets = append(targets, Target{Kind: KindGame, ID: gameID})
	}

	switch len(targets) {
	case 0:
		return Target{}, fmt.Errorf("%w: no target id set", ErrInvalidTarget)
	case 1:
		return targets[0], nil
	default:
		return Target{}, fmt.Errorf("%w: %d target ids set, want exactly one", ErrInvalidTarget, len(targets))
	}
}
