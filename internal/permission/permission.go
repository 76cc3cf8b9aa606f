// Package permission defines the ordered access levels shared by every part
// of the collaboration service.
package permission

import (
	"errors"
	"fmt"
)

var ErrInvalidLevel = errors.New("invalid permission level")

// Level is an access level on a document, game, or team.
// Levels form a total order: Viewer < Commenter < Editor < Admin < Owner.
type Level string

const (
	Viewer    Level = "viewer"
	Commenter Level = "commenter"
	Editor    Level = "editor"
	Admin     Level = "admin"
	Owner     Level = "owner"
)

// levelRank maps levels to their position in the order (higher = more access).
var levelRank = map[Level]int{
	Viewer:    1,
	Commenter: 2,
	Editor:    3,
	Admin:     4,
	Owner:     5,
}

// Parse validates a level string. Invalid levels are rejected here, at
// construction time; Compare and friends assume valid inputs.
func Parse(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// Valid reports whether l is one of the five defined levels.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Compare returns -1, 0, or 1 as a orders before, equal to, or after b.
func Compare(a, b Level) int {
	ra, rb := levelRank[a], levelRank[b]
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// Max returns the highest level in the set. ok is false for an empty set.
func Max(levels ...Level) (Level, bool) {
	var best Level
	var found bool
	for _, l := range levels {
		if !found || Compare(l, best) > 0 {
			best = l
			found = true
		}
	}
	return best, found
}

// Satisfies reports whether the held level meets the required level.
func (l Level) Satisfies(required Level) bool {
	return Compare(l, required) >= 0
}

// Effective is a resolved access decision: the level plus whether the holder
// may send further invitations at the Editor level.
type Effective struct {
	Level      Level `json:"level"`
	CanReshare bool  `json:"can_reshare"`
}
