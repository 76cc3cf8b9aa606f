package permission

import "fmt"

// TeamRole is a role within a team. Teams use four roles; there is no team
// equivalent of Commenter, which collapses to TeamViewer when a team-targeted
// grant carries the Commenter level.
type TeamRole string

const (
	TeamOwner  TeamRole = "owner"
	TeamAdmin  TeamRole = "admin"
	TeamEditor TeamRole = "editor"
	TeamViewer TeamRole = "viewer"
)

// ParseTeamRole validates a team role string.
func ParseTeamRole(s string) (TeamRole, error) {
	r := TeamRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: team role %q", ErrInvalidLevel, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four defined team roles.
func (r TeamRole) Valid() bool {
	switch r {
	case TeamOwner, TeamAdmin, TeamEditor, TeamViewer:
		return true
	}
	return false
}

// Level translates a team role into the shared level ordering.
func (r TeamRole) Level() Level {
	switch r {
	case TeamOwner:
		return Owner
	case TeamAdmin:
		return Admin
	case TeamEditor:
		return Editor
	default:
		return Viewer
	}
}

// RoleForLevel maps a level onto the nearest team role. Commenter collapses
// to TeamViewer since teams have no commenter role.
func RoleForLevel(l Level) TeamRole {
	switch l {
	case Owner:
		return TeamOwner
	case Admin:
		return TeamAdmin
	case Editor:
		return TeamEditor
	default:
		return TeamViewer
	}
}
