// Package memory implements an in-memory persistence driver. It is the
// default for tests and single-process development setups; nothing
// survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/draftdeck/draftdeck/internal/store"
)

func init() {
	store.Register("memory", NewDriver)
}

// Driver implements store.Driver with plain maps behind a single mutex.
type Driver struct {
	mu     sync.RWMutex
	closed bool
	state  *state
}

// state holds every table. It is shared between the driver and the
// transactional views handed out by Transact; all access goes through
// the driver's mutex.
type state struct {
	invitations map[string]store.Invitation            // by id
	byToken     map[string]string                      // token -> id
	grants      map[grantKey]store.CollaboratorGrant   // by (doc, user)
	memberships map[memberKey]store.TeamMembership     // by (team, user)
	documents   map[string]store.Document
	games       map[string]store.Game
	teams       map[string]store.Team
	users       map[string]store.User
	byEmail     map[string]string // lower(email) -> user id
}

type grantKey struct{ documentID, userID string }
type memberKey struct{ teamID, userID string }

func newState() *state {
	return &state{
		invitations: make(map[string]store.Invitation),
		byToken:     make(map[string]string),
		grants:      make(map[grantKey]store.CollaboratorGrant),
		memberships: make(map[memberKey]store.TeamMembership),
		documents:   make(map[string]store.Document),
		games:       make(map[string]store.Game),
		teams:       make(map[string]store.Team),
		users:       make(map[string]store.User),
		byEmail:     make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.invitations {
		c.invitations[k] = v
	}
	for k, v := range s.byToken {
		c.byToken[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	for k, v := range s.games {
		c.games[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.byEmail {
		c.byEmail[k] = v
	}
	return c
}

// NewDriver creates a new in-memory driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	return &Driver{state: newState()}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "memory"
}

// Init is a no-op for the memory driver.
func (d *Driver) Init(ctx context.Context) error {
	return nil
}

// Close marks the driver closed; subsequent operations fail with ErrClosed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Transact runs fn against a snapshot of the state under the write lock.
// If fn succeeds the snapshot replaces the live state; if it fails the
// snapshot is discarded.
func (d *Driver) Transact(ctx context.Context, fn func(store.Store) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return store.ErrClosed
	}

	snap := d.state.clone()
	if err := fn(&txView{state: snap}); err != nil {
		return err
	}
	d.state = snap
	return nil
}

// txView exposes a state as a store.Store without locking; Transact
// already holds the driver lock for the duration of the callback.
type txView struct {
	state *state
}

// read/write helpers shared by the driver and txView

func (s *state) createInvitation(inv *store.Invitation) error {
	if _, ok := s.invitations[inv.ID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := s.byToken[inv.Token]; ok {
		return store.ErrAlreadyExists
	}
	s.invitations[inv.ID] = *inv
	s.byToken[inv.Token] = inv.ID
	return nil
}

func (s *state) getInvitation(id string) (*store.Invitation, error) {
	inv, ok := s.invitations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := inv
	return &out, nil
}

func (s *state) getInvitationByToken(token string) (*store.Invitation, error) {
	id, ok := s.byToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.getInvitation(id)
}

func (s *state) updateInvitationStatus(id string, from, to store.InvitationStatus, respondedAt *time.Time) error {
	inv, ok := s.invitations[id]
	if !ok {
		return store.ErrNotFound
	}
	if inv.Status != from {
		return store.ErrStale
	}
	inv.Status = to
	inv.RespondedAt = respondedAt
	s.invitations[id] = inv
	return nil
}

func (s *state) listInvitationsByEmail(email string) []*store.Invitation {
	email = strings.ToLower(email)
	var out []*store.Invitation
	for _, inv := range s.invitations {
		if strings.ToLower(inv.InviteeEmail) == email {
			v := inv
			out = append(out, &v)
		}
	}
	sortInvitations(out)
	return out
}

func (s *state) listInvitationsByInviter(inviterUserID string) []*store.Invitation {
	var out []*store.Invitation
	for _, inv := range s.invitations {
		if inv.InviterUserID == inviterUserID {
			v := inv
			out = append(out, &v)
		}
	}
	sortInvitations(out)
	return out
}

// Newest first, id as a tiebreaker so order is stable.
func sortInvitations(invs []*store.Invitation) {
	sort.Slice(invs, func(i, j int) bool {
		if !invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].CreatedAt.After(invs[j].CreatedAt)
		}
		return invs[i].ID < invs[j].ID
	})
}

func (s *state) createGrant(g *store.CollaboratorGrant) error {
	k := grantKey{g.DocumentID, g.UserID}
	if _, ok := s.grants[k]; ok {
		return store.ErrAlreadyExists
	}
	s.grants[k] = *g
	return nil
}

func (s *state) getGrant(documentID, userID string) (*store.CollaboratorGrant, error) {
	g, ok := s.grants[grantKey{documentID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := g
	return &out, nil
}

func (s *state) updateGrant(g *store.CollaboratorGrant) error {
	k := grantKey{g.DocumentID, g.UserID}
	if _, ok := s.grants[k]; !ok {
		return store.ErrNotFound
	}
	s.grants[k] = *g
	return nil
}

func (s *state) deleteGrant(documentID, userID string) error {
	k := grantKey{documentID, userID}
	if _, ok := s.grants[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.grants, k)
	return nil
}

func (s *state) listGrantsByDocument(documentID string) []*store.CollaboratorGrant {
	var out []*store.CollaboratorGrant
	for k, g := range s.grants {
		if k.documentID == documentID {
			v := g
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *state) createMembership(m *store.TeamMembership) error {
	k := memberKey{m.TeamID, m.UserID}
	if _, ok := s.memberships[k]; ok {
		return store.ErrAlreadyExists
	}
	s.memberships[k] = *m
	return nil
}

func (s *state) getMembership(teamID, userID string) (*store.TeamMembership, error) {
	m, ok := s.memberships[memberKey{teamID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := m
	return &out, nil
}

func (s *state) updateMembership(m *store.TeamMembership) error {
	k := memberKey{m.TeamID, m.UserID}
	if _, ok := s.memberships[k]; !ok {
		return store.ErrNotFound
	}
	s.memberships[k] = *m
	return nil
}

func (s *state) deleteMembership(teamID, userID string) error {
	k := memberKey{teamID, userID}
	if _, ok := s.memberships[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.memberships, k)
	return nil
}

func (s *state) listMembershipsByTeam(teamID string) []*store.TeamMembership {
	var out []*store.TeamMembership
	for k, m := range s.memberships {
		if k.teamID == teamID {
			v := m
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *state) listMembershipsByUser(userID string) []*store.TeamMembership {
	var out []*store.TeamMembership
	for k, m := range s.memberships {
		if k.userID == userID {
			v := m
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}

func (s *state) countOwners(teamID string) int {
	n := 0
	for k, m := range s.memberships {
		if k.teamID == teamID && m.Role == store.RoleOwner {
			n++
		}
	}
	return n
}

func (s *state) createDocument(doc *store.Document) error {
	if _, ok := s.documents[doc.ID]; ok {
		return store.ErrAlreadyExists
	}
	s.documents[doc.ID] = *doc
	return nil
}

func (s *state) getDocument(id string) (*store.Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := doc
	return &out, nil
}

func (s *state) createGame(game *store.Game) error {
	if _, ok := s.games[game.ID]; ok {
		return store.ErrAlreadyExists
	}
	s.games[game.ID] = *game
	return nil
}

func (s *state) getGame(id string) (*store.Game, error) {
	game, ok := s.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := game
	return &out, nil
}

func (s *state) createTeam(team *store.Team) error {
	if _, ok := s.teams[team.ID]; ok {
		return store.ErrAlreadyExists
	}
	s.teams[team.ID] = *team
	return nil
}

func (s *state) getTeam(id string) (*store.Team, error) {
	team, ok := s.teams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := team
	return &out, nil
}

func (s *state) createUser(user *store.User) error {
	email := strings.ToLower(user.Email)
	if _, ok := s.users[user.ID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := s.byEmail[email]; ok {
		return store.ErrAlreadyExists
	}
	s.users[user.ID] = *user
	s.byEmail[email] = user.ID
	return nil
}

func (s *state) getUser(id string) (*store.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := user
	return &out, nil
}

func (s *state) getUserByEmail(email string) (*store.User, error) {
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.getUser(id)
}

func (s *state) updateUser(user *store.User) error {
	old, ok := s.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}
	oldEmail := strings.ToLower(old.Email)
	newEmail := strings.ToLower(user.Email)
	if oldEmail != newEmail {
		if _, taken := s.byEmail[newEmail]; taken {
			return store.ErrAlreadyExists
		}
		delete(s.byEmail, oldEmail)
		s.byEmail[newEmail] = user.ID
	}
	s.users[user.ID] = *user
	return nil
}
