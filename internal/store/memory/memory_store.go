package memory

import (
	"context"
	"time"

	"github.com/draftdeck/draftdeck/internal/store"
)

// Driver methods take the mutex and delegate to the shared state helpers.

func (d *Driver) read(fn func(*state) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return store.ErrClosed
	}
	return fn(d.state)
}

func (d *Driver) write(fn func(*state) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return store.ErrClosed
	}
	return fn(d.state)
}

func (d *Driver) CreateInvitation(ctx context.Context, inv *store.Invitation) error {
	return d.write(func(s *state) error { return s.createInvitation(inv) })
}

func (d *Driver) GetInvitation(ctx context.Context, id string) (inv *store.Invitation, err error) {
	err = d.read(func(s *state) error { inv, err = s.getInvitation(id); return err })
	return inv, err
}

func (d *Driver) GetInvitationByToken(ctx context.Context, token string) (inv *store.Invitation, err error) {
	err = d.read(func(s *state) error { inv, err = s.getInvitationByToken(token); return err })
	return inv, err
}

func (d *Driver) UpdateInvitationStatus(ctx context.Context, id string, from, to store.InvitationStatus, respondedAt *time.Time) error {
	return d.write(func(s *state) error { return s.updateInvitationStatus(id, from, to, respondedAt) })
}

func (d *Driver) ListInvitationsByEmail(ctx context.Context, email string) (out []*store.Invitation, err error) {
	err = d.read(func(s *state) error { out = s.listInvitationsByEmail(email); return nil })
	return out, err
}

func (d *Driver) ListInvitationsByInviter(ctx context.Context, inviterUserID string) (out []*store.Invitation, err error) {
	err = d.read(func(s *state) error { out = s.listInvitationsByInviter(inviterUserID); return nil })
	return out, err
}

func (d *Driver) CreateGrant(ctx context.Context, g *store.CollaboratorGrant) error {
	return d.write(func(s *state) error { return s.createGrant(g) })
}

func (d *Driver) GetGrant(ctx context.Context, documentID, userID string) (g *store.CollaboratorGrant, err error) {
	err = d.read(func(s *state) error { g, err = s.getGrant(documentID, userID); return err })
	return g, err
}

func (d *Driver) UpdateGrant(ctx context.Context, g *store.CollaboratorGrant) error {
	return d.write(func(s *state) error { return s.updateGrant(g) })
}

func (d *Driver) DeleteGrant(ctx context.Context, documentID, userID string) error {
	return d.write(func(s *state) error { return s.deleteGrant(documentID, userID) })
}

func (d *Driver) ListGrantsByDocument(ctx context.Context, documentID string) (out []*store.CollaboratorGrant, err error) {
	err = d.read(func(s *state) error { out = s.listGrantsByDocument(documentID); return nil })
	return out, err
}

func (d *Driver) CreateMembership(ctx context.Context, m *store.TeamMembership) error {
	return d.write(func(s *state) error { return s.createMembership(m) })
}

func (d *Driver) GetMembership(ctx context.Context, teamID, userID string) (m *store.TeamMembership, err error) {
	err = d.read(func(s *state) error { m, err = s.getMembership(teamID, userID); return err })
	return m, err
}

func (d *Driver) UpdateMembership(ctx context.Context, m *store.TeamMembership) error {
	return d.write(func(s *state) error { return s.updateMembership(m) })
}

func (d *Driver) DeleteMembership(ctx context.Context, teamID, userID string) error {
	return d.write(func(s *state) error { return s.deleteMembership(teamID, userID) })
}

func (d *Driver) ListMembershipsByTeam(ctx context.Context, teamID string) (out []*store.TeamMembership, err error) {
	err = d.read(func(s *state) error { out = s.listMembershipsByTeam(teamID); return nil })
	return out, err
}

func (d *Driver) ListMembershipsByUser(ctx context.Context, userID string) (out []*store.TeamMembership, err error) {
	err = d.read(func(s *state) error { out = s.listMembershipsByUser(userID); return nil })
	return out, err
}

func (d *Driver) CountOwners(ctx context.Context, teamID string) (n int, err error) {
	err = d.read(func(s *state) error { n = s.countOwners(teamID); return nil })
	return n, err
}

func (d *Driver) CreateDocument(ctx context.Context, doc *store.Document) error {
	return d.write(func(s *state) error { return s.createDocument(doc) })
}

func (d *Driver) GetDocument(ctx context.Context, id string) (doc *store.Document, err error) {
	err = d.read(func(s *state) error { doc, err = s.getDocument(id); return err })
	return doc, err
}

func (d *Driver) CreateGame(ctx context.Context, game *store.Game) error {
	return d.write(func(s *state) error { return s.createGame(game) })
}

func (d *Driver) GetGame(ctx context.Context, id string) (game *store.Game, err error) {
	err = d.read(func(s *state) error { game, err = s.getGame(id); return err })
	return game, err
}

func (d *Driver) CreateTeam(ctx context.Context, team *store.Team) error {
	return d.write(func(s *state) error { return s.createTeam(team) })
}

func (d *Driver) GetTeam(ctx context.Context, id string) (team *store.Team, err error) {
	err = d.read(func(s *state) error { team, err = s.getTeam(id); return err })
	return team, err
}

func (d *Driver) CreateUser(ctx context.Context, user *store.User) error {
	return d.write(func(s *state) error { return s.createUser(user) })
}

func (d *Driver) GetUser(ctx context.Context, id string) (user *store.User, err error) {
	err = d.read(func(s *state) error { user, err = s.getUser(id); return err })
	return user, err
}

func (d *Driver) GetUserByEmail(ctx context.Context, email string) (user *store.User, err error) {
	err = d.read(func(s *state) error { user, err = s.getUserByEmail(email); return err })
	return user, err
}

func (d *Driver) UpdateUser(ctx context.Context, user *store.User) error {
	return d.write(func(s *state) error { return s.updateUser(user) })
}

// txView methods operate on the snapshot directly; the driver lock is
// already held for the whole transaction.

func (t *txView) CreateInvitation(ctx context.Context, inv *store.Invitation) error {
	return t.state.createInvitation(inv)
}

func (t *txView) GetInvitation(ctx context.Context, id string) (*store.Invitation, error) {
	return t.state.getInvitation(id)
}

func (t *txView) GetInvitationByToken(ctx context.Context, token string) (*store.Invitation, error) {
	return t.state.getInvitationByToken(token)
}

func (t *txView) UpdateInvitationStatus(ctx context.Context, id string, from, to store.InvitationStatus, respondedAt *time.Time) error {
	return t.state.updateInvitationStatus(id, from, to, respondedAt)
}

func (t *txView) ListInvitationsByEmail(ctx context.Context, email string) ([]*store.Invitation, error) {
	return t.state.listInvitationsByEmail(email), nil
}

func (t *txView) ListInvitationsByInviter(ctx context.Context, inviterUserID string) ([]*store.Invitation, error) {
	return t.state.listInvitationsByInviter(inviterUserID), nil
}

func (t *txView) CreateGrant(ctx context.Context, g *store.CollaboratorGrant) error {
	return t.state.createGrant(g)
}

func (t *txView) GetGrant(ctx context.Context, documentID, userID string) (*store.CollaboratorGrant, error) {
	return t.state.getGrant(documentID, userID)
}

func (t *txView) UpdateGrant(ctx context.Context, g *store.CollaboratorGrant) error {
	return t.state.updateGrant(g)
}

func (t *txView) DeleteGrant(ctx context.Context, documentID, userID string) error {
	return t.state.deleteGrant(documentID, userID)
}

func (t *txView) ListGrantsByDocument(ctx context.Context, documentID string) ([]*store.CollaboratorGrant, error) {
	return t.state.listGrantsByDocument(documentID), nil
}

func (t *txView) CreateMembership(ctx context.Context, m *store.TeamMembership) error {
	return t.state.createMembership(m)
}

func (t *txView) GetMembership(ctx context.Context, teamID, userID string) (*store.TeamMembership, error) {
	return t.state.getMembership(teamID, userID)
}

func (t *txView) UpdateMembership(ctx context.Context, m *store.TeamMembership) error {
	return t.state.updateMembership(m)
}

func (t *txView) DeleteMembership(ctx context.Context, teamID, userID string) error {
	return t.state.deleteMembership(teamID, userID)
}

func (t *txView) ListMembershipsByTeam(ctx context.Context, teamID string) ([]*store.TeamMembership, error) {
	return t.state.listMembershipsByTeam(teamID), nil
}

func (t *txView) ListMembershipsByUser(ctx context.Context, userID string) ([]*store.TeamMembership, error) {
	return t.state.listMembershipsByUser(userID), nil
}

func (t *txView) CountOwners(ctx context.Context, teamID string) (int, error) {
	return t.state.countOwners(teamID), nil
}

func (t *txView) CreateDocument(ctx context.Context, doc *store.Document) error {
	return t.state.createDocument(doc)
}

func (t *txView) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	return t.state.getDocument(id)
}

func (t *txView) CreateGame(ctx context.Context, game *store.Game) error {
	return t.state.createGame(game)
}

func (t *txView) GetGame(ctx context.Context, id string) (*store.Game, error) {
	return t.state.getGame(id)
}

func (t *txView) CreateTeam(ctx context.Context, team *store.Team) error {
	return t.state.createTeam(team)
}

func (t *txView) GetTeam(ctx context.Context, id string) (*store.Team, error) {
	return t.state.getTeam(id)
}

func (t *txView) CreateUser(ctx context.Context, user *store.User) error {
	return t.state.createUser(user)
}

func (t *txView) GetUser(ctx context.Context, id string) (*store.User, error) {
	return t.state.getUser(id)
}

func (t *txView) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return t.state.getUserByEmail(email)
}

func (t *txView) UpdateUser(ctx context.Context, user *store.User) error {
	return t.state.updateUser(user)
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ store.Store = (*txView)(nil)
