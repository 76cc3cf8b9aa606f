package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/draftdeck/draftdeck/internal/store"
)

// InvitationStore implementation

func (q *queries) CreateInvitation(ctx context.Context, inv *store.Invitation) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO invitations
			(id, token, inviter_user_id, invitee_email, document_id, team_id, game_id,
			 level, can_reshare, message, status, created_at, expires_at, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		inv.ID, inv.Token, inv.InviterUserID, strings.ToLower(inv.InviteeEmail),
		inv.DocumentID, inv.TeamID, inv.GameID,
		inv.Level, inv.CanReshare, inv.Message, inv.Status, inv.CreatedAt, inv.ExpiresAt, inv.RespondedAt)
	return translate(err)
}

const invitationCols = `id, token, inviter_user_id, invitee_email, document_id, team_id, game_id,
	level, can_reshare, message, status, created_at, expires_at, responded_at`

func scanInvitation(row interface{ Scan(...any) error }) (*store.Invitation, error) {
	var inv store.Invitation
	err := row.Scan(&inv.ID, &inv.Token, &inv.InviterUserID, &inv.InviteeEmail,
		&inv.DocumentID, &inv.TeamID, &inv.GameID,
		&inv.Level, &inv.CanReshare, &inv.Message, &inv.Status, &inv.CreatedAt, &inv.ExpiresAt, &inv.RespondedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (q *queries) GetInvitation(ctx context.Context, id string) (*store.Invitation, error) {
	return scanInvitation(q.q.QueryRowContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE id = $1`, id))
}

func (q *queries) GetInvitationByToken(ctx context.Context, token string) (*store.Invitation, error) {
	return scanInvitation(q.q.QueryRowContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE token = $1`, token))
}

func (q *queries) UpdateInvitationStatus(ctx context.Context, id string, from, to store.InvitationStatus, respondedAt *time.Time) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE invitations SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4`,
		to, respondedAt, id, from)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		err := q.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return translate(err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrStale
	}
	return nil
}

func (q *queries) listInvitations(ctx context.Context, where string, arg any) ([]*store.Invitation, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE `+where+` ORDER BY created_at DESC, id`, arg)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var invs []*store.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (q *queries) ListInvitationsByEmail(ctx context.Context, email string) ([]*store.Invitation, error) {
	return q.listInvitations(ctx, "invitee_email = $1", strings.ToLower(email))
}

func (q *queries) ListInvitationsByInviter(ctx context.Context, inviterUserID string) ([]*store.Invitation, error) {
	return q.listInvitations(ctx, "inviter_user_id = $1", inviterUserID)
}

// GrantStore implementation

func (q *queries) CreateGrant(ctx context.Context, g *store.CollaboratorGrant) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO collaborator_grants (document_id, user_id, level, can_share, granted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.DocumentID, g.UserID, g.Level, g.CanShare, g.GrantedBy, g.CreatedAt, g.UpdatedAt)
	return translate(err)
}

func (q *queries) GetGrant(ctx context.Context, documentID, userID string) (*store.CollaboratorGrant, error) {
	var g store.CollaboratorGrant
	err := q.q.QueryRowContext(ctx, `
		SELECT document_id, user_id, level, can_share, granted_by, created_at, updated_at
		FROM collaborator_grants WHERE document_id = $1 AND user_id = $2`,
		documentID, userID).
		Scan(&g.DocumentID, &g.UserID, &g.Level, &g.CanShare, &g.GrantedBy, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (q *queries) UpdateGrant(ctx context.Context, g *store.CollaboratorGrant) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE collaborator_grants SET level = $1, can_share = $2, updated_at = $3
		WHERE document_id = $4 AND user_id = $5`,
		g.Level, g.CanShare, g.UpdatedAt, g.DocumentID, g.UserID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

func (q *queries) DeleteGrant(ctx context.Context, documentID, userID string) error {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM collaborator_grants WHERE document_id = $1 AND user_id = $2`,
		documentID, userID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

func (q *queries) ListGrantsByDocument(ctx context.Context, documentID string) ([]*store.CollaboratorGrant, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT document_id, user_id, level, can_share, granted_by, created_at, updated_at
		FROM collaborator_grants WHERE document_id = $1 ORDER BY user_id`, documentID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var grants []*store.CollaboratorGrant
	for rows.Next() {
		var g store.CollaboratorGrant
		if err := rows.Scan(&g.DocumentID, &g.UserID, &g.Level, &g.CanShare, &g.GrantedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

// MembershipStore implementation

func (q *queries) CreateMembership(ctx context.Context, m *store.TeamMembership) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO team_memberships (team_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.TeamID, m.UserID, m.Role, m.CreatedAt, m.UpdatedAt)
	return translate(err)
}

func (q *queries) GetMembership(ctx context.Context, teamID, userID string) (*store.TeamMembership, error) {
	var m store.TeamMembership
	err := q.q.QueryRowContext(ctx, `
		SELECT team_id, user_id, role, created_at, updated_at
		FROM team_memberships WHERE team_id = $1 AND user_id = $2`,
		teamID, userID).
		Scan(&m.TeamID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (q *queries) UpdateMembership(ctx context.Context, m *store.TeamMembership) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE team_memberships SET role = $1, updated_at = $2
		WHERE team_id = $3 AND user_id = $4`,
		m.Role, m.UpdatedAt, m.TeamID, m.UserID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

func (q *queries) DeleteMembership(ctx context.Context, teamID, userID string) error {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM team_memberships WHERE team_id = $1 AND user_id = $2`,
		teamID, userID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

func (q *queries) listMemberships(ctx context.Context, where, order string, arg any) ([]*store.TeamMembership, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT team_id, user_id, role, created_at, updated_at
		FROM team_memberships WHERE `+where+` ORDER BY `+order, arg)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var ms []*store.TeamMembership
	for rows.Next() {
		var m store.TeamMembership
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		ms = append(ms, &m)
	}
	return ms, rows.Err()
}

func (q *queries) ListMembershipsByTeam(ctx context.Context, teamID string) ([]*store.TeamMembership, error) {
	return q.listMemberships(ctx, "team_id = $1", "user_id", teamID)
}

func (q *queries) ListMembershipsByUser(ctx context.Context, userID string) ([]*store.TeamMembership, error) {
	return q.listMemberships(ctx, "user_id = $1", "team_id", userID)
}

func (q *queries) CountOwners(ctx context.Context, teamID string) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_memberships WHERE team_id = $1 AND role = $2`,
		teamID, store.RoleOwner).Scan(&n)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// ResourceStore implementation

func (q *queries) CreateDocument(ctx context.Context, doc *store.Document) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO documents (id, owner_user_id, game_id, title, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.OwnerUserID, doc.GameID, doc.Title, doc.CreatedAt)
	return translate(err)
}

func (q *queries) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	var doc store.Document
	err := q.q.QueryRowContext(ctx,
		`SELECT id, owner_user_id, game_id, title, created_at FROM documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.OwnerUserID, &doc.GameID, &doc.Title, &doc.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (q *queries) CreateGame(ctx context.Context, game *store.Game) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO games (id, owner_user_id, team_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		game.ID, game.OwnerUserID, game.TeamID, game.Name, game.CreatedAt)
	return translate(err)
}

func (q *queries) GetGame(ctx context.Context, id string) (*store.Game, error) {
	var game store.Game
	err := q.q.QueryRowContext(ctx,
		`SELECT id, owner_user_id, team_id, name, created_at FROM games WHERE id = $1`, id).
		Scan(&game.ID, &game.OwnerUserID, &game.TeamID, &game.Name, &game.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (q *queries) CreateTeam(ctx context.Context, team *store.Team) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO teams (id, owner_user_id, name, created_at)
		VALUES ($1, $2, $3, $4)`,
		team.ID, team.OwnerUserID, team.Name, team.CreatedAt)
	return translate(err)
}

func (q *queries) GetTeam(ctx context.Context, id string) (*store.Team, error) {
	var team store.Team
	err := q.q.QueryRowContext(ctx,
		`SELECT id, owner_user_id, name, created_at FROM teams WHERE id = $1`, id).
		Scan(&team.ID, &team.OwnerUserID, &team.Name, &team.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

// UserStore implementation

func (q *queries) CreateUser(ctx context.Context, user *store.User) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO users (id, email, email_verified, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, strings.ToLower(user.Email), user.EmailVerified, user.DisplayName, user.PasswordHash, user.CreatedAt)
	return translate(err)
}

const userCols = `id, email, email_verified, display_name, password_hash, created_at`

func (q *queries) GetUser(ctx context.Context, id string) (*store.User, error) {
	var u store.User
	err := q.q.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.EmailVerified, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var u store.User
	err := q.q.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, strings.ToLower(email)).
		Scan(&u.ID, &u.Email, &u.EmailVerified, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (q *queries) UpdateUser(ctx context.Context, user *store.User) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET email = $1, email_verified = $2, display_name = $3, password_hash = $4
		WHERE id = $5`,
		strings.ToLower(user.Email), user.EmailVerified, user.DisplayName, user.PasswordHash, user.ID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

func requireRow(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
