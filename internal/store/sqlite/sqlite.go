// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/draftdeck/draftdeck/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Options are the sqlite-specific driver settings.
type Options struct {
	// Path is the database file location. Required.
	Path string `mapstructure:"path"`
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	queries
	opts Options
	db   *gorm.DB
}

// queries implements store.Store against a *gorm.DB. The driver embeds
// one bound to the root connection; Transact builds one per transaction.
type queries struct {
	db *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	var opts Options
	if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid sqlite options: %w", err)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("path is required for sqlite driver")
	}
	return &Driver{opts: opts}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init opens the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(d.opts.Path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db
	d.queries = queries{db: db}

	// AutoMigrate creates/updates tables based on model structs
	if err := db.AutoMigrate(
		&store.Invitation{},
		&store.CollaboratorGrant{},
		&store.TeamMembership{},
		&store.Document{},
		&store.Game{},
		&store.Team{},
		&store.User{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transact runs fn inside a database transaction.
func (d *Driver) Transact(ctx context.Context, fn func(store.Store) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&queries{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrAlreadyExists
	default:
		return err
	}
}

// InvitationStore implementation

func (q *queries) CreateInvitation(ctx context.Context, inv *store.Invitation) error {
	inv.InviteeEmail = strings.ToLower(inv.InviteeEmail)
	return translate(q.db.WithContext(ctx).Create(inv).Error)
}

func (q *queries) GetInvitation(ctx context.Context, id string) (*store.Invitation, error) {
	var inv store.Invitation
	if err := q.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (q *queries) GetInvitationByToken(ctx context.Context, token string) (*store.Invitation, error) {
	var inv store.Invitation
	if err := q.db.WithContext(ctx).First(&inv, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (q *queries) UpdateInvitationStatus(ctx context.Context, id string, from, to store.InvitationStatus, respondedAt *time.Time) error {
	result := q.db.WithContext(ctx).
		Model(&store.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "responded_at": respondedAt})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing row from a lost race.
		var n int64
		if err := q.db.WithContext(ctx).Model(&store.Invitation{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrStale
	}
	return nil
}

func (q *queries) ListInvitationsByEmail(ctx context.Context, email string) ([]*store.Invitation, error) {
	var invs []*store.Invitation
	err := q.db.WithContext(ctx).
		Where("invitee_email = ?", strings.ToLower(email)).
		Order("created_at DESC, id").
		Find(&invs).Error
	if err != nil {
		return nil, translate(err)
	}
	return invs, nil
}

func (q *queries) ListInvitationsByInviter(ctx context.Context, inviterUserID string) ([]*store.Invitation, error) {
	var invs []*store.Invitation
	err := q.db.WithContext(ctx).
		Where("inviter_user_id = ?", inviterUserID).
		Order("created_at DESC, id").
		Find(&invs).Error
	if err != nil {
		return nil, translate(err)
	}
	return invs, nil
}

// GrantStore implementation

func (q *queries) CreateGrant(ctx context.Context, grant *store.CollaboratorGrant) error {
	return translate(q.db.WithContext(ctx).Create(grant).Error)
}

func (q *queries) GetGrant(ctx context.Context, documentID, userID string) (*store.CollaboratorGrant, error) {
	var grant store.CollaboratorGrant
	if err := q.db.WithContext(ctx).First(&grant, "document_id = ? AND user_id = ?", documentID, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &grant, nil
}

func (q *queries) UpdateGrant(ctx context.Context, grant *store.CollaboratorGrant) error {
	result := q.db.WithContext(ctx).
		Model(&store.CollaboratorGrant{}).
		Where("document_id = ? AND user_id = ?", grant.DocumentID, grant.UserID).
		Updates(map[string]any{"level": grant.Level, "can_share": grant.CanShare, "updated_at": grant.UpdatedAt})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteGrant(ctx context.Context, documentID, userID string) error {
	result := q.db.WithContext(ctx).Delete(&store.CollaboratorGrant{}, "document_id = ? AND user_id = ?", documentID, userID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) ListGrantsByDocument(ctx context.Context, documentID string) ([]*store.CollaboratorGrant, error) {
	var grants []*store.CollaboratorGrant
	err := q.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("user_id").
		Find(&grants).Error
	if err != nil {
		return nil, translate(err)
	}
	return grants, nil
}

// MembershipStore implementation

func (q *queries) CreateMembership(ctx context.Context, m *store.TeamMembership) error {
	return translate(q.db.WithContext(ctx).Create(m).Error)
}

func (q *queries) GetMembership(ctx context.Context, teamID, userID string) (*store.TeamMembership, error) {
	var m store.TeamMembership
	if err := q.db.WithContext(ctx).First(&m, "team_id = ? AND user_id = ?", teamID, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (q *queries) UpdateMembership(ctx context.Context, m *store.TeamMembership) error {
	result := q.db.WithContext(ctx).
		Model(&store.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", m.TeamID, m.UserID).
		Updates(map[string]any{"role": m.Role, "updated_at": m.UpdatedAt})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteMembership(ctx context.Context, teamID, userID string) error {
	result := q.db.WithContext(ctx).Delete(&store.TeamMembership{}, "team_id = ? AND user_id = ?", teamID, userID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) ListMembershipsByTeam(ctx context.Context, teamID string) ([]*store.TeamMembership, error) {
	var ms []*store.TeamMembership
	err := q.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("user_id").
		Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	return ms, nil
}

func (q *queries) ListMembershipsByUser(ctx context.Context, userID string) ([]*store.TeamMembership, error) {
	var ms []*store.TeamMembership
	err := q.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("team_id").
		Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	return ms, nil
}

func (q *queries) CountOwners(ctx context.Context, teamID string) (int, error) {
	var n int64
	err := q.db.WithContext(ctx).
		Model(&store.TeamMembership{}).
		Where("team_id = ? AND role = ?", teamID, store.RoleOwner).
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

// ResourceStore implementation

func (q *queries) CreateDocument(ctx context.Context, doc *store.Document) error {
	return translate(q.db.WithContext(ctx).Create(doc).Error)
}

func (q *queries) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	var doc store.Document
	if err := q.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (q *queries) CreateGame(ctx context.Context, game *store.Game) error {
	return translate(q.db.WithContext(ctx).Create(game).Error)
}

func (q *queries) GetGame(ctx context.Context, id string) (*store.Game, error) {
	var game store.Game
	if err := q.db.WithContext(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (q *queries) CreateTeam(ctx context.Context, team *store.Team) error {
	return translate(q.db.WithContext(ctx).Create(team).Error)
}

func (q *queries) GetTeam(ctx context.Context, id string) (*store.Team, error) {
	var team store.Team
	if err := q.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

// UserStore implementation

func (q *queries) CreateUser(ctx context.Context, user *store.User) error {
	user.Email = strings.ToLower(user.Email)
	return translate(q.db.WithContext(ctx).Create(user).Error)
}

func (q *queries) GetUser(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	if err := q.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	if err := q.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (q *queries) UpdateUser(ctx context.Context, user *store.User) error {
	user.Email = strings.ToLower(user.Email)
	return translate(q.db.WithContext(ctx).Save(user).Error)
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ store.Store = (*queries)(nil)
