// Package postgres implements a PostgreSQL persistence driver on
// database/sql with the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mitchellh/mapstructure"

	"github.com/draftdeck/draftdeck/internal/store"
)

func init() {
	store.Register("postgres", NewDriver)
}

// Options are the postgres-specific driver settings.
type Options struct {
	// DSN is the connection string. Required.
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int `mapstructure:"max_open_conns"`
	MaxIdleConns    int `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime_seconds"`
}

// Driver implements the store.Driver interface against PostgreSQL.
type Driver struct {
	queries
	opts Options
	db   *sql.DB
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// so the same query methods serve both plain and transactional calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// NewDriver creates a new postgres driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	var opts Options
	if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid postgres options: %w", err)
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("dsn is required for postgres driver")
	}
	return &Driver{opts: opts}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "postgres"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		team_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		game_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invitations (
		id TEXT PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		inviter_user_id TEXT NOT NULL,
		invitee_email TEXT NOT NULL,
		document_id TEXT NOT NULL DEFAULT '',
		team_id TEXT NOT NULL DEFAULT '',
		game_id TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL,
		can_reshare BOOLEAN NOT NULL DEFAULT FALSE,
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		responded_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations (invitee_email)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_inviter ON invitations (inviter_user_id)`,
	`CREATE TABLE IF NOT EXISTS collaborator_grants (
		document_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		level TEXT NOT NULL,
		can_share BOOLEAN NOT NULL DEFAULT FALSE,
		granted_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (document_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS team_memberships (
		team_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (team_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_user ON team_memberships (user_id)`,
}

// Init opens the connection pool and applies the schema.
func (d *Driver) Init(ctx context.Context) error {
	db, err := sql.Open("postgres", d.opts.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if d.opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.opts.MaxOpenConns)
	}
	if d.opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(d.opts.MaxIdleConns)
	}
	if d.opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(d.opts.ConnMaxLifetime) * time.Second)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	d.db = db
	d.queries = queries{q: db}
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Transact runs fn inside a database transaction.
func (d *Driver) Transact(ctx context.Context, fn func(store.Store) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&queries{q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return store.ErrAlreadyExists
	}
	return err
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ store.Store = (*queries)(nil)
