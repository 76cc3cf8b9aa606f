package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/store"
)

// SeededUser defines a user to be created at startup.
type SeededUser struct {
	Email       string
	Password    string
	DisplayName string
}

// Bootstrap creates seeded users idempotently.
type Bootstrap struct {
	users store.UserStore
	auth  *UserAuth
	log   *slog.Logger
}

// NewBootstrap creates a new bootstrap handler.
func NewBootstrap(users store.UserStore, auth *UserAuth, log *slog.Logger) *Bootstrap {
	return &Bootstrap{
		users: users,
		auth:  auth,
		log:   log,
	}
}

// Run creates any seeded users that do not exist yet.
// Returns the number of users created (0 if all already exist).
func (b *Bootstrap) Run(ctx context.Context, seeded []SeededUser) (int, error) {
	var created int

	for _, s := range seeded {
		if s.Email == "" {
			continue
		}
		n, err := b.ensureUser(ctx, s)
		if err != nil {
			return created, err
		}
		created += n
	}

	return created, nil
}

func (b *Bootstrap) ensureUser(ctx context.Context, s SeededUser) (int, error) {
	_, err := b.users.GetUserByEmail(ctx, s.Email)
	if err == nil {
		b.log.Debug("user already exists", "email", s.Email)
		return 0, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	hash, err := b.auth.HashPassword(s.Password)
	if err != nil {
		return 0, err
	}

	user := &store.User{
		ID:            uuid.NewString(),
		Email:         s.Email,
		EmailVerified: true,
		DisplayName:   s.DisplayName,
		PasswordHash:  hash,
		CreatedAt:     time.Now(),
	}

	if err := b.users.CreateUser(ctx, user); err != nil {
		return 0, err
	}

	b.log.Info("created user", "email", s.Email)
	return 1, nil
}
