package identity_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/draftdeck/draftdeck/internal/identity"
)

func TestBootstrap_Run(t *testing.T) {
	users := newUserStore(t)
	auth := identity.NewUserAuth(4)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	bootstrap := identity.NewBootstrap(users, auth, logger)
	ctx := context.Background()

	seeded := []identity.SeededUser{
		{Email: "admin@example.com", Password: "adminpass", DisplayName: "Administrator"},
		{Email: "alice@example.com", Password: "alicepass", DisplayName: "Alice"},
	}

	// First run should create users
	count, err := bootstrap.Run(ctx, seeded)
	if err != nil {
		t.Fatalf("Bootstrap.Run failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 users created, got %d", count)
	}

	// Verify seeded user exists and can authenticate
	user, err := users.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("admin not found: %v", err)
	}
	if !user.EmailVerified {
		t.Error("seeded users should be email-verified")
	}
	if _, err := auth.Authenticate(ctx, users, "admin@example.com", "adminpass"); err != nil {
		t.Errorf("seeded user cannot authenticate: %v", err)
	}

	// Second run should be idempotent
	count, err = bootstrap.Run(ctx, seeded)
	if err != nil {
		t.Fatalf("Bootstrap.Run (second) failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 users created on second run, got %d", count)
	}
}
