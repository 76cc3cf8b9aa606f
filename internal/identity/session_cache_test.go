package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	cachemem "github.com/draftdeck/draftdeck/internal/cache/memory"
	"github.com/draftdeck/draftdeck/internal/identity"
)

func TestCacheSessionRepo(t *testing.T) {
	backend := cachemem.New(time.Hour, 0)
	t.Cleanup(func() { backend.Close() })
	repo := identity.NewCacheSessionRepo(backend)
	ctx := context.Background()

	session, err := repo.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", got.UserID)
	}

	// Expired sessions are told apart from missing ones.
	stale, _ := repo.Create(ctx, "user-1", -time.Minute)
	if _, err := repo.Get(ctx, stale.Token); !errors.Is(err, identity.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := repo.Get(ctx, "no-such-token"); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	// Logout
	if err := repo.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, session.Token); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}

	// Deleting an unknown token is not an error.
	if err := repo.Delete(ctx, "no-such-token"); err != nil {
		t.Errorf("Delete of unknown token failed: %v", err)
	}
}

func TestCacheSessionRepoDeleteByUser(t *testing.T) {
	backend := cachemem.New(time.Hour, 0)
	t.Cleanup(func() { backend.Close() })
	repo := identity.NewCacheSessionRepo(backend)
	ctx := context.Background()

	s1, _ := repo.Create(ctx, "user-2", time.Hour)
	s2, _ := repo.Create(ctx, "user-2", time.Hour)
	other, _ := repo.Create(ctx, "user-3", time.Hour)

	if err := repo.DeleteByUser(ctx, "user-2"); err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}
	for _, s := range []*identity.Session{s1, s2} {
		if _, err := repo.Get(ctx, s.Token); !errors.Is(err, identity.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	}
	if _, err := repo.Get(ctx, other.Token); err != nil {
		t.Errorf("other user's session must survive: %v", err)
	}
}

func TestCacheSessionRepoSharedBackend(t *testing.T) {
	backend := cachemem.New(time.Hour, 0)
	t.Cleanup(func() { backend.Close() })
	ctx := context.Background()

	// A session written by one node is visible to another over the same
	// backend; nothing lives in the repo itself.
	session, err := identity.NewCacheSessionRepo(backend).Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := identity.NewCacheSessionRepo(backend).Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get on second repo failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", got.UserID)
	}
}
