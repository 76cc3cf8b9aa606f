package identity

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssueVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", "draftdeck", time.Hour)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", "draftdeck", time.Hour)
	other := NewTokenIssuer("different", "draftdeck", time.Hour)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenWrongIssuerRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", "draftdeck", time.Hour)
	other := NewTokenIssuer("secret", "someone-else", time.Hour)

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", "draftdeck", -time.Minute)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", "draftdeck", time.Hour)

	if _, err := issuer.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
