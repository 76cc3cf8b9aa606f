package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/draftdeck/draftdeck/internal/cache/memory"
	"github.com/draftdeck/draftdeck/internal/ratelimit"
)

func newLimiter(t *testing.T, perWindow int64) *ratelimit.Limiter {
	t.Helper()
	c := memory.New(time.Minute, 0)
	t.Cleanup(func() { c.Close() })

	return ratelimit.New(c, &ratelimit.Config{
		RequestsPerWindow: perWindow,
		Window:            time.Minute,
		KeyPrefix:         "test:",
	})
}

func TestLimiterAllow(t *testing.T) {
	limiter := newLimiter(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "client1")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if want := int64(4 - i); result.Remaining != want {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, want, result.Remaining)
		}
	}

	result, err := limiter.Allow(ctx, "client1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if result.Allowed {
		t.Error("6th request should be denied")
	}
	if result.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", result.Remaining)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter := newLimiter(t, 2)
	ctx := context.Background()

	limiter.Allow(ctx, "client1")
	limiter.Allow(ctx, "client1")
	result, _ := limiter.Allow(ctx, "client1")
	if result.Allowed {
		t.Error("client1 should be rate limited")
	}

	result, _ = limiter.Allow(ctx, "client2")
	if !result.Allowed {
		t.Error("client2 should be allowed")
	}
}

func TestLimiterReset(t *testing.T) {
	limiter := newLimiter(t, 2)
	ctx := context.Background()

	limiter.Allow(ctx, "client1")
	limiter.Allow(ctx, "client1")

	if err := limiter.Reset(ctx, "client1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	result, _ := limiter.Allow(ctx, "client1")
	if !result.Allowed {
		t.Error("should be allowed after reset")
	}
}
