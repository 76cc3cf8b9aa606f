package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/draftdeck/draftdeck/internal/cache"
	"github.com/draftdeck/draftdeck/internal/cache/memory"
)

func TestGetSetDelete(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("got %q", got)
	}

	// The returned slice is a copy.
	got[0] = 'x'
	again, _ := c.Get(ctx, "k")
	if string(again) != "v" {
		t.Errorf("stored value was mutated: %q", again)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestExpiry(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestCounter(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	n, resetAt, err := c.Increment(ctx, "ctr", 1, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1, got %d", n)
	}
	if resetAt.Before(time.Now()) {
		t.Error("reset time must be in the future")
	}

	// Incrementing within the window keeps the original reset time.
	n, again, err := c.Increment(ctx, "ctr", 2, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
	if !again.Equal(resetAt) {
		t.Errorf("window reset moved: %v vs %v", again, resetAt)
	}

	count, err := c.GetCount(ctx, "ctr")
	if err != nil || count != 3 {
		t.Errorf("GetCount = %d, %v", count, err)
	}

	if err := c.Reset(ctx, "ctr"); err != nil {
		t.Fatal(err)
	}
	if count, _ := c.GetCount(ctx, "ctr"); count != 0 {
		t.Errorf("expected 0 after reset, got %d", count)
	}
}

func TestCounterWindowRestarts(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if _, _, err := c.Increment(ctx, "ctr", 5, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	n, _, err := c.Increment(ctx, "ctr", 1, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expired counter must restart at delta, got %d", n)
	}
}
