package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
	_ "github.com/draftdeck/draftdeck/internal/store/memory"
)

// fixture builds the containment chain used across the tests:
// document doc-1 belongs to game game-1, which belongs to team team-1,
// all owned by user-owner.
func fixture(t *testing.T) store.Driver {
	t.Helper()
	ctx := context.Background()

	driver, err := store.New(&store.DriverConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { driver.Close() })

	now := time.Now()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(driver.CreateTeam(ctx, &store.Team{ID: "team-1", OwnerUserID: "user-owner", Name: "core", CreatedAt: now}))
	must(driver.CreateGame(ctx, &store.Game{ID: "game-1", OwnerUserID: "user-owner", TeamID: "team-1", Name: "skyforge", CreatedAt: now}))
	must(driver.CreateDocument(ctx, &store.Document{ID: "doc-1", OwnerUserID: "user-owner", GameID: "game-1", Title: "combat", CreatedAt: now}))
	must(driver.CreateDocument(ctx, &store.Document{ID: "doc-solo", OwnerUserID: "user-owner", Title: "notes", CreatedAt: now}))
	return driver
}

func docTarget(id string) resource.Target {
	return resource.Target{Kind: resource.KindDocument, ID: id}
}

func TestOwnerIsOwner(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)
	ctx := context.Background()

	eff, ok, err := resolver.EffectivePermission(ctx, "user-owner", docTarget("doc-1"))
	if err != nil {
		t.Fatalf("EffectivePermission failed: %v", err)
	}
	if !ok {
		t.Fatal("expected access for owner")
	}
	if eff.Level != permission.Owner {
		t.Errorf("expected owner, got %q", eff.Level)
	}
	if !eff.CanReshare {
		t.Error("owner should be able to reshare")
	}
}

func TestNoSourceMeansNone(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)

	for _, target := range []resource.Target{
		docTarget("doc-1"),
		{Kind: resource.KindGame, ID: "game-1"},
		{Kind: resource.KindTeam, ID: "team-1"},
	} {
		_, ok, err := resolver.EffectivePermission(context.Background(), "user-stranger", target)
		if err != nil {
			t.Fatalf("EffectivePermission(%s) failed: %v", target.Kind, err)
		}
		if ok {
			t.Errorf("expected no access to %s for stranger", target.Kind)
		}
	}
}

func TestMissingResource(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)

	_, _, err := resolver.EffectivePermission(context.Background(), "user-owner", docTarget("doc-missing"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectGrant(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)
	ctx := context.Background()

	now := time.Now()
	grant := &store.CollaboratorGrant{
		DocumentID: "doc-solo", UserID: "user-bob",
		Level: string(permission.Commenter), GrantedBy: "user-owner",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := driver.CreateGrant(ctx, grant); err != nil {
		t.Fatal(err)
	}

	eff, ok, err := resolver.EffectivePermission(ctx, "user-bob", docTarget("doc-solo"))
	if err != nil || !ok {
		t.Fatalf("expected access, got ok=%v err=%v", ok, err)
	}
	if eff.Level != permission.Commenter {
		t.Errorf("expected commenter, got %q", eff.Level)
	}
	if eff.CanReshare {
		t.Error("commenter should not reshare")
	}
}

func TestEditorGrantWithShareFlag(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)
	ctx := context.Background()

	now := time.Now()
	if err := driver.CreateGrant(ctx, &store.CollaboratorGrant{
		DocumentID: "doc-solo", UserID: "user-carol",
		Level: string(permission.Editor), CanShare: true, GrantedBy: "user-owner",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	eff, ok, err := resolver.EffectivePermission(ctx, "user-carol", docTarget("doc-solo"))
	if err != nil || !ok {
		t.Fatalf("expected access, got ok=%v err=%v", ok, err)
	}
	if eff.Level != permission.Editor {
		t.Errorf("expected editor, got %q", eff.Level)
	}
	if !eff.CanReshare {
		t.Error("editor with share flag should reshare")
	}
}

// Document reached only through team membership on the owning team.
func TestContainmentWalk(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)
	ctx := context.Background()

	now := time.Now()
	if err := driver.CreateMembership(ctx, &store.TeamMembership{
		TeamID: "team-1", UserID: "user-x", Role: string(permission.TeamAdmin),
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	eff, ok, err := resolver.EffectivePermission(ctx, "user-x", docTarget("doc-1"))
	if err != nil || !ok {
		t.Fatalf("expected access via containment, got ok=%v err=%v", ok, err)
	}
	if eff.Level != permission.Admin {
		t.Errorf("expected admin via team, got %q", eff.Level)
	}
	if !eff.CanReshare {
		t.Error("team admin should reshare")
	}

	// The same membership reaches the game and the team directly.
	eff, ok, _ = resolver.EffectivePermission(ctx, "user-x", resource.Target{Kind: resource.KindGame, ID: "game-1"})
	if !ok || eff.Level != permission.Admin {
		t.Errorf("expected admin on game, got ok=%v level=%q", ok, eff.Level)
	}
	eff, ok, _ = resolver.EffectivePermission(ctx, "user-x", resource.Target{Kind: resource.KindTeam, ID: "team-1"})
	if !ok || eff.Level != permission.Admin {
		t.Errorf("expected admin on team, got ok=%v level=%q", ok, eff.Level)
	}

	// A standalone document is not reachable through the team.
	_, ok, _ = resolver.EffectivePermission(ctx, "user-x", docTarget("doc-solo"))
	if ok {
		t.Error("standalone document should not be reachable via team")
	}
}

// Adding a second, stronger source raises the result; removing it lowers
// it back. The result is always the max over sources.
func TestMaxOverSourcesAndMonotonicity(t *testing.T) {
	driver := fixture(t)
	resolver := access.NewResolver(driver)
	ctx := context.Background()
	now := time.Now()

	// Viewer membership on the team gives viewer on the document.
	if err := driver.CreateMembership(ctx, &store.TeamMembership{
		TeamID: "team-1", UserID: "user-y", Role: string(permission.TeamViewer),
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	eff, ok, _ := resolver.EffectivePermission(ctx, "user-y", docTarget("doc-1"))
	if !ok || eff.Level != permission.Viewer {
		t.Fatalf("expected viewer via team, got ok=%v level=%q", ok, eff.Level)
	}

	// A direct editor grant dominates.
	if err := driver.CreateGrant(ctx, &store.CollaboratorGrant{
		DocumentID: "doc-1", UserID: "user-y",
		Level: string(permission.Editor), GrantedBy: "user-owner",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	eff, ok, _ = resolver.EffectivePermission(ctx, "user-y", docTarget("doc-1"))
	if !ok || eff.Level != permission.Editor {
		t.Fatalf("expected editor after grant, got ok=%v level=%q", ok, eff.Level)
	}

	// Removing the grant falls back to the weaker source, never below.
	if err := driver.DeleteGrant(ctx, "doc-1", "user-y"); err != nil {
		t.Fatal(err)
	}
	eff, ok, _ = resolver.EffectivePermission(ctx, "user-y", docTarget("doc-1"))
	if !ok || eff.Level != permission.Viewer {
		t.Fatalf("expected viewer after grant removal, got ok=%v level=%q", ok, eff.Level)
	}
}
