package directory_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/directory"
	"github.com/draftdeck/draftdeck/internal/notify"
	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/store"
	_ "github.com/draftdeck/draftdeck/internal/store/memory"
)

type env struct {
	driver  store.Driver
	service *directory.Service
	sink    *notify.MemorySink
}

func newEnv(t *testing.T) *env {
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
	for _, u := range []string{"user-alice", "user-bob", "user-carol"} {
		if err := driver.CreateUser(ctx, &store.User{ID: u, Email: u + "@example.com", CreatedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	if err := driver.CreateDocument(ctx, &store.Document{ID: "doc-1", OwnerUserID: "user-alice", Title: "lore", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	sink := notify.NewMemorySink()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	service := directory.NewService(driver, access.NewResolver(driver), notify.NewNotifier(sink, logger))
	return &env{driver: driver, service: service, sink: sink}
}

func TestCreateTeamInsertsOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	team, err := e.service.CreateTeam(ctx, "user-alice", "worldbuilders")
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}

	m, err := e.driver.GetMembership(ctx, team.ID, "user-alice")
	if err != nil {
		t.Fatalf("creator membership missing: %v", err)
	}
	if m.Role != string(permission.TeamOwner) {
		t.Errorf("expected owner role, got %q", m.Role)
	}

	owners, _ := e.driver.CountOwners(ctx, team.ID)
	if owners != 1 {
		t.Errorf("expected 1 owner, got %d", owners)
	}
}

func TestAddCollaborator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	grant, err := e.service.AddCollaborator(ctx, "user-alice", "doc-1", "user-bob", permission.Commenter, false)
	if err != nil {
		t.Fatalf("AddCollaborator failed: %v", err)
	}
	if grant.GrantedBy != "user-alice" {
		t.Errorf("expected granted_by user-alice, got %q", grant.GrantedBy)
	}

	// Duplicate is AlreadyMember
	_, err = e.service.AddCollaborator(ctx, "user-alice", "doc-1", "user-bob", permission.Viewer, false)
	if !errors.Is(err, directory.ErrAlreadyMember) {
		t.Errorf("expected ErrAlreadyMember, got %v", err)
	}

	// Non-admin actor is rejected
	_, err = e.service.AddCollaborator(ctx, "user-bob", "doc-1", "user-carol", permission.Viewer, false)
	if !errors.Is(err, access.ErrInsufficientPermission) {
		t.Errorf("expected ErrInsufficientPermission, got %v", err)
	}

	// Unknown user is rejected
	_, err = e.service.AddCollaborator(ctx, "user-alice", "doc-1", "user-ghost", permission.Viewer, false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}

	events := e.sink.Events()
	if len(events) != 1 || events[0].Type != notify.EventCollaboratorAdded {
		t.Errorf("expected one collaborator.added event, got %v", events)
	}
}

func TestCanShareOnlyForEditors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	grant, err := e.service.AddCollaborator(ctx, "user-alice", "doc-1", "user-bob", permission.Viewer, true)
	if err != nil {
		t.Fatal(err)
	}
	if grant.CanShare {
		t.Error("can_share must not stick to a viewer grant")
	}

	grant, err = e.service.AddCollaborator(ctx, "user-alice", "doc-1", "user-carol", permission.Editor, true)
	if err != nil {
		t.Fatal(err)
	}
	if !grant.CanShare {
		t.Error("expected can_share for editor grant")
	}
}

func TestUpdateAndRemoveCollaborator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.service.AddCollaborator(ctx, "user-alice", "doc-1", "user-bob", permission.Viewer, false); err != nil {
		t.Fatal(err)
	}

	if err := e.service.UpdateCollaboratorPermission(ctx, "user-alice", "doc-1", "user-bob", permission.Editor, false); err != nil {
		t.Fatalf("UpdateCollaboratorPermission failed: %v", err)
	}
	grant, _ := e.driver.GetGrant(ctx, "doc-1", "user-bob")
	if grant.Level != string(permission.Editor) {
		t.Errorf("expected editor, got %q", grant.Level)
	}

	if err := e.service.RemoveCollaborator(ctx, "user-alice", "doc-1", "user-bob"); err != nil {
		t.Fatalf("RemoveCollaborator failed: %v", err)
	}
	if _, err := e.driver.GetGrant(ctx, "doc-1", "user-bob"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected grant gone, got %v", err)
	}
}

func TestLastOwnerGuard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	team, err := e.service.CreateTeam(ctx, "user-alice", "solo")
	if err != nil {
		t.Fatal(err)
	}

	// Sole owner cannot be removed, even by themselves.
	err = e.service.RemoveTeamMember(ctx, "user-alice", team.ID, "user-alice")
	if !errors.Is(err, directory.ErrLastOwner) {
		t.Errorf("expected ErrLastOwner on removal, got %v", err)
	}
	if _, err := e.driver.GetMembership(ctx, team.ID, "user-alice"); err != nil {
		t.Errorf("membership should be unchanged: %v", err)
	}

	// Sole owner cannot be demoted.
	err = e.service.UpdateTeamRole(ctx, "user-alice", team.ID, "user-alice", permission.TeamEditor)
	if !errors.Is(err, directory.ErrLastOwner) {
		t.Errorf("expected ErrLastOwner on demotion, got %v", err)
	}

	// With a second owner, demotion goes through.
	if _, err := e.service.AddTeamMember(ctx, "user-alice", team.ID, "user-bob", permission.TeamOwner); err != nil {
		t.Fatal(err)
	}
	if err := e.service.UpdateTeamRole(ctx, "user-alice", team.ID, "user-alice", permission.TeamEditor); err != nil {
		t.Fatalf("demotion with second owner failed: %v", err)
	}
	owners, _ := e.driver.CountOwners(ctx, team.ID)
	if owners != 1 {
		t.Errorf("expected 1 owner after demotion, got %d", owners)
	}
}

func TestTeamMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	team, err := e.service.CreateTeam(ctx, "user-alice", "core")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.service.AddTeamMember(ctx, "user-alice", team.ID, "user-bob", permission.TeamEditor); err != nil {
		t.Fatalf("AddTeamMember failed: %v", err)
	}

	// Duplicate add
	_, err = e.service.AddTeamMember(ctx, "user-alice", team.ID, "user-bob", permission.TeamViewer)
	if !errors.Is(err, directory.ErrAlreadyMember) {
		t.Errorf("expected ErrAlreadyMember, got %v", err)
	}

	// Editors cannot add members
	_, err = e.service.AddTeamMember(ctx, "user-bob", team.ID, "user-carol", permission.TeamViewer)
	if !errors.Is(err, access.ErrInsufficientPermission) {
		t.Errorf("expected ErrInsufficientPermission, got %v", err)
	}

	// Members may remove themselves
	if err := e.service.RemoveTeamMember(ctx, "user-bob", team.ID, "user-bob"); err != nil {
		t.Fatalf("self-removal failed: %v", err)
	}

	members, err := e.service.ListTeamMembers(ctx, "user-alice", team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Errorf("expected 1 member left, got %d", len(members))
	}
}

func TestApplyInvitationUpsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	inv := &store.Invitation{
		ID: "inv-1", Token: "tok-1",
		InviterUserID: "user-alice", InviteeEmail: "bob@example.com",
		DocumentID: "doc-1", Level: string(permission.Editor),
		Status: store.InvitationPending, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	// Fresh grant
	err := e.driver.Transact(ctx, func(tx store.Store) error {
		return directory.ApplyInvitation(ctx, tx, inv, "user-bob")
	})
	if err != nil {
		t.Fatalf("ApplyInvitation failed: %v", err)
	}
	grant, err := e.driver.GetGrant(ctx, "doc-1", "user-bob")
	if err != nil {
		t.Fatal(err)
	}
	if grant.Level != string(permission.Editor) {
		t.Errorf("expected editor, got %q", grant.Level)
	}

	// A weaker invitation never downgrades the existing grant
	weaker := *inv
	weaker.Level = string(permission.Viewer)
	err = e.driver.Transact(ctx, func(tx store.Store) error {
		return directory.ApplyInvitation(ctx, tx, &weaker, "user-bob")
	})
	if err != nil {
		t.Fatalf("ApplyInvitation (weaker) failed: %v", err)
	}
	grant, _ = e.driver.GetGrant(ctx, "doc-1", "user-bob")
	if grant.Level != string(permission.Editor) {
		t.Errorf("grant was downgraded to %q", grant.Level)
	}
}

func TestApplyInvitationGameWithoutTeam(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := e.driver.CreateGame(ctx, &store.Game{ID: "game-solo", OwnerUserID: "user-alice", Name: "solo", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	inv := &store.Invitation{
		ID: "inv-g", Token: "tok-g",
		InviterUserID: "user-alice", InviteeEmail: "bob@example.com",
		GameID: "game-solo", Level: string(permission.Editor),
		Status: store.InvitationPending, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	err := e.driver.Transact(ctx, func(tx store.Store) error {
		return directory.ApplyInvitation(ctx, tx, inv, "user-bob")
	})
	if err == nil {
		t.Fatal("expected error for game without owning team")
	}
}
