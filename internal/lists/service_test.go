package lists_test

import (
	"context"
	"errors"
	"testing"

	"github.com/anved/listkeeper/internal/lists"
	"github.com/anved/listkeeper/internal/store"
	"github.com/anved/listkeeper/internal/store/memory"
)

func TestCreate_ListGetsOwnerMembership(t *testing.T) {
	d := memory.New()
	user := seedUser(t, d, "Alice", "alice@example.com")
	ctx := context.Background()

	svc := lists.NewService(d, nil)
	view, err := svc.Create(ctx, user.ID, "Reading")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if view.UserRole != lists.RoleOwner {
		t.Errorf("creator should be OWNER, got %q", view.UserRole)
	}
	if view.MemberCount != 1 {
		t.Errorf("expected member count 1, got %d", view.MemberCount)
	}

	m, err := d.GetMembership(ctx, view.ID, user.ID)
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if m.Role != store.RoleOwner {
		t.Errorf("expected OWNER membership, got %q", m.Role)
	}
}

func TestFindAllForUser_OnlyMemberLists(t *testing.T) {
	d := memory.New()
	alice := seedUser(t, d, "Alice", "alice@example.com")
	bob := seedUser(t, d, "Bob", "bob@example.com")
	ctx := context.Background()

	svc := lists.NewService(d, nil)
	mine, err := svc.Create(ctx, alice.ID, "Mine")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, bob.ID, "Bob's"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	views, err := svc.FindAllForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FindAllForUser failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 list, got %d", len(views))
	}
	if views[0].ID != mine.ID {
		t.Errorf("expected list %q, got %q", mine.ID, views[0].ID)
	}
}

func TestFindOne_IncludesMembers(t *testing.T) {
	d := memory.New()
	alice := seedUser(t, d, "Alice", "alice@example.com")
	bob := seedUser(t, d, "Bob", "bob@example.com")
	ctx := context.Background()

	svc := lists.NewService(d, nil)
	created, err := svc.Create(ctx, alice.ID, "Reading")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err = d.CreateMembership(ctx, &store.Membership{
		ListID: created.ID,
		UserID: bob.ID,
		Role:   store.RoleEditor,
	})
	if err != nil {
		t.Fatalf("CreateMembership failed: %v", err)
	}

	checker := lists.NewChecker(d)
	access, err := checker.CheckAccess(ctx, alice.ID, created.ID)
	if err != nil {
		t.Fatalf("CheckAccess failed: %v", err)
	}

	detail, err := svc.FindOne(ctx, access)
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if len(detail.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(detail.Members))
	}
	// Roster is oldest membership first: the owner joined at creation.
	if detail.Members[0].UserID != alice.ID {
		t.Errorf("expected owner first in roster, got %q", detail.Members[0].UserID)
	}
	if detail.Members[1].Role != lists.RoleEditor {
		t.Errorf("expected EDITOR for second member, got %q", detail.Members[1].Role)
	}
	if detail.MemberCount != 2 {
		t.Errorf("expected member count 2, got %d", detail.MemberCount)
	}
}

func TestUpdate_Rename(t *testing.T) {
	d := memory.New()
	alice := seedUser(t, d, "Alice", "alice@example.com")
	ctx := context.Background()

	svc := lists.NewService(d, nil)
	created, err := svc.Create(ctx, alice.ID, "Old name")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	checker := lists.NewChecker(d)
	access, err := checker.CheckAccess(ctx, alice.ID, created.ID)
	if err != nil {
		t.Fatalf("CheckAccess failed: %v", err)
	}

	view, err := svc.Update(ctx, access, "New name")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if view.Name != "New name" {
		t.Errorf("expected renamed list, got %q", view.Name)
	}

	got, _ := d.GetList(ctx, created.ID)
	if got.Name != "New name" {
		t.Errorf("rename not persisted, got %q", got.Name)
	}
}

func TestDelete_CascadesListScope(t *testing.T) {
	d := memory.New()
	alice := seedUser(t, d, "Alice", "alice@example.com")
	ctx := context.Background()

	svc := lists.NewService(d, nil)
	created, err := svc.Create(ctx, alice.ID, "Reading")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err = d.CreateItem(ctx, &store.Item{
		ListID:      created.ID,
		CreatedByID: alice.ID,
		Kind:        store.ItemKindOther,
		Title:       "Dune",
	})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := d.GetList(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected list gone, got %v", err)
	}
	if _, err := d.GetMembership(ctx, created.ID, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected membership gone, got %v", err)
	}
	count, _ := d.CountItemsByList(ctx, created.ID)
	if count != 0 {
		t.Errorf("expected items gone, got %d", count)
	}
}

func TestDelete_MissingList(t *testing.T) {
	d := memory.New()
	svc := lists.NewService(d, nil)
	err := svc.Delete(context.Background(), "no-such-list")
	assertAPIError(t, err, 404, "List not found")
}

func TestParseRole(t *testing.T) {
	role, err := lists.ParseRole(" editor ")
	if err != nil {
		t.Fatalf("ParseRole failed: %v", err)
	}
	if role != lists.RoleEditor {
		t.Errorf("expected EDITOR, got %q", role)
	}

	if _, err := lists.ParseRole("ADMIN"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestParseAssignableRole(t *testing.T) {
	role, err := lists.ParseAssignableRole(" viewer ")
	if err != nil {
		t.Fatalf("ParseAssignableRole failed: %v", err)
	}
	if role != lists.RoleViewer {
		t.Errorf("expected VIEWER, got %q", role)
	}

	// OWNER parses as a role but is never grantable.
	if _, err := lists.ParseAssignableRole("OWNER"); err == nil {
		t.Error("expected error for OWNER")
	}
	if _, err := lists.ParseAssignableRole("ADMIN"); err == nil {
		t.Error("expected error for unknown role")
	}
	if lists.RoleOwner.Assignable() {
		t.Error("OWNER must not be assignable")
	}
	if !lists.RoleEditor.Assignable() || !lists.RoleViewer.Assignable() {
		t.Error("EDITOR and VIEWER must be assignable")
	}
}
