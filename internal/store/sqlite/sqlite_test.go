package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anved/listkeeper/internal/store"

	_ "github.com/anved/listkeeper/internal/store/sqlite"
)

func newDriver(t *testing.T, dataDir string) store.Driver {
	t.Helper()
	driver, err := store.New(&store.DriverConfig{Driver: "sqlite", DataDir: dataDir})
	if err != nil {
		t.Fatalf("failed to create sqlite driver: %v", err)
	}
	if err := driver.Init(context.Background()); err != nil {
		t.Fatalf("failed to init sqlite driver: %v", err)
	}
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestDriver_CreatesDatabaseFile(t *testing.T) {
	dataDir := t.TempDir()
	d := newDriver(t, dataDir)

	if d.Name() != "sqlite" {
		t.Errorf("expected driver name sqlite, got %q", d.Name())
	}
	if _, err := os.Stat(filepath.Join(dataDir, "listkeeper.db")); os.IsNotExist(err) {
		t.Error("listkeeper.db not created")
	}
}

func TestDriver_RequiresDataDir(t *testing.T) {
	if _, err := store.New(&store.DriverConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for missing data_dir")
	}
}

func TestDriver_GeneratesIDs(t *testing.T) {
	d := newDriver(t, t.TempDir())
	ctx := context.Background()

	list := &store.List{Name: "Reading"}
	if err := d.CreateList(ctx, list); err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if list.ID == "" {
		t.Fatal("expected generated list id")
	}

	m := &store.Membership{ListID: list.ID, UserID: "u1", Role: store.RoleOwner}
	if err := d.CreateMembership(ctx, m); err != nil {
		t.Fatalf("CreateMembership failed: %v", err)
	}
	if m.ID == "" {
		t.Fatal("expected generated membership id")
	}

	// A second id-less membership must not collide with the first.
	other := &store.Membership{ListID: list.ID, UserID: "u2", Role: store.RoleViewer}
	if err := d.CreateMembership(ctx, other); err != nil {
		t.Fatalf("second CreateMembership failed: %v", err)
	}
}

func TestDriver_UniqueConstraints(t *testing.T) {
	d := newDriver(t, t.TempDir())
	ctx := context.Background()

	if err := d.CreateUser(ctx, &store.User{Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := d.CreateUser(ctx, &store.User{Name: "Impostor", Email: "alice@example.com"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate email, got %v", err)
	}

	m := &store.Membership{ListID: "list-1", UserID: "user-1", Role: store.RoleViewer}
	if err := d.CreateMembership(ctx, m); err != nil {
		t.Fatalf("CreateMembership failed: %v", err)
	}
	dup := &store.Membership{ListID: "list-1", UserID: "user-1", Role: store.RoleEditor}
	if err := d.CreateMembership(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate (list, user) pair, got %v", err)
	}
}

func TestDriver_AtomicRollsBackOnError(t *testing.T) {
	d := newDriver(t, t.TempDir())
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := d.Atomic(ctx, func(tx store.Stores) error {
		if err := tx.CreateList(ctx, &store.List{ID: "list-1", Name: "Doomed"}); err != nil {
			return err
		}
		if err := tx.CreateMembership(ctx, &store.Membership{
			ListID: "list-1", UserID: "user-1", Role: store.RoleOwner,
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if _, err := d.GetList(ctx, "list-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected list rolled back, got %v", err)
	}
	if _, err := d.GetMembership(ctx, "list-1", "user-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected membership rolled back, got %v", err)
	}
}

func TestDriver_AtomicCommitsOnSuccess(t *testing.T) {
	d := newDriver(t, t.TempDir())
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	invite := &store.Invite{
		ListID: "list-1", Email: "bob@example.com", Token: "tok-1",
		Role: store.RoleEditor, ExpiresAt: now.Add(time.Hour),
	}
	if err := d.CreateInvite(ctx, invite); err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}

	// The accept dual-write: membership + accepted_at in one transaction.
	err := d.Atomic(ctx, func(tx store.Stores) error {
		if err := tx.CreateMembership(ctx, &store.Membership{
			ListID: "list-1", UserID: "user-1", Role: invite.Role,
		}); err != nil {
			return err
		}
		return tx.MarkInviteAccepted(ctx, invite.ID, now)
	})
	if err != nil {
		t.Fatalf("Atomic failed: %v", err)
	}

	m, err := d.GetMembership(ctx, "list-1", "user-1")
	if err != nil {
		t.Fatalf("expected committed membership, got %v", err)
	}
	if m.Role != store.RoleEditor {
		t.Errorf("expected role EDITOR, got %q", m.Role)
	}
	got, err := d.GetInvite(ctx, invite.ID)
	if err != nil {
		t.Fatalf("GetInvite failed: %v", err)
	}
	if got.AcceptedAt == nil || !got.AcceptedAt.Equal(now) {
		t.Errorf("expected accepted_at %v, got %v", now, got.AcceptedAt)
	}
}

func TestDriver_SurvivesRestart(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()
	cfg := &store.DriverConfig{Driver: "sqlite", DataDir: dataDir}

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}

	item := &store.Item{
		ListID: "list-1", Kind: store.ItemKindBook, Title: "Dune",
		Metadata: store.JSONMap{"authors": []any{"Frank Herbert"}},
	}
	if err := driver.CreateItem(ctx, item); err != nil {
		t.Fatal(err)
	}
	driver.Close()

	driver2, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver2.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver2.Close()

	got, err := driver2.GetItem(ctx, "list-1", item.ID)
	if err != nil {
		t.Fatalf("item not found after restart: %v", err)
	}
	if got.Title != "Dune" {
		t.Errorf("expected title Dune, got %q", got.Title)
	}
	if got.Metadata == nil {
		t.Error("expected metadata to survive restart")
	}
}
