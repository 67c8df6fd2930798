package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/store"
	"github.com/anved/listkeeper/internal/store/memory"
)

func TestUserAuth_HashAndVerify(t *testing.T) {
	auth := identity.NewUserAuth(4) // Low cost for fast tests

	password := "secret123"
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("hash should not equal password")
	}

	// Correct password
	if err := auth.VerifyPassword(hash, password); err != nil {
		t.Errorf("VerifyPassword failed for correct password: %v", err)
	}

	// Wrong password
	err = auth.VerifyPassword(hash, "wrongpassword")
	if err != identity.ErrInvalidPassword {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestUserAuth_Authenticate(t *testing.T) {
	d := memory.New()
	auth := identity.NewUserAuth(4)
	ctx := context.Background()

	hash, _ := auth.HashPassword("testpass")
	user := &store.User{
		Name:         "Test User",
		Email:        "test@example.com",
		PasswordHash: hash,
	}
	if err := d.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Successful auth; email matching is case-insensitive
	got, err := auth.Authenticate(ctx, d, "Test@Example.com", "testpass")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %q, got %q", user.ID, got.ID)
	}

	// Wrong password
	_, err = auth.Authenticate(ctx, d, "test@example.com", "wrongpass")
	if err != identity.ErrInvalidPassword {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}

	// Unknown user
	_, err = auth.Authenticate(ctx, d, "unknown@example.com", "testpass")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := identity.NormalizeEmail("  Bob@Example.COM "); got != "bob@example.com" {
		t.Errorf("expected lower-cased trimmed email, got %q", got)
	}
}

func TestMemorySessionRepo_Lifecycle(t *testing.T) {
	repo := identity.NewMemorySessionRepo()
	ctx := context.Background()

	session, err := repo.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := repo.Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", got.UserID)
	}

	if err := repo.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, session.Token); err != identity.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestMemorySessionRepo_Expiry(t *testing.T) {
	repo := identity.NewMemorySessionRepo()
	ctx := context.Background()

	session, err := repo.Create(ctx, "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := repo.Get(ctx, session.Token); err != identity.ErrSessionExpired {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}

	count, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 expired session removed, got %d", count)
	}
	if _, err := repo.Get(ctx, session.Token); err != identity.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after sweep, got %v", err)
	}
}

func TestMemorySessionRepo_DeleteByUser(t *testing.T) {
	repo := identity.NewMemorySessionRepo()
	ctx := context.Background()

	first, _ := repo.Create(ctx, "user-1", time.Hour)
	second, _ := repo.Create(ctx, "user-1", time.Hour)
	other, _ := repo.Create(ctx, "user-2", time.Hour)

	if err := repo.DeleteByUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}

	if _, err := repo.Get(ctx, first.Token); err != identity.ErrSessionNotFound {
		t.Errorf("expected first session gone, got %v", err)
	}
	if _, err := repo.Get(ctx, second.Token); err != identity.ErrSessionNotFound {
		t.Errorf("expected second session gone, got %v", err)
	}
	if _, err := repo.Get(ctx, other.Token); err != nil {
		t.Errorf("other user's session should survive, got %v", err)
	}
}
