// Package identity provides password verification, session handling, and
// the request-scoped current user.
package identity

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/anved/listkeeper/internal/store"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")
)

// NormalizeEmail lower-cases and trims an email address. Emails are always
// persisted and compared in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserAuth handles password hashing and verification.
type UserAuth struct {
	cost int // bcrypt cost factor
}

// NewUserAuth creates a new UserAuth with the given bcrypt cost.
// Cost should be at least 10 for production.
func NewUserAuth(cost int) *UserAuth {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &UserAuth{cost: cost}
}

// HashPassword creates a bcrypt hash of the password.
func (a *UserAuth) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the password matches the hash.
// Returns ErrInvalidPassword if the password doesn't match.
func (a *UserAuth) VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Authenticate verifies a user's credentials by email.
// Returns the user if credentials are valid, otherwise an error.
func (a *UserAuth) Authenticate(ctx context.Context, users store.UserStore, email, password string) (*store.User, error) {
	user, err := users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if err := a.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	return user, nil
}

type userKey struct{}

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// did not pass the auth middleware.
func UserFromContext(ctx context.Context) *store.User {
	user, _ := ctx.Value(userKey{}).(*store.User)
	return user
}
