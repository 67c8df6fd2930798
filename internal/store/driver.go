// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrClosed        = errors.New("store closed")
)

// UserStore defines operations for user persistence.
type UserStore interface {
	// CreateUser creates a user. Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ListStore defines operations for list persistence.
type ListStore interface {
	CreateList(ctx context.Context, list *List) error
	GetList(ctx context.Context, id string) (*List, error)

	// GetListWithMembership loads a list together with the given user's
	// membership row in one logical fetch. The membership is nil when the
	// user has no relationship to the list; ErrNotFound means the list
	// itself does not exist.
	GetListWithMembership(ctx context.Context, listID, userID string) (*List, *Membership, error)

	UpdateList(ctx context.Context, list *List) error

	// DeleteList removes a list and cascades to its memberships, invites,
	// and items.
	DeleteList(ctx context.Context, id string) error
}

// MembershipStore defines operations for membership persistence.
type MembershipStore interface {
	// CreateMembership creates a membership row. Returns ErrAlreadyExists
	// when a row for the same (list, user) pair exists.
	CreateMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, listID, userID string) (*Membership, error)
	UpdateMembershipRole(ctx context.Context, membershipID, role string) error
	DeleteMembership(ctx context.Context, membershipID string) error

	// ListMembersByList returns all memberships for a list, oldest first.
	ListMembersByList(ctx context.Context, listID string) ([]*Membership, error)

	// ListMembershipsByUser returns all memberships held by a user.
	ListMembershipsByUser(ctx context.Context, userID string) ([]*Membership, error)

	CountMembersByList(ctx context.Context, listID string) (int, error)
}

// InviteStore defines operations for invite persistence.
type InviteStore interface {
	CreateInvite(ctx context.Context, invite *Invite) error
	GetInvite(ctx context.Context, id string) (*Invite, error)
	GetInviteByToken(ctx context.Context, token string) (*Invite, error)

	// GetActiveInvite returns the pending invite for (list, email) as of
	// now: accepted_at unset and expires_at after now. ErrNotFound when
	// no such invite exists.
	GetActiveInvite(ctx context.Context, listID, email string, now time.Time) (*Invite, error)

	// ListInvitesByList returns invites for a list. With pendingOnly set,
	// only invites pending as of now are returned, soonest-expiring first.
	ListInvitesByList(ctx context.Context, listID string, pendingOnly bool, now time.Time) ([]*Invite, error)

	// ListPendingInvitesByEmail returns invites pending as of now that are
	// addressed to the given (lower-cased) email, soonest-expiring first.
	ListPendingInvitesByEmail(ctx context.Context, email string, now time.Time) ([]*Invite, error)

	MarkInviteAccepted(ctx context.Context, inviteID string, when time.Time) error
	DeleteInvite(ctx context.Context, inviteID string) error
}

// ItemStore defines operations for item persistence.
type ItemStore interface {
	CreateItem(ctx context.Context, item *Item) error

	// GetItem returns the item only when it belongs to the given list.
	GetItem(ctx context.Context, listID, itemID string) (*Item, error)

	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, listID, itemID string) error

	// ListItemsByList returns a list's items, open entries before done ones,
	// newest first within each group.
	ListItemsByList(ctx context.Context, listID string) ([]*Item, error)

	CountItemsByList(ctx context.Context, listID string) (int, error)
}

// Stores aggregates all entity stores. Services depend on this interface;
// inside Atomic the callback receives a transactional view of it.
type Stores interface {
	UserStore
	ListStore
	MembershipStore
	InviteStore
	ItemStore
}

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	Stores

	// Init initializes the driver (create tables, open files, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (sqlite, memory).
	Name() string

	// Atomic executes fn against a transactional view of the stores.
	// All mutations made by fn commit together or not at all; returning an
	// error from fn discards every write. This is the single synchronization
	// point for multi-write state transitions such as invite acceptance.
	Atomic(ctx context.Context, fn func(Stores) error) error
}
