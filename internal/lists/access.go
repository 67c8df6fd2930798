package lists

import (
	"context"
	"errors"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/store"
)

// Access is the result of a successful access check: the resolved list and
// the caller's membership row, loaded once and handed to downstream checks
// and handlers so they never re-fetch.
type Access struct {
	List       *store.List
	Membership *store.Membership
}

// Role returns the caller's role on the list.
func (a *Access) Role() Role {
	if a == nil || a.Membership == nil {
		return ""
	}
	return Role(a.Membership.Role)
}

// Checker resolves whether a caller has any relationship to a list.
type Checker struct {
	stores store.Stores
}

// NewChecker creates an access checker backed by the given stores.
func NewChecker(stores store.Stores) *Checker {
	return &Checker{stores: stores}
}

// CheckAccess verifies the caller may touch the list at all. An empty
// listID means the route is not list-scoped and the check is a no-op.
//
// The list-existence check deliberately precedes the membership check: a
// missing list is a 404 even for non-members. List existence is not secret;
// membership is.
func (c *Checker) CheckAccess(ctx context.Context, userID, listID string) (*Access, error) {
	if listID == "" {
		return nil, nil
	}

	list, membership, err := c.stores.GetListWithMembership(ctx, listID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("List not found")
		}
		return nil, err
	}

	if membership == nil {
		return nil, api.Forbidden("You are not a member of this list")
	}

	return &Access{List: list, Membership: membership}, nil
}

// CheckRole enforces a minimum-role requirement. With no required roles the
// check is a no-op. The caller's role level must reach the lowest level
// among the required roles: requiring EDITOR admits OWNER as well.
//
// A nil membership here means the access check did not run first; that is
// an internal consistency error and fails closed.
func CheckRole(membership *store.Membership, required ...Role) error {
	if len(required) == 0 {
		return nil
	}

	if membership == nil {
		return api.Forbidden("List membership not found")
	}

	level := Role(membership.Role).Level()
	for _, role := range required {
		if level >= role.Level() {
			return nil
		}
	}

	return api.Forbidden("Insufficient permissions for this action")
}
