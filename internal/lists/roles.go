package lists

import (
	"fmt"
	"strings"

	"github.com/anved/listkeeper/internal/store"
)

// Role is a member's role on a list.
type Role string

const (
	RoleOwner  Role = store.RoleOwner
	RoleEditor Role = store.RoleEditor
	RoleViewer Role = store.RoleViewer
)

// roleHierarchy ranks roles for minimum-level checks. Checks compare levels
// (OWNER passes an EDITOR requirement), never exact set membership.
var roleHierarchy = map[Role]int{
	RoleOwner:  3,
	RoleEditor: 2,
	RoleViewer: 1,
}

// Level returns the role's rank in the hierarchy, 0 for unknown roles.
func (r Role) Level() int {
	return roleHierarchy[r]
}

// Valid reports whether the role is one of OWNER, EDITOR, VIEWER.
func (r Role) Valid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// Assignable reports whether the role can be granted to a collaborator.
// OWNER is never assignable: the single owner is fixed at list creation
// and ownership does not move through invites or role changes.
func (r Role) Assignable() bool {
	return r == RoleEditor || r == RoleViewer
}

// ParseRole parses a role string, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be one of OWNER, EDITOR, VIEWER", s)
	}
	return r, nil
}

// ParseAssignableRole parses a role that may be granted to a collaborator,
// rejecting OWNER along with unknown values.
func ParseAssignableRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Assignable() {
		return "", fmt.Errorf("invalid role %q: must be EDITOR or VIEWER", s)
	}
	return r, nil
}
