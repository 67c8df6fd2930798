// Package invites implements the invite lifecycle: creation, acceptance,
// rejection, cancellation, and the membership administration that grows out
// of accepted invites.
package invites

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/lists"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

// ValidityWindow is how long an invite stays acceptable after creation.
const ValidityWindow = 7 * 24 * time.Hour

// InviteView is the invite projection returned to list owners.
type InviteView struct {
	ID         string     `json:"id"`
	ListID     string     `json:"list_id"`
	Email      string     `json:"email"`
	Token      string     `json:"token"`
	Role       lists.Role `json:"role"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PendingView is an invite as seen by its invitee: the token is withheld
// and the list name is included so clients can render the invitation.
type PendingView struct {
	ID        string     `json:"id"`
	ListID    string     `json:"list_id"`
	ListName  string     `json:"list_name"`
	Email     string     `json:"email"`
	Role      lists.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// AcceptResult is returned from a successful acceptance.
type AcceptResult struct {
	Message  string `json:"message"`
	ListID   string `json:"list_id"`
	ListName string `json:"list_name"`
}

// Service implements the invite lifecycle on top of the store driver.
//
// The clock and token source are injected so tests can pin expiry and
// token values; production uses time.Now and random UUIDs.
type Service struct {
	driver   store.Driver
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string
}

// NewService creates an invite service with the production clock and
// token generator.
func NewService(driver store.Driver, logger *slog.Logger) *Service {
	return &Service{
		driver:   driver,
		logger:   logutil.NoopIfNil(logger),
		now:      time.Now,
		newToken: func() string { return uuid.New().String() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithTokenSource overrides the invite token generator. Test hook.
func (s *Service) WithTokenSource(gen func() string) *Service {
	s.newToken = gen
	return s
}

// Create issues an invite for email to join the list with the given role.
// The invited address may not already belong to the list, and at most one
// active invite per (list, email) pair may exist at a time. Expired and
// accepted invites do not count against that limit.
func (s *Service) Create(ctx context.Context, listID, inviterID, email string, role lists.Role) (*InviteView, error) {
	if !role.Assignable() {
		return nil, api.BadRequest("role must be EDITOR or VIEWER")
	}
	email = identity.NormalizeEmail(email)
	now := s.now()

	// An invitee with an existing account must not already be a member.
	user, err := s.driver.GetUserByEmail(ctx, email)
	if err == nil {
		if _, merr := s.driver.GetMembership(ctx, listID, user.ID); merr == nil {
			return nil, api.Conflict("User is already a member of this list")
		} else if !errors.Is(merr, store.ErrNotFound) {
			return nil, merr
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if _, err := s.driver.GetActiveInvite(ctx, listID, email, now); err == nil {
		return nil, api.Conflict("An active invite already exists for this email")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	invite := &store.Invite{
		ID:          uuid.New().String(),
		ListID:      listID,
		Email:       email,
		Token:       s.newToken(),
		Role:        string(role),
		CreatedByID: inviterID,
		ExpiresAt:   now.Add(ValidityWindow),
	}
	if err := s.driver.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}

	s.logger.Info("invite created",
		"invite_id", invite.ID,
		"list_id", listID,
		"role", role,
	)
	return toView(invite), nil
}

// AcceptByToken redeems an invite by its shareable token on behalf of the
// authenticated user.
func (s *Service) AcceptByToken(ctx context.Context, token, userID string) (*AcceptResult, error) {
	invite, err := s.driver.GetInviteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Invite not found")
		}
		return nil, err
	}
	return s.accept(ctx, invite, userID)
}

// AcceptByID redeems an invite by its identifier, as used from the
// invitee's pending-invites view.
func (s *Service) AcceptByID(ctx context.Context, inviteID, userID string) (*AcceptResult, error) {
	invite, err := s.driver.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Invite not found")
		}
		return nil, err
	}
	return s.accept(ctx, invite, userID)
}

// accept validates the invite against the accepting user and performs the
// membership grant. Checks run in a fixed order so callers always get the
// most specific failure: accepted before expired before wrong-address
// before already-member.
func (s *Service) accept(ctx context.Context, invite *store.Invite, userID string) (*AcceptResult, error) {
	now := s.now()

	if invite.AcceptedAt != nil {
		return nil, api.BadRequest("Invite has already been accepted")
	}
	if !invite.ExpiresAt.After(now) {
		return nil, api.BadRequest("Invite has expired")
	}

	user, err := s.driver.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if identity.NormalizeEmail(user.Email) != invite.Email {
		return nil, api.Forbidden("This invite is for a different email address")
	}

	if _, err := s.driver.GetMembership(ctx, invite.ListID, userID); err == nil {
		return nil, api.Conflict("You are already a member of this list")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	list, err := s.driver.GetList(ctx, invite.ListID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Invite not found")
		}
		return nil, err
	}

	// Membership grant and invite consumption commit together. The checks
	// are re-evaluated inside the transaction so two racing accepts cannot
	// both succeed; the (list, user) uniqueness constraint is the final
	// backstop.
	err = s.driver.Atomic(ctx, func(tx store.Stores) error {
		fresh, err := tx.GetInvite(ctx, invite.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return api.NotFound("Invite not found")
			}
			return err
		}
		if fresh.AcceptedAt != nil {
			return api.BadRequest("Invite has already been accepted")
		}

		err = tx.CreateMembership(ctx, &store.Membership{
			ListID: invite.ListID,
			UserID: userID,
			Role:   invite.Role,
		})
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return api.Conflict("You are already a member of this list")
			}
			return err
		}
		return tx.MarkInviteAccepted(ctx, invite.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite accepted",
		"invite_id", invite.ID,
		"list_id", invite.ListID,
		"user_id", userID,
	)
	return &AcceptResult{
		Message:  "Invite accepted successfully",
		ListID:   list.ID,
		ListName: list.Name,
	}, nil
}

// Reject declines an invite on behalf of its invitee. The invite is
// removed, so a fresh invite to the same address becomes possible
// immediately.
func (s *Service) Reject(ctx context.Context, inviteID, userID string) error {
	invite, err := s.driver.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Invite not found")
		}
		return err
	}

	user, err := s.driver.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if identity.NormalizeEmail(user.Email) != invite.Email {
		return api.Forbidden("This invite is for a different email address")
	}

	if err := s.driver.DeleteInvite(ctx, invite.ID); err != nil {
		return err
	}
	s.logger.Info("invite rejected", "invite_id", invite.ID, "list_id", invite.ListID)
	return nil
}

// Cancel withdraws an invite from the list owner's side. The invite must
// belong to the given list; one that does not is reported as not found
// rather than forbidden, so owners cannot probe other lists' invites.
// Accepted and expired invites can still be cancelled to clear them out.
func (s *Service) Cancel(ctx context.Context, listID, inviteID string) error {
	invite, err := s.driver.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Invite not found")
		}
		return err
	}
	if invite.ListID != listID {
		return api.NotFound("Invite not found")
	}

	if err := s.driver.DeleteInvite(ctx, invite.ID); err != nil {
		return err
	}
	s.logger.Info("invite cancelled", "invite_id", invite.ID, "list_id", listID)
	return nil
}

// PendingForList returns the list's pending invites: not accepted and not
// expired as of now.
func (s *Service) PendingForList(ctx context.Context, listID string) ([]*InviteView, error) {
	invites, err := s.driver.ListInvitesByList(ctx, listID, true, s.now())
	if err != nil {
		return nil, err
	}
	views := make([]*InviteView, 0, len(invites))
	for _, invite := range invites {
		views = append(views, toView(invite))
	}
	return views, nil
}

// PendingForUser returns the pending invites addressed to the user's email.
func (s *Service) PendingForUser(ctx context.Context, user *store.User) ([]*PendingView, error) {
	invites, err := s.driver.ListPendingInvitesByEmail(ctx, identity.NormalizeEmail(user.Email), s.now())
	if err != nil {
		return nil, err
	}

	views := make([]*PendingView, 0, len(invites))
	for _, invite := range invites {
		list, err := s.driver.GetList(ctx, invite.ListID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		views = append(views, &PendingView{
			ID:        invite.ID,
			ListID:    invite.ListID,
			ListName:  list.Name,
			Email:     invite.Email,
			Role:      lists.Role(invite.Role),
			ExpiresAt: invite.ExpiresAt,
			CreatedAt: invite.CreatedAt,
		})
	}
	return views, nil
}

// UpdateMemberRole changes an existing member's role. The owner's own row
// is immutable: ownership never moves through this path.
func (s *Service) UpdateMemberRole(ctx context.Context, listID, targetUserID string, role lists.Role) (*lists.MemberView, error) {
	if !role.Assignable() {
		return nil, api.BadRequest("role must be EDITOR or VIEWER")
	}
	membership, err := s.driver.GetMembership(ctx, listID, targetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Member not found")
		}
		return nil, err
	}
	if membership.Role == store.RoleOwner {
		return nil, api.Forbidden("Cannot change the role of the list owner")
	}

	if err := s.driver.UpdateMembershipRole(ctx, membership.ID, string(role)); err != nil {
		return nil, err
	}

	user, err := s.driver.GetUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("member role updated",
		"list_id", listID,
		"user_id", targetUserID,
		"role", role,
	)
	return &lists.MemberView{
		ID:        membership.ID,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		Role:      role,
		CreatedAt: membership.CreatedAt,
	}, nil
}

// RemoveMember drops a member from the list. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, listID, targetUserID string) error {
	membership, err := s.driver.GetMembership(ctx, listID, targetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Member not found")
		}
		return err
	}
	if membership.Role == store.RoleOwner {
		return api.Forbidden("Cannot remove the list owner")
	}

	if err := s.driver.DeleteMembership(ctx, membership.ID); err != nil {
		return err
	}
	s.logger.Info("member removed", "list_id", listID, "user_id", targetUserID)
	return nil
}

func toView(invite *store.Invite) *InviteView {
	return &InviteView{
		ID:         invite.ID,
		ListID:     invite.ListID,
		Email:      invite.Email,
		Token:      invite.Token,
		Role:       lists.Role(invite.Role),
		ExpiresAt:  invite.ExpiresAt,
		AcceptedAt: invite.AcceptedAt,
		CreatedAt:  invite.CreatedAt,
	}
}
