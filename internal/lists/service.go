// Package lists provides list management and the two-stage authorization
// gates (access check, then role check) used by every list-scoped route.
package lists

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

// ListView is the list projection returned to clients.
type ListView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserRole    Role      `json:"user_role"`
	ItemCount   int       `json:"item_count"`
	MemberCount int       `json:"member_count"`
}

// MemberView is the membership projection returned to clients.
type MemberView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DetailView is ListView plus the full member roster.
type DetailView struct {
	ListView
	Members []MemberView `json:"members"`
}

// Service implements list CRUD on top of the store driver.
type Service struct {
	driver store.Driver
	logger *slog.Logger
}

// NewService creates a list service.
func NewService(driver store.Driver, logger *slog.Logger) *Service {
	return &Service{
		driver: driver,
		logger: logutil.NoopIfNil(logger),
	}
}

// Create creates a list together with its OWNER membership for the creator.
// The pair is written atomically: a list never exists without an owner.
func (s *Service) Create(ctx context.Context, userID, name string) (*ListView, error) {
	list := &store.List{
		ID:          uuid.New().String(),
		Name:        name,
		CreatedByID: userID,
	}

	err := s.driver.Atomic(ctx, func(tx store.Stores) error {
		if err := tx.CreateList(ctx, list); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, &store.Membership{
			ListID: list.ID,
			UserID: userID,
			Role:   store.RoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("list created", "list_id", list.ID, "owner_id", userID)

	return &ListView{
		ID:          list.ID,
		Name:        list.Name,
		CreatedByID: list.CreatedByID,
		CreatedAt:   list.CreatedAt,
		UpdatedAt:   list.UpdatedAt,
		UserRole:    RoleOwner,
		ItemCount:   0,
		MemberCount: 1,
	}, nil
}

// FindAllForUser returns every list the user belongs to, most recently
// updated first.
func (s *Service) FindAllForUser(ctx context.Context, userID string) ([]*ListView, error) {
	memberships, err := s.driver.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*ListView, 0, len(memberships))
	for _, m := range memberships {
		list, err := s.driver.GetList(ctx, m.ListID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		view, err := s.toView(ctx, list, Role(m.Role))
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return views, nil
}

// FindOne returns list details including the member roster.
// The access gate has already resolved the list and the caller's role.
func (s *Service) FindOne(ctx context.Context, access *Access) (*DetailView, error) {
	view, err := s.toView(ctx, access.List, access.Role())
	if err != nil {
		return nil, err
	}

	members, err := s.Members(ctx, access.List.ID)
	if err != nil {
		return nil, err
	}

	return &DetailView{ListView: *view, Members: members}, nil
}

// Update renames a list.
func (s *Service) Update(ctx context.Context, access *Access, name string) (*ListView, error) {
	list := access.List
	list.Name = name
	if err := s.driver.UpdateList(ctx, list); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("List not found")
		}
		return nil, err
	}
	return s.toView(ctx, list, access.Role())
}

// Delete removes a list and everything scoped to it.
func (s *Service) Delete(ctx context.Context, listID string) error {
	if err := s.driver.DeleteList(ctx, listID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("List not found")
		}
		return err
	}
	s.logger.Info("list deleted", "list_id", listID)
	return nil
}

func (s *Service) toView(ctx context.Context, list *store.List, role Role) (*ListView, error) {
	itemCount, err := s.driver.CountItemsByList(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	memberCount, err := s.driver.CountMembersByList(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	return &ListView{
		ID:          list.ID,
		Name:        list.Name,
		CreatedByID: list.CreatedByID,
		CreatedAt:   list.CreatedAt,
		UpdatedAt:   list.UpdatedAt,
		UserRole:    role,
		ItemCount:   itemCount,
		MemberCount: memberCount,
	}, nil
}

// Members returns the list's member roster, oldest membership first.
func (s *Service) Members(ctx context.Context, listID string) ([]MemberView, error) {
	memberships, err := s.driver.ListMembersByList(ctx, listID)
	if err != nil {
		return nil, err
	}

	views := make([]MemberView, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.driver.GetUser(ctx, m.UserID)
		if err != nil {
			return nil, err
		}
		views = append(views, MemberView{
			ID:        m.ID,
			UserID:    user.ID,
			UserName:  user.Name,
			UserEmail: user.Email,
			Role:      Role(m.Role),
			CreatedAt: m.CreatedAt,
		})
	}
	return views, nil
}
