// Package items implements CRUD for list entries.
package items

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

// ItemView is the item projection returned to clients.
type ItemView struct {
	ID          string        `json:"id"`
	ListID      string        `json:"list_id"`
	CreatedByID string        `json:"created_by_id"`
	Kind        string        `json:"kind"`
	Title       string        `json:"title"`
	Notes       string        `json:"notes"`
	Done        bool          `json:"done"`
	Metadata    store.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CreateInput carries the fields for a new item.
type CreateInput struct {
	Kind     string        `json:"kind"`
	Title    string        `json:"title"`
	Notes    string        `json:"notes"`
	Metadata store.JSONMap `json:"metadata"`
}

// UpdateInput carries a partial item update; nil fields are left unchanged.
type UpdateInput struct {
	Title    *string        `json:"title"`
	Notes    *string        `json:"notes"`
	Done     *bool          `json:"done"`
	Metadata *store.JSONMap `json:"metadata"`
}

// Service implements item CRUD on top of the store driver.
type Service struct {
	driver store.Driver
	logger *slog.Logger
}

// NewService creates an item service.
func NewService(driver store.Driver, logger *slog.Logger) *Service {
	return &Service{
		driver: driver,
		logger: logutil.NoopIfNil(logger),
	}
}

// Create adds an item to the list. Kind defaults to OTHER.
func (s *Service) Create(ctx context.Context, listID, userID string, in CreateInput) (*ItemView, error) {
	kind := in.Kind
	if kind == "" {
		kind = store.ItemKindOther
	}
	if kind != store.ItemKindBook && kind != store.ItemKindOther {
		return nil, api.BadRequest("kind must be BOOK or OTHER")
	}

	item := &store.Item{
		ID:          uuid.New().String(),
		ListID:      listID,
		CreatedByID: userID,
		Kind:        kind,
		Title:       in.Title,
		Notes:       in.Notes,
		Metadata:    in.Metadata,
	}
	if err := s.driver.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("item created", "item_id", item.ID, "list_id", listID, "kind", kind)
	return toView(item), nil
}

// FindAll returns the list's items, open entries first, newest first within
// each group.
func (s *Service) FindAll(ctx context.Context, listID string) ([]*ItemView, error) {
	items, err := s.driver.ListItemsByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	views := make([]*ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toView(item))
	}
	return views, nil
}

// FindOne returns a single item scoped to the list.
func (s *Service) FindOne(ctx context.Context, listID, itemID string) (*ItemView, error) {
	item, err := s.driver.GetItem(ctx, listID, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Item not found")
		}
		return nil, err
	}
	return toView(item), nil
}

// Update applies a partial update to an item.
func (s *Service) Update(ctx context.Context, listID, itemID string, in UpdateInput) (*ItemView, error) {
	item, err := s.driver.GetItem(ctx, listID, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Item not found")
		}
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, api.BadRequest("title is required")
		}
		item.Title = *in.Title
	}
	if in.Notes != nil {
		item.Notes = *in.Notes
	}
	if in.Done != nil {
		item.Done = *in.Done
	}
	if in.Metadata != nil {
		item.Metadata = *in.Metadata
	}

	if err := s.driver.UpdateItem(ctx, item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFound("Item not found")
		}
		return nil, err
	}
	return toView(item), nil
}

// Delete removes an item from the list.
func (s *Service) Delete(ctx context.Context, listID, itemID string) error {
	if err := s.driver.DeleteItem(ctx, listID, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Item not found")
		}
		return err
	}
	s.logger.Info("item deleted", "item_id", itemID, "list_id", listID)
	return nil
}

func toView(item *store.Item) *ItemView {
	return &ItemView{
		ID:          item.ID,
		ListID:      item.ListID,
		CreatedByID: item.CreatedByID,
		Kind:        item.Kind,
		Title:       item.Title,
		Notes:       item.Notes,
		Done:        item.Done,
		Metadata:    item.Metadata,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}
