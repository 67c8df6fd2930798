// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anved/listkeeper/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// queries implements store.Stores against a *gorm.DB handle. The same
// implementation serves the root connection and transaction handles, which
// is what makes Atomic work: the callback gets a queries bound to the tx.
type queries struct {
	db *gorm.DB
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	queries
	dataDir string
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	return &Driver{
		dataDir: cfg.DataDir,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "listkeeper.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	// AutoMigrate creates/updates tables based on model structs
	if err := db.AutoMigrate(
		&store.User{},
		&store.List{},
		&store.Membership{},
		&store.Invite{},
		&store.Item{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomic runs fn inside a database transaction. An error from fn rolls
// back every write made through the transactional store view.
func (d *Driver) Atomic(ctx context.Context, fn func(store.Stores) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&queries{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrAlreadyExists
	default:
		return err
	}
}

// UserStore implementation

func (q *queries) CreateUser(ctx context.Context, user *store.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return translate(q.db.WithContext(ctx).Create(user).Error)
}

func (q *queries) GetUser(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	if err := q.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	if err := q.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListStore implementation

func (q *queries) CreateList(ctx context.Context, list *store.List) error {
	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	return translate(q.db.WithContext(ctx).Create(list).Error)
}

func (q *queries) GetList(ctx context.Context, id string) (*store.List, error) {
	var list store.List
	if err := q.db.WithContext(ctx).First(&list, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &list, nil
}

func (q *queries) GetListWithMembership(ctx context.Context, listID, userID string) (*store.List, *store.Membership, error) {
	list, err := q.GetList(ctx, listID)
	if err != nil {
		return nil, nil, err
	}

	var membership store.Membership
	err = q.db.WithContext(ctx).
		First(&membership, "list_id = ? AND user_id = ?", listID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return list, nil, nil
		}
		return nil, nil, err
	}
	return list, &membership, nil
}

func (q *queries) UpdateList(ctx context.Context, list *store.List) error {
	result := q.db.WithContext(ctx).Model(&store.List{}).
		Where("id = ?", list.ID).
		Updates(map[string]any{"name": list.Name, "updated_at": time.Now()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteList(ctx context.Context, id string) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&store.List{}, "id = ?", id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Delete(&store.Membership{}, "list_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&store.Invite{}, "list_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&store.Item{}, "list_id = ?", id).Error
	})
}

// MembershipStore implementation

func (q *queries) CreateMembership(ctx context.Context, m *store.Membership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return translate(q.db.WithContext(ctx).Create(m).Error)
}

func (q *queries) GetMembership(ctx context.Context, listID, userID string) (*store.Membership, error) {
	var m store.Membership
	err := q.db.WithContext(ctx).
		First(&m, "list_id = ? AND user_id = ?", listID, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (q *queries) UpdateMembershipRole(ctx context.Context, membershipID, role string) error {
	result := q.db.WithContext(ctx).Model(&store.Membership{}).
		Where("id = ?", membershipID).
		Update("role", role)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteMembership(ctx context.Context, membershipID string) error {
	result := q.db.WithContext(ctx).Delete(&store.Membership{}, "id = ?", membershipID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) ListMembersByList(ctx context.Context, listID string) ([]*store.Membership, error) {
	var members []*store.Membership
	err := q.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("created_at asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (q *queries) ListMembershipsByUser(ctx context.Context, userID string) ([]*store.Membership, error) {
	var members []*store.Membership
	err := q.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (q *queries) CountMembersByList(ctx context.Context, listID string) (int, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&store.Membership{}).
		Where("list_id = ?", listID).
		Count(&count).Error
	return int(count), err
}

// InviteStore implementation

func (q *queries) CreateInvite(ctx context.Context, invite *store.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	return translate(q.db.WithContext(ctx).Create(invite).Error)
}

func (q *queries) GetInvite(ctx context.Context, id string) (*store.Invite, error) {
	var invite store.Invite
	if err := q.db.WithContext(ctx).First(&invite, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

func (q *queries) GetInviteByToken(ctx context.Context, token string) (*store.Invite, error) {
	var invite store.Invite
	if err := q.db.WithContext(ctx).First(&invite, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

func (q *queries) GetActiveInvite(ctx context.Context, listID, email string, now time.Time) (*store.Invite, error) {
	var invite store.Invite
	err := q.db.WithContext(ctx).
		First(&invite, "list_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?",
			listID, email, now).Error
	if err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

func (q *queries) ListInvitesByList(ctx context.Context, listID string, pendingOnly bool, now time.Time) ([]*store.Invite, error) {
	query := q.db.WithContext(ctx).Where("list_id = ?", listID)
	if pendingOnly {
		query = query.Where("accepted_at IS NULL AND expires_at > ?", now)
	}
	var invites []*store.Invite
	if err := query.Order("expires_at asc").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (q *queries) ListPendingInvitesByEmail(ctx context.Context, email string, now time.Time) ([]*store.Invite, error) {
	var invites []*store.Invite
	err := q.db.WithContext(ctx).
		Where("email = ? AND accepted_at IS NULL AND expires_at > ?", email, now).
		Order("expires_at asc").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

func (q *queries) MarkInviteAccepted(ctx context.Context, inviteID string, when time.Time) error {
	result := q.db.WithContext(ctx).Model(&store.Invite{}).
		Where("id = ?", inviteID).
		Update("accepted_at", when)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteInvite(ctx context.Context, inviteID string) error {
	result := q.db.WithContext(ctx).Delete(&store.Invite{}, "id = ?", inviteID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ItemStore implementation

func (q *queries) CreateItem(ctx context.Context, item *store.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	return translate(q.db.WithContext(ctx).Create(item).Error)
}

func (q *queries) GetItem(ctx context.Context, listID, itemID string) (*store.Item, error) {
	var item store.Item
	err := q.db.WithContext(ctx).
		First(&item, "id = ? AND list_id = ?", itemID, listID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (q *queries) UpdateItem(ctx context.Context, item *store.Item) error {
	result := q.db.WithContext(ctx).Model(&store.Item{}).
		Where("id = ? AND list_id = ?", item.ID, item.ListID).
		Updates(map[string]any{
			"title":      item.Title,
			"notes":      item.Notes,
			"done":       item.Done,
			"metadata":   item.Metadata,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteItem(ctx context.Context, listID, itemID string) error {
	result := q.db.WithContext(ctx).Delete(&store.Item{}, "id = ? AND list_id = ?", itemID, listID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) ListItemsByList(ctx context.Context, listID string) ([]*store.Item, error) {
	var items []*store.Item
	err := q.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("done asc, created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (q *queries) CountItemsByList(ctx context.Context, listID string) (int, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&store.Item{}).
		Where("list_id = ?", listID).
		Count(&count).Error
	return int(count), err
}

// Compile-time interface checks
var (
	_ store.Driver = (*Driver)(nil)
	_ store.Stores = (*queries)(nil)
)
