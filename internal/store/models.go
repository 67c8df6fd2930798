package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role values stored on memberships and invites.
const (
	RoleOwner  = "OWNER"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

// Item kinds.
const (
	ItemKindBook  = "BOOK"
	ItemKindOther = "OTHER"
)

// User is a registered account. Email is persisted lower-cased and unique.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// List is an owned collection of items.
type List struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	CreatedByID string    `json:"created_by_id" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership is the (list, user, role) relation granting access.
// The (list_id, user_id) pair is unique; the index doubles as the final
// backstop against duplicate membership under concurrent invite acceptance.
type Membership struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	ListID    string    `json:"list_id" gorm:"uniqueIndex:idx_membership_list_user"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_membership_list_user"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Invite is a time-boxed, email-addressed, tokenized offer to join a list.
// There is no stored EXPIRED state: pending-ness is always computed against
// a caller-supplied "now" (accepted_at unset AND expires_at in the future).
type Invite struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	ListID      string     `json:"list_id" gorm:"index"`
	Email       string     `json:"email" gorm:"index"` // lower-cased
	Token       string     `json:"token" gorm:"uniqueIndex"`
	Role        string     `json:"role"`
	CreatedByID string     `json:"created_by_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Item is a single list entry, either a catalog book or a free-form entry.
type Item struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ListID      string    `json:"list_id" gorm:"index"`
	CreatedByID string    `json:"created_by_id"`
	Kind        string    `json:"kind"` // BOOK or OTHER
	Title       string    `json:"title"`
	Notes       string    `json:"notes"`
	Done        bool      `json:"done"`
	Metadata    JSONMap   `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JSONMap stores arbitrary item metadata (catalog ids, authors, cover URL)
// as a JSON text column.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}
