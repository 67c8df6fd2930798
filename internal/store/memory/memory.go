// Package memory implements an in-memory persistence driver.
// It backs tests and local development; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anved/listkeeper/internal/store"
)

func init() {
	store.Register("memory", NewDriver)
}

// state holds all tables. Methods on state assume the caller already holds
// the driver lock; Driver methods wrap them with locking, and Atomic runs
// its callback against the state directly under one lock.
type state struct {
	users            map[string]*store.User
	usersByEmail     map[string]string // email -> id
	lists            map[string]*store.List
	memberships      map[string]*store.Membership
	membershipByPair map[string]string // listID+"\x00"+userID -> id
	invites          map[string]*store.Invite
	inviteByToken    map[string]string // token -> id
	items            map[string]*store.Item
}

func newState() *state {
	return &state{
		users:            make(map[string]*store.User),
		usersByEmail:     make(map[string]string),
		lists:            make(map[string]*store.List),
		memberships:      make(map[string]*store.Membership),
		membershipByPair: make(map[string]string),
		invites:          make(map[string]*store.Invite),
		inviteByToken:    make(map[string]string),
		items:            make(map[string]*store.Item),
	}
}

// snapshot deep-copies the state so Atomic can roll back on error.
func (s *state) snapshot() *state {
	c := newState()
	for id, u := range s.users {
		v := *u
		c.users[id] = &v
	}
	for k, v := range s.usersByEmail {
		c.usersByEmail[k] = v
	}
	for id, l := range s.lists {
		v := *l
		c.lists[id] = &v
	}
	for id, m := range s.memberships {
		v := *m
		c.memberships[id] = &v
	}
	for k, v := range s.membershipByPair {
		c.membershipByPair[k] = v
	}
	for id, i := range s.invites {
		v := *i
		if i.AcceptedAt != nil {
			at := *i.AcceptedAt
			v.AcceptedAt = &at
		}
		c.invites[id] = &v
	}
	for k, v := range s.inviteByToken {
		c.inviteByToken[k] = v
	}
	for id, it := range s.items {
		v := *it
		c.items[id] = &v
	}
	return c
}

func pairKey(listID, userID string) string {
	return listID + "\x00" + userID
}

// Driver implements store.Driver with mutex-guarded maps.
type Driver struct {
	mu sync.RWMutex
	st *state
}

// NewDriver creates a new in-memory driver instance.
func NewDriver(_ *store.DriverConfig) (store.Driver, error) {
	return &Driver{st: newState()}, nil
}

// New creates an initialized in-memory driver for tests.
func New() *Driver {
	return &Driver{st: newState()}
}

// Name returns the driver name.
func (d *Driver) Name() string { return "memory" }

// Init initializes the driver.
func (d *Driver) Init(ctx context.Context) error { return nil }

// Close releases resources held by the driver.
func (d *Driver) Close() error { return nil }

// Atomic runs fn against the state under a single lock. On error the
// pre-call snapshot is restored, so partial writes never survive.
func (d *Driver) Atomic(ctx context.Context, fn func(store.Stores) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.st.snapshot()
	if err := fn(&txView{st: d.st}); err != nil {
		d.st = snap
		return err
	}
	return nil
}

// Users

func (s *state) createUser(user *store.User) error {
	if _, exists := s.usersByEmail[user.Email]; exists {
		return store.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
	}
	u := *user
	s.users[user.ID] = &u
	s.usersByEmail[user.Email] = user.ID
	return nil
}

func (s *state) getUser(id string) (*store.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (s *state) getUserByEmail(email string) (*store.User, error) {
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.getUser(id)
}

// Lists

func (s *state) createList(list *store.List) error {
	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now()
		list.UpdatedAt = list.CreatedAt
	}
	l := *list
	s.lists[list.ID] = &l
	return nil
}

func (s *state) getList(id string) (*store.List, error) {
	list, ok := s.lists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l := *list
	return &l, nil
}

func (s *state) getListWithMembership(listID, userID string) (*store.List, *store.Membership, error) {
	list, err := s.getList(listID)
	if err != nil {
		return nil, nil, err
	}
	id, ok := s.membershipByPair[pairKey(listID, userID)]
	if !ok {
		return list, nil, nil
	}
	m := *s.memberships[id]
	return list, &m, nil
}

func (s *state) updateList(list *store.List) error {
	if _, ok := s.lists[list.ID]; !ok {
		return store.ErrNotFound
	}
	list.UpdatedAt = time.Now()
	l := *list
	s.lists[list.ID] = &l
	return nil
}

func (s *state) deleteList(id string) error {
	if _, ok := s.lists[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.lists, id)
	for mid, m := range s.memberships {
		if m.ListID == id {
			delete(s.membershipByPair, pairKey(m.ListID, m.UserID))
			delete(s.memberships, mid)
		}
	}
	for iid, inv := range s.invites {
		if inv.ListID == id {
			delete(s.inviteByToken, inv.Token)
			delete(s.invites, iid)
		}
	}
	for itid, it := range s.items {
		if it.ListID == id {
			delete(s.items, itid)
		}
	}
	return nil
}

// Memberships

func (s *state) createMembership(m *store.Membership) error {
	key := pairKey(m.ListID, m.UserID)
	if _, exists := s.membershipByPair[key]; exists {
		return store.ErrAlreadyExists
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	c := *m
	s.memberships[m.ID] = &c
	s.membershipByPair[key] = m.ID
	return nil
}

func (s *state) getMembership(listID, userID string) (*store.Membership, error) {
	id, ok := s.membershipByPair[pairKey(listID, userID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	m := *s.memberships[id]
	return &m, nil
}

func (s *state) updateMembershipRole(membershipID, role string) error {
	m, ok := s.memberships[membershipID]
	if !ok {
		return store.ErrNotFound
	}
	m.Role = role
	return nil
}

func (s *state) deleteMembership(membershipID string) error {
	m, ok := s.memberships[membershipID]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.membershipByPair, pairKey(m.ListID, m.UserID))
	delete(s.memberships, membershipID)
	return nil
}

func (s *state) listMembersByList(listID string) ([]*store.Membership, error) {
	var result []*store.Membership
	for _, m := range s.memberships {
		if m.ListID == listID {
			c := *m
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *state) listMembershipsByUser(userID string) ([]*store.Membership, error) {
	var result []*store.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			c := *m
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *state) countMembersByList(listID string) (int, error) {
	count := 0
	for _, m := range s.memberships {
		if m.ListID == listID {
			count++
		}
	}
	return count, nil
}

// Invites

func inviteCopy(inv *store.Invite) *store.Invite {
	c := *inv
	if inv.AcceptedAt != nil {
		at := *inv.AcceptedAt
		c.AcceptedAt = &at
	}
	return &c
}

func invitePending(inv *store.Invite, now time.Time) bool {
	return inv.AcceptedAt == nil && inv.ExpiresAt.After(now)
}

func (s *state) createInvite(invite *store.Invite) error {
	if _, exists := s.inviteByToken[invite.Token]; exists {
		return store.ErrAlreadyExists
	}
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}
	s.invites[invite.ID] = inviteCopy(invite)
	s.inviteByToken[invite.Token] = invite.ID
	return nil
}

func (s *state) getInvite(id string) (*store.Invite, error) {
	inv, ok := s.invites[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return inviteCopy(inv), nil
}

func (s *state) getInviteByToken(token string) (*store.Invite, error) {
	id, ok := s.inviteByToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.getInvite(id)
}

func (s *state) getActiveInvite(listID, email string, now time.Time) (*store.Invite, error) {
	email = strings.ToLower(email)
	for _, inv := range s.invites {
		if inv.ListID == listID && inv.Email == email && invitePending(inv, now) {
			return inviteCopy(inv), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *state) listInvitesByList(listID string, pendingOnly bool, now time.Time) ([]*store.Invite, error) {
	var result []*store.Invite
	for _, inv := range s.invites {
		if inv.ListID != listID {
			continue
		}
		if pendingOnly && !invitePending(inv, now) {
			continue
		}
		result = append(result, inviteCopy(inv))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

func (s *state) listPendingInvitesByEmail(email string, now time.Time) ([]*store.Invite, error) {
	email = strings.ToLower(email)
	var result []*store.Invite
	for _, inv := range s.invites {
		if inv.Email == email && invitePending(inv, now) {
			result = append(result, inviteCopy(inv))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

func (s *state) markInviteAccepted(inviteID string, when time.Time) error {
	inv, ok := s.invites[inviteID]
	if !ok {
		return store.ErrNotFound
	}
	at := when
	inv.AcceptedAt = &at
	return nil
}

func (s *state) deleteInvite(inviteID string) error {
	inv, ok := s.invites[inviteID]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.inviteByToken, inv.Token)
	delete(s.invites, inviteID)
	return nil
}

// Items

func (s *state) createItem(item *store.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
		item.UpdatedAt = item.CreatedAt
	}
	c := *item
	s.items[item.ID] = &c
	return nil
}

func (s *state) getItem(listID, itemID string) (*store.Item, error) {
	item, ok := s.items[itemID]
	if !ok || item.ListID != listID {
		return nil, store.ErrNotFound
	}
	c := *item
	return &c, nil
}

func (s *state) updateItem(item *store.Item) error {
	existing, ok := s.items[item.ID]
	if !ok || existing.ListID != item.ListID {
		return store.ErrNotFound
	}
	item.UpdatedAt = time.Now()
	c := *item
	s.items[item.ID] = &c
	return nil
}

func (s *state) deleteItem(listID, itemID string) error {
	item, ok := s.items[itemID]
	if !ok || item.ListID != listID {
		return store.ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *state) listItemsByList(listID string) ([]*store.Item, error) {
	var result []*store.Item
	for _, item := range s.items {
		if item.ListID == listID {
			c := *item
			result = append(result, &c)
		}
	}
	// Open entries first, newest first within each group.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Done != result[j].Done {
			return !result[i].Done
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *state) countItemsByList(listID string) (int, error) {
	count := 0
	for _, item := range s.items {
		if item.ListID == listID {
			count++
		}
	}
	return count, nil
}

// Locked wrappers implementing store.Stores on *Driver.

func (d *Driver) CreateUser(ctx context.Context, user *store.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.createUser(user)
}

func (d *Driver) GetUser(ctx context.Context, id string) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getUser(id)
}

func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getUserByEmail(email)
}

func (d *Driver) CreateList(ctx context.Context, list *store.List) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.createList(list)
}

func (d *Driver) GetList(ctx context.Context, id string) (*store.List, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getList(id)
}

func (d *Driver) GetListWithMembership(ctx context.Context, listID, userID string) (*store.List, *store.Membership, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getListWithMembership(listID, userID)
}

func (d *Driver) UpdateList(ctx context.Context, list *store.List) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.updateList(list)
}

func (d *Driver) DeleteList(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.deleteList(id)
}

func (d *Driver) CreateMembership(ctx context.Context, m *store.Membership) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.createMembership(m)
}

func (d *Driver) GetMembership(ctx context.Context, listID, userID string) (*store.Membership, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getMembership(listID, userID)
}

func (d *Driver) UpdateMembershipRole(ctx context.Context, membershipID, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.updateMembershipRole(membershipID, role)
}

func (d *Driver) DeleteMembership(ctx context.Context, membershipID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.deleteMembership(membershipID)
}

func (d *Driver) ListMembersByList(ctx context.Context, listID string) ([]*store.Membership, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.listMembersByList(listID)
}

func (d *Driver) ListMembershipsByUser(ctx context.Context, userID string) ([]*store.Membership, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.listMembershipsByUser(userID)
}

func (d *Driver) CountMembersByList(ctx context.Context, listID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.countMembersByList(listID)
}

func (d *Driver) CreateInvite(ctx context.Context, invite *store.Invite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.createInvite(invite)
}

func (d *Driver) GetInvite(ctx context.Context, id string) (*store.Invite, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getInvite(id)
}

func (d *Driver) GetInviteByToken(ctx context.Context, token string) (*store.Invite, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getInviteByToken(token)
}

func (d *Driver) GetActiveInvite(ctx context.Context, listID, email string, now time.Time) (*store.Invite, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getActiveInvite(listID, email, now)
}

func (d *Driver) ListInvitesByList(ctx context.Context, listID string, pendingOnly bool, now time.Time) ([]*store.Invite, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.listInvitesByList(listID, pendingOnly, now)
}

func (d *Driver) ListPendingInvitesByEmail(ctx context.Context, email string, now time.Time) ([]*store.Invite, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.listPendingInvitesByEmail(email, now)
}

func (d *Driver) MarkInviteAccepted(ctx context.Context, inviteID string, when time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.markInviteAccepted(inviteID, when)
}

func (d *Driver) DeleteInvite(ctx context.Context, inviteID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.deleteInvite(inviteID)
}

func (d *Driver) CreateItem(ctx context.Context, item *store.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.createItem(item)
}

func (d *Driver) GetItem(ctx context.Context, listID, itemID string) (*store.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.getItem(listID, itemID)
}

func (d *Driver) UpdateItem(ctx context.Context, item *store.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.updateItem(item)
}

func (d *Driver) DeleteItem(ctx context.Context, listID, itemID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.deleteItem(listID, itemID)
}

func (d *Driver) ListItemsByList(ctx context.Context, listID string) ([]*store.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.listItemsByList(listID)
}

func (d *Driver) CountItemsByList(ctx context.Context, listID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st.countItemsByList(listID)
}

// txView exposes the state as store.Stores without re-locking; it only
// exists inside Atomic, where the driver lock is already held.
type txView struct {
	st *state
}

func (t *txView) CreateUser(ctx context.Context, user *store.User) error {
	return t.st.createUser(user)
}

func (t *txView) GetUser(ctx context.Context, id string) (*store.User, error) {
	return t.st.getUser(id)
}

func (t *txView) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return t.st.getUserByEmail(email)
}

func (t *txView) CreateList(ctx context.Context, list *store.List) error {
	return t.st.createList(list)
}

func (t *txView) GetList(ctx context.Context, id string) (*store.List, error) {
	return t.st.getList(id)
}

func (t *txView) GetListWithMembership(ctx context.Context, listID, userID string) (*store.List, *store.Membership, error) {
	return t.st.getListWithMembership(listID, userID)
}

func (t *txView) UpdateList(ctx context.Context, list *store.List) error {
	return t.st.updateList(list)
}

func (t *txView) DeleteList(ctx context.Context, id string) error {
	return t.st.deleteList(id)
}

func (t *txView) CreateMembership(ctx context.Context, m *store.Membership) error {
	return t.st.createMembership(m)
}

func (t *txView) GetMembership(ctx context.Context, listID, userID string) (*store.Membership, error) {
	return t.st.getMembership(listID, userID)
}

func (t *txView) UpdateMembershipRole(ctx context.Context, membershipID, role string) error {
	return t.st.updateMembershipRole(membershipID, role)
}

func (t *txView) DeleteMembership(ctx context.Context, membershipID string) error {
	return t.st.deleteMembership(membershipID)
}

func (t *txView) ListMembersByList(ctx context.Context, listID string) ([]*store.Membership, error) {
	return t.st.listMembersByList(listID)
}

func (t *txView) ListMembershipsByUser(ctx context.Context, userID string) ([]*store.Membership, error) {
	return t.st.listMembershipsByUser(userID)
}

func (t *txView) CountMembersByList(ctx context.Context, listID string) (int, error) {
	return t.st.countMembersByList(listID)
}

func (t *txView) CreateInvite(ctx context.Context, invite *store.Invite) error {
	return t.st.createInvite(invite)
}

func (t *txView) GetInvite(ctx context.Context, id string) (*store.Invite, error) {
	return t.st.getInvite(id)
}

func (t *txView) GetInviteByToken(ctx context.Context, token string) (*store.Invite, error) {
	return t.st.getInviteByToken(token)
}

func (t *txView) GetActiveInvite(ctx context.Context, listID, email string, now time.Time) (*store.Invite, error) {
	return t.st.getActiveInvite(listID, email, now)
}

func (t *txView) ListInvitesByList(ctx context.Context, listID string, pendingOnly bool, now time.Time) ([]*store.Invite, error) {
	return t.st.listInvitesByList(listID, pendingOnly, now)
}

func (t *txView) ListPendingInvitesByEmail(ctx context.Context, email string, now time.Time) ([]*store.Invite, error) {
	return t.st.listPendingInvitesByEmail(email, now)
}

func (t *txView) MarkInviteAccepted(ctx context.Context, inviteID string, when time.Time) error {
	return t.st.markInviteAccepted(inviteID, when)
}

func (t *txView) DeleteInvite(ctx context.Context, inviteID string) error {
	return t.st.deleteInvite(inviteID)
}

func (t *txView) CreateItem(ctx context.Context, item *store.Item) error {
	return t.st.createItem(item)
}

func (t *txView) GetItem(ctx context.Context, listID, itemID string) (*store.Item, error) {
	return t.st.getItem(listID, itemID)
}

func (t *txView) UpdateItem(ctx context.Context, item *store.Item) error {
	return t.st.updateItem(item)
}

func (t *txView) DeleteItem(ctx context.Context, listID, itemID string) error {
	return t.st.deleteItem(listID, itemID)
}

func (t *txView) ListItemsByList(ctx context.Context, listID string) ([]*store.Item, error) {
	return t.st.listItemsByList(listID)
}

func (t *txView) CountItemsByList(ctx context.Context, listID string) (int, error) {
	return t.st.countItemsByList(listID)
}

// Compile-time interface checks
var (
	_ store.Driver = (*Driver)(nil)
	_ store.Stores = (*txView)(nil)
)
