package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Session is a bearer credential tying an opaque token to one user.
// Expiry is enforced on every read and by the server's periodic sweep.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionRepo stores active sessions.
type SessionRepo interface {
	// Create opens a session for the user with the given lifetime.
	Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error)

	// Get resolves a token: ErrSessionNotFound for unknown tokens,
	// ErrSessionExpired for known but stale ones.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete ends a single session. Unknown tokens are a no-op.
	Delete(ctx context.Context, token string) error

	// DeleteByUser ends every session the user holds (logout everywhere).
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired drops stale sessions and reports how many were removed.
	DeleteExpired(ctx context.Context) (int, error)
}

// GenerateToken returns 32 bytes from crypto/rand, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MemorySessionRepo keeps sessions in process memory, indexed by token
// and by user. Sessions do not survive a restart; clients log in again.
type MemorySessionRepo struct {
	mu      sync.RWMutex
	byToken map[string]*Session
	byUser  map[string]map[string]struct{}
}

// NewMemorySessionRepo creates an empty in-memory session repository.
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		byToken: make(map[string]*Session),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (r *MemorySessionRepo) Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[token] = session
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][token] = struct{}{}
	return session, nil
}

func (r *MemorySessionRepo) Get(ctx context.Context, token string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byToken[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

func (r *MemorySessionRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(token)
	return nil
}

func (r *MemorySessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token := range r.byUser[userID] {
		delete(r.byToken, token)
	}
	delete(r.byUser, userID)
	return nil
}

func (r *MemorySessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var stale []string
	for token, session := range r.byToken {
		if now.After(session.ExpiresAt) {
			stale = append(stale, token)
		}
	}
	for _, token := range stale {
		r.drop(token)
	}
	return len(stale), nil
}

// drop removes one session from both indexes. The caller holds the lock.
func (r *MemorySessionRepo) drop(token string) {
	session, ok := r.byToken[token]
	if !ok {
		return
	}
	delete(r.byToken, token)
	if set := r.byUser[session.UserID]; set != nil {
		delete(set, token)
		if len(set) == 0 {
			delete(r.byUser, session.UserID)
		}
	}
}
