// Package cache provides TTL key-value storage used for catalog lookup
// memoization and login rate-limit counters.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrExpired  = errors.New("key expired")
)

// Default TTLs per cache category.
const (
	TTLCatalog   = 15 * time.Minute // catalog provider responses
	TTLRateLimit = 1 * time.Minute  // login rate-limit window
)

// Cache provides TTL-based key-value storage.
type Cache interface {
	// Get retrieves a value by key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. If TTL is 0, the driver
	// default applies.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists and is not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources.
	Close() error
}

// Counter provides windowed counters for rate limiting.
type Counter interface {
	// Increment adds delta to the counter and returns the new value and
	// the time the window resets. A missing or expired counter starts a
	// new window with the given TTL; an existing window keeps its expiry.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, time.Time, error)

	// GetCount returns the current counter value, 0 when absent.
	GetCount(ctx context.Context, key string) (int64, error)

	// Reset clears the counter.
	Reset(ctx context.Context, key string) error
}

// CacheWithCounter combines Cache and Counter.
type CacheWithCounter interface {
	Cache
	Counter
}

// Factory builds a cache from driver-specific options.
type Factory func(config map[string]any) (CacheWithCounter, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Factory)
)

// RegisterDriver registers a cache driver factory under a name. Drivers
// call this from init; importing the loader package wires the defaults.
func RegisterDriver(name string, factory Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// New builds the named cache driver with the given options.
func New(name string, config map[string]any) (CacheWithCounter, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown cache driver %q (available: %v)", name, AvailableDrivers())
	}
	return factory(config)
}

// AvailableDrivers returns the registered driver names, sorted.
func AvailableDrivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
