// Package valkey provides a Valkey/Redis-backed cache driver.
package valkey

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mitchellh/mapstructure"
	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/anved/listkeeper/internal/cache"
)

type settings struct {
	Addr               string `mapstructure:"addr"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db"`
	DialTimeoutSeconds int    `mapstructure:"dial_timeout_seconds"`
	DefaultTTLSeconds  int    `mapstructure:"default_ttl_seconds"`
}

func init() {
	cache.RegisterDriver("valkey", func(config map[string]any) (cache.CacheWithCounter, error) {
		s := settings{
			Addr:               "localhost:6379",
			DialTimeoutSeconds: 5,
			DefaultTTLSeconds:  int(cache.TTLCatalog / time.Second),
		}
		if config != nil {
			if err := mapstructure.Decode(config, &s); err != nil {
				return nil, err
			}
		}
		return New(Config{
			Addr:        s.Addr,
			Password:    s.Password,
			DB:          s.DB,
			DialTimeout: time.Duration(s.DialTimeoutSeconds) * time.Second,
			DefaultTTL:  time.Duration(s.DefaultTTLSeconds) * time.Second,
		})
	})
}

// Config holds Valkey connection configuration.
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	DefaultTTL  time.Duration
}

// Cache is a Valkey-backed cache. Counters map to INCRBY with a window
// expiry set only on the first increment, so the window survives later
// increments.
type Cache struct {
	client     valkeygo.Client
	defaultTTL time.Duration
}

// New connects to Valkey and verifies the connection with a PING.
// It fails fast when the server is unreachable.
func New(cfg Config) (*Cache, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = cache.TTLCatalog
	}

	client, err := valkeygo.NewClient(valkeygo.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		Dialer:       net.Dialer{Timeout: cfg.DialTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect %s: %w", cfg.Addr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", cfg.Addr, err)
	}

	return &Cache{client: client, defaultTTL: cfg.DefaultTTL}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	cmd := c.client.B().Set().Key(key).Value(valkeygo.BinaryString(value)).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Exists checks if a key exists.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Increment adds delta to a counter and returns the new value and the
// window reset time.
func (c *Cache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, time.Time, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	count, err := c.client.Do(ctx, c.client.B().Incrby().Key(key).Increment(delta).Build()).AsInt64()
	if err != nil {
		return 0, time.Time{}, err
	}

	// NX keeps the expiry set by the increment that opened the window.
	expireCmd := c.client.B().Expire().Key(key).Seconds(int64(ttl / time.Second)).Nx().Build()
	if err := c.client.Do(ctx, expireCmd).Error(); err != nil {
		return 0, time.Time{}, err
	}

	remaining, err := c.client.Do(ctx, c.client.B().Pttl().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, time.Time{}, err
	}
	resetAt := time.Now()
	if remaining > 0 {
		resetAt = resetAt.Add(time.Duration(remaining) * time.Millisecond)
	}
	return count, resetAt, nil
}

// GetCount returns the current counter value, 0 when absent.
func (c *Cache) GetCount(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsInt64()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Reset clears a counter.
func (c *Cache) Reset(ctx context.Context, key string) error {
	return c.Delete(ctx, key)
}

// Close releases the client connection.
func (c *Cache) Close() error {
	c.client.Close()
	return nil
}

var _ cache.CacheWithCounter = (*Cache)(nil)
