// Package valkey provides a Valkey/Redis cache driver.
package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/shoplist/shoplist-go/internal/platform/cache"
	"github.com/shoplist/shoplist-go/internal/platform/cfg"
)

func init() {
	cache.RegisterDriver("valkey", func(config map[string]any) (cache.CacheWithCounter, error) {
		var c driverConfig
		if err := cfg.Decode(config, &c); err != nil {
			return nil, err
		}
		return New(&c)
	})
}

type driverConfig struct {
	Address           string `mapstructure:"address"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	DefaultTTLSeconds int    `mapstructure:"default_ttl_seconds"`
}

func (c *driverConfig) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "localhost:6379"
	}
	if c.DefaultTTLSeconds <= 0 {
		c.DefaultTTLSeconds = int(cache.TTLDefault / time.Second)
	}
}

// Cache is a Valkey-backed cache with TTL support.
type Cache struct {
	client     valkey.Client
	defaultTTL time.Duration
}

// New connects to the configured Valkey server.
func New(c *driverConfig) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{c.Address},
		Username:    c.Username,
		Password:    c.Password,
		SelectDB:    c.DB,
		// Server-assisted client caching is unnecessary for short-lived
		// session and counter keys.
		DisableCache: true,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		client:     client,
		defaultTTL: time.Duration(c.DefaultTTLSeconds) * time.Second,
	}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	return c.client.Do(ctx,
		c.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Ex(ttl).Build(),
	).Error()
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

// Increment adds delta to the counter and returns the new value.
// The TTL is set only when the key is created, so the window is fixed
// from the first hit.
func (c *Cache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	n, err := c.client.Do(ctx, c.client.B().Incrby().Key(key).Increment(delta).Build()).AsInt64()
	if err != nil {
		return 0, err
	}

	if err := c.client.Do(ctx,
		c.client.B().Expire().Key(key).Seconds(int64(ttl/time.Second)).Nx().Build(),
	).Error(); err != nil {
		return n, err
	}

	return n, nil
}

// GetCount returns the current counter value. Returns 0 if not found.
func (c *Cache) GetCount(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Reset sets the counter to 0.
func (c *Cache) Reset(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Close releases the client connections.
func (c *Cache) Close() error {
	c.client.Close()
	return nil
}

var _ cache.CacheWithCounter = (*Cache)(nil)
