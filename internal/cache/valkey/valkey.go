// Package valkey provides a Valkey/Redis-backed cache for deployments
// that run more than one instance, where rate-limit windows must be
// shared.
package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/draftdeck/draftdeck/internal/cache"
)

// Config holds the connection settings.
type Config struct {
	Addr       string
	Password   string
	DB         int
	DefaultTTL time.Duration
}

// DefaultConfig returns connection defaults for a local instance.
func DefaultConfig() *Config {
	return &Config{
		Addr:       "localhost:6379",
		DefaultTTL: 15 * time.Minute,
	}
}

// Cache is a Valkey-backed CacheWithCounter.
type Cache struct {
	client     valkey.Client
	defaultTTL time.Duration
}

// New connects to the configured server. Connection failures surface
// here rather than on first use.
func New(cfg *Config) (*Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
		// Client-side caching is pointless for counters and breaks
		// compatibility with minimal server implementations.
		DisableCache: true,
	})
	if err != nil {
		return nil, err
	}

	ttl := cfg.DefaultTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{client: client, defaultTTL: ttl}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
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
	cmd := c.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Increment adds delta to a counter. The TTL is attached when the
// window opens and left alone afterwards, so the window is fixed
// rather than sliding.
func (c *Cache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, time.Time, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	count, err := c.client.Do(ctx, c.client.B().Incrby().Key(key).Increment(delta).Build()).AsInt64()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == delta {
		cmd := c.client.B().Pexpire().Key(key).Milliseconds(ttl.Milliseconds()).Build()
		if err := c.client.Do(ctx, cmd).Error(); err != nil {
			return 0, time.Time{}, err
		}
		return count, time.Now().Add(ttl), nil
	}

	remaining, err := c.client.Do(ctx, c.client.B().Pttl().Key(key).Build()).AsInt64()
	if err != nil || remaining < 0 {
		return count, time.Now().Add(ttl), nil
	}
	return count, time.Now().Add(time.Duration(remaining) * time.Millisecond), nil
}

// GetCount returns the current counter value.
func (c *Cache) GetCount(ctx context.Context, key string) (int64, error) {
	count, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// Reset clears a counter.
func (c *Cache) Reset(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() error {
	c.client.Close()
	return nil
}

var _ cache.CacheWithCounter = (*Cache)(nil)
