// Package cache keeps spell listings in Redis, keyed by their filters.
//
// Invalidation bumps a generation counter that is part of every entry
// key, so a whole namespace goes stale in one INCR. Old entries age out
// through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zulandar/spellbook/internal/catalog"
)

// DefaultPrefix namespaces every key written by the cache.
const DefaultPrefix = "spellbook"

// Client is the subset of the go-redis API the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Config configures a Cache.
type Config struct {
	Client Client
	TTL    time.Duration
	Prefix string
}

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.New("cache: config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.New("cache: client cannot be nil")
	}
	if cfg.TTL < 0 {
		return errors.New("cache: ttl cannot be negative")
	}
	return nil
}

// Cache stores spell listings. A nil *Cache is a valid, disabled cache.
type Cache struct {
	client Client
	ttl    time.Duration
	prefix string
}

// New creates a cache from cfg.
func New(cfg *Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: cfg.Client, ttl: cfg.TTL, prefix: prefix}, nil
}

// Dial connects to the Redis server at addr and checks it answers.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("cache: redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", addr, err)
	}
	return client, nil
}

// Enabled reports whether the cache is backed by a client.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) generationKey() string {
	return c.prefix + ":spells:gen"
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// Key returns the entry key for filters under the current generation.
func (c *Cache) Key(ctx context.Context, f catalog.Filters) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", fmt.Errorf("cache: read generation: %w", err)
	}
	return fmt.Sprintf("%s:spells:%d:%s", c.prefix, gen, f.Key()), nil
}

// GetSpells returns the cached listing for f and the key it was looked
// up under. ok is false on a miss. A listing built after a miss must be
// stored under that key, so a concurrent Invalidate leaves it stale
// rather than current.
func (c *Cache) GetSpells(ctx context.Context, f catalog.Filters) (spells []catalog.Spell, key string, ok bool, err error) {
	if !c.Enabled() {
		return nil, "", false, nil
	}
	key, err = c.Key(ctx, f)
	if err != nil {
		return nil, "", false, err
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, key, false, nil
	}
	if err != nil {
		return nil, key, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &spells); err != nil {
		return nil, key, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return spells, key, true, nil
}

// SetSpells stores a listing under a key returned by GetSpells. An empty
// key is a no-op.
func (c *Cache) SetSpells(ctx context.Context, key string, spells []catalog.Spell) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	if spells == nil {
		spells = []catalog.Spell{}
	}
	data, err := json.Marshal(spells)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached listing.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("cache: invalidate: %w", err)
	}
	return nil
}
