package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/kbukum/apikit/logger"
)

// BigCacheConfig configures an in-process BigCache store.
type BigCacheConfig struct {
	// LifeWindow is the eviction window of the underlying cache. Entries
	// with a shorter TTL still expire on time because Get checks ExpiresAt.
	LifeWindow time.Duration `mapstructure:"life_window"`
	// CleanWindow is the interval between evictions; 0 disables cleanup.
	CleanWindow time.Duration `mapstructure:"clean_window"`
	// Shards must be a power of two.
	Shards int `mapstructure:"shards"`
	// MaxEntriesInWindow sizes the initial shard allocation.
	MaxEntriesInWindow int `mapstructure:"max_entries_in_window"`
	// MaxEntrySize is the expected maximum entry size in bytes.
	MaxEntrySize int `mapstructure:"max_entry_size"`
	// HardMaxCacheSizeMB caps memory use; 0 means unbounded.
	HardMaxCacheSizeMB int `mapstructure:"hard_max_cache_size_mb"`
}

// ApplyDefaults fills in zero-value fields.
func (c *BigCacheConfig) ApplyDefaults() {
	if c.LifeWindow <= 0 {
		c.LifeWindow = 10 * time.Minute
	}
	if c.CleanWindow <= 0 {
		c.CleanWindow = time.Minute
	}
	if c.Shards <= 0 {
		c.Shards = 64
	}
	if c.MaxEntriesInWindow <= 0 {
		c.MaxEntriesInWindow = 1024
	}
	if c.MaxEntrySize <= 0 {
		c.MaxEntrySize = 4096
	}
}

// Validate checks the configuration.
func (c *BigCacheConfig) Validate() error {
	if c.Shards&(c.Shards-1) != 0 {
		return fmt.Errorf("shards must be a power of two, got %d", c.Shards)
	}
	return nil
}

// BigCache is a Cache over allegro/bigcache.
type BigCache struct {
	bc   *bigcache.BigCache
	opts options
}

// NewBigCache creates a BigCache store. ctx bounds the cleanup goroutine.
func NewBigCache(ctx context.Context, cfg BigCacheConfig, opts ...Option) (*BigCache, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bigcache config: %w", err)
	}
	bcfg := bigcache.DefaultConfig(cfg.LifeWindow)
	bcfg.CleanWindow = cfg.CleanWindow
	bcfg.Shards = cfg.Shards
	bcfg.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	bcfg.MaxEntrySize = cfg.MaxEntrySize
	bcfg.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	bcfg.Verbose = false

	bc, err := bigcache.New(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &BigCache{bc: bc, opts: buildOptions(opts)}, nil
}

// Get implements Cache. Corrupt entries are dropped and reported as misses.
func (b *BigCache) Get(_ context.Context, key string) (*Entry, error) {
	data, err := b.bc.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e, err := b.opts.serializer.Decode(key, data)
	if err != nil {
		b.opts.log.Warn("dropping unreadable cache entry", logger.Fields(logger.FieldCacheKey, key, logger.FieldError, err))
		_ = b.bc.Delete(key)
		return nil, nil
	}
	if e.Expired(b.opts.now()) {
		_ = b.bc.Delete(key)
		return nil, nil
	}
	return e, nil
}

// Set implements Cache.
func (b *BigCache) Set(_ context.Context, key string, e *Entry, ttl time.Duration) error {
	stored := *e
	if ttl > 0 {
		stored.ExpiresAt = b.opts.now().Add(ttl)
	}
	data, err := b.opts.serializer.Encode(key, &stored)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return b.bc.Set(key, data)
}

// Delete implements Cache.
func (b *BigCache) Delete(_ context.Context, key string) error {
	if err := b.bc.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Len returns the number of stored entries.
func (b *BigCache) Len() int { return b.bc.Len() }

// Close stops the cleanup goroutine and releases memory.
func (b *BigCache) Close() error { return b.bc.Close() }

var _ Cache = (*BigCache)(nil)
