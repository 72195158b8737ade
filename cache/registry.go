package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// DefaultStore is the name used when a cache tag names no store.
const DefaultStore = "default"

// Store types accepted by StoreConfig.Type.
const (
	TypeMemory   = "memory"
	TypeBigCache = "bigcache"
	TypeRedis    = "redis"
)

// StoreConfig configures one named store.
type StoreConfig struct {
	Type     string         `mapstructure:"type"`
	BigCache BigCacheConfig `mapstructure:"bigcache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	// EncryptionKey enables at-rest encryption for byte-oriented stores.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// Config configures the store registry.
type Config struct {
	Stores map[string]StoreConfig `mapstructure:"stores"`
}

// Validate checks every store configuration.
func (c *Config) Validate() error {
	for name, sc := range c.Stores {
		switch sc.Type {
		case "", TypeMemory:
			if sc.EncryptionKey != "" {
				return fmt.Errorf("cache.stores.%s: memory stores do not support encryption", name)
			}
		case TypeBigCache:
			b := sc.BigCache
			b.ApplyDefaults()
			if err := b.Validate(); err != nil {
				return fmt.Errorf("cache.stores.%s: %w", name, err)
			}
		case TypeRedis:
			r := sc.Redis
			r.ApplyDefaults()
			if err := r.Validate(); err != nil {
				return fmt.Errorf("cache.stores.%s: %w", name, err)
			}
		default:
			return fmt.Errorf("cache.stores.%s: unknown type %q", name, sc.Type)
		}
	}
	return nil
}

// Registry holds named stores. A memory store is registered as
// DefaultStore unless replaced.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Cache
}

// NewRegistry creates a registry with an in-memory default store.
func NewRegistry() *Registry {
	return &Registry{stores: map[string]Cache{DefaultStore: NewMemory()}}
}

// FromConfig builds a registry from cfg. ctx bounds background work of
// in-process stores.
func FromConfig(ctx context.Context, cfg Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := NewRegistry()
	for name, sc := range cfg.Stores {
		c, err := newStore(ctx, sc, opts)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("cache.stores.%s: %w", name, err)
		}
		r.Register(name, c)
	}
	return r, nil
}

func newStore(ctx context.Context, sc StoreConfig, opts []Option) (Cache, error) {
	if sc.EncryptionKey != "" {
		s, err := Sealed(JSON, sc.EncryptionKey)
		if err != nil {
			return nil, err
		}
		opts = append(append([]Option(nil), opts...), WithSerializer(s))
	}
	switch sc.Type {
	case TypeBigCache:
		return NewBigCache(ctx, sc.BigCache, opts...)
	case TypeRedis:
		return NewRedis(sc.Redis, opts...)
	default:
		return NewMemory(), nil
	}
}

// Register adds or replaces a named store.
func (r *Registry) Register(name string, c Cache) {
	if name == "" {
		name = DefaultStore
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = c
}

// Get returns the named store; an empty name selects DefaultStore.
func (r *Registry) Get(name string) (Cache, error) {
	if name == "" {
		name = DefaultStore
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.stores[name]
	if !ok {
		return nil, fmt.Errorf("cache: store %q not registered", name)
	}
	return c, nil
}

// Names returns the registered store names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for n := range r.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close closes every store that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, c := range r.stores {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
