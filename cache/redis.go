package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/apikit/logger"
)

// RedisConfig holds Redis connection settings for a shared store.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix namespaces cache keys, default "apikit:".
	KeyPrefix string `mapstructure:"key_prefix"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// DialTimeout is the timeout for establishing new connections (e.g. "5s").
	DialTimeout string `mapstructure:"dial_timeout"`
	// ReadTimeout is the timeout for socket reads (e.g. "3s").
	ReadTimeout string `mapstructure:"read_timeout"`
	// WriteTimeout is the timeout for socket writes (e.g. "3s").
	WriteTimeout string `mapstructure:"write_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *RedisConfig) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "apikit:"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout %q: %w", c.DialTimeout, err)
	}
	if _, err := time.ParseDuration(c.ReadTimeout); err != nil {
		return fmt.Errorf("invalid read_timeout %q: %w", c.ReadTimeout, err)
	}
	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write_timeout %q: %w", c.WriteTimeout, err)
	}
	return nil
}

// Redis is a Cache shared across processes.
type Redis struct {
	rdb    goredis.UniversalClient
	prefix string
	owned  bool
	opts   options

	mu     sync.Mutex
	closed bool
}

// NewRedis dials a new client from cfg.
func NewRedis(cfg RedisConfig, opts ...Option) (*Redis, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})
	r := NewRedisWithClient(rdb, cfg.KeyPrefix, opts...)
	r.owned = true
	r.opts.log.Info("redis cache created", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "pool_size", cfg.PoolSize))
	return r, nil
}

// NewRedisWithClient uses an existing client. Close does not close it.
func NewRedisWithClient(rdb goredis.UniversalClient, prefix string, opts ...Option) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, opts: buildOptions(opts)}
}

// Ping verifies the Redis connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e, err := r.opts.serializer.Decode(key, data)
	if err != nil {
		r.opts.log.Warn("dropping unreadable cache entry", logger.Fields(logger.FieldCacheKey, key, logger.FieldError, err))
		_ = r.rdb.Del(ctx, r.prefix+key).Err()
		return nil, nil
	}
	if e.Expired(r.opts.now()) {
		return nil, nil
	}
	return e, nil
}

// Set implements Cache. Redis expires the key with the entry.
func (r *Redis) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	now := r.opts.now()
	stored := *e
	if ttl > 0 {
		stored.ExpiresAt = now.Add(ttl)
	}
	data, err := r.opts.serializer.Encode(key, &stored)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return r.rdb.Set(ctx, r.prefix+key, data, stored.TTL(now)).Err()
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}

// Close closes the client when this store created it. Safe to call
// multiple times.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.owned {
		r.closed = true
		return nil
	}
	r.closed = true
	return r.rdb.Close()
}

var _ Cache = (*Redis)(nil)
