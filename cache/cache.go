package cache

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache: store closed")

// Cache stores response entries. Get returns (nil, nil) on a miss or an
// expired entry. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
