package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedSource reuses the token of an underlying source until it is within
// Skew of expiry. Concurrent refreshes collapse into one call.
type CachedSource struct {
	src  TokenSource
	skew time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	token *Token
	group singleflight.Group
}

// Cache wraps src. skew is how long before expiry a token is refreshed.
func Cache(src TokenSource, skew time.Duration) *CachedSource {
	if c, ok := src.(*CachedSource); ok {
		return c
	}
	return &CachedSource{src: src, skew: max(skew, 0), now: time.Now}
}

// Token returns the cached token or fetches a new one.
func (c *CachedSource) Token(ctx context.Context) (*Token, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok.Valid(c.now(), c.skew) {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		c.mu.RLock()
		cur := c.token
		c.mu.RUnlock()
		if cur.Valid(c.now(), c.skew) {
			return cur, nil
		}
		fresh, err := c.src.Token(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// Invalidate drops the cached token so the next call refetches it.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
	if inv, ok := c.src.(Invalidator); ok {
		inv.Invalidate()
	}
}
