package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Cache. Expired entries are removed lazily on Get
// and in bulk by Purge.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*Entry
	now   func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]*Entry), now: time.Now}
}

// Get returns the entry or (nil, nil) if the key is missing or expired.
func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if e.Expired(m.now()) {
		m.mu.Lock()
		if cur, ok := m.items[key]; ok && cur == e {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, nil
	}
	return e, nil
}

// Set stores e. A positive ttl overrides e.ExpiresAt.
func (m *Memory) Set(_ context.Context, key string, e *Entry, ttl time.Duration) error {
	stored := *e
	if ttl > 0 {
		stored.ExpiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = &stored
	m.mu.Unlock()
	return nil
}

// Delete removes the entry.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Purge drops all expired entries and returns how many were removed.
func (m *Memory) Purge() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.items {
		if e.Expired(now) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, including expired ones not yet purged.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

var _ Cache = (*Memory)(nil)
