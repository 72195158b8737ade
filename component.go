package apikit

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/apikit/component"
)

// Component runs a Factory inside a component.Registry. The factory is
// built on Start and closed on Stop.
type Component struct {
	name string
	cfg  Config
	opts []Option

	mu      sync.RWMutex
	factory *Factory
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a stopped component.
func NewComponent(name string, cfg Config, opts ...Option) *Component {
	return &Component{name: name, cfg: cfg, opts: opts}
}

func (c *Component) Name() string { return c.name }

// Start builds the factory. Starting twice is a no-op.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.factory != nil {
		return nil
	}
	cfg := c.cfg
	if cfg.Name == "" {
		cfg.Name = c.name
	}
	f, err := New(cfg, c.opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	c.factory = f
	return nil
}

// Stop closes the factory.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	f := c.factory
	c.factory = nil
	c.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// Factory returns the running factory, or nil before Start.
func (c *Component) Factory() *Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.factory
}

// Health is degraded while the transport pool is at its bound.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.name, Status: component.StatusHealthy}
	f := c.Factory()
	if f == nil {
		h.Status, h.Message = component.StatusUnhealthy, "not started"
		return h
	}
	st := f.Stats()
	live := st.Handles.Active + st.Handles.Expired
	if limit := f.cfg.Handles.MaxHandles; limit > 0 && live >= limit {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("handle pool full (%d/%d)", live, limit)
	}
	return h
}

func (c *Component) Describe() component.Description {
	base := c.cfg.BaseURL
	if base == "" {
		base = "per-contract hosts"
	}
	return component.Description{
		Name:    c.name,
		Type:    "http-client",
		Details: fmt.Sprintf("%s timeout=%s max_handles=%d", base, c.cfg.Timeout, c.cfg.Handles.MaxHandles),
	}
}
