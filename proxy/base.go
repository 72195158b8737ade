package proxy

import "sync"

// Base gives struct contracts a Close method. Embed it first so its tag
// carries the contract-level hooks:
//
//	type UserAPI struct {
//		proxy.Base `host:"https://api.example.com"`
//		GetUser func(ctx context.Context, id string) (*User, error) `GET:"users/{id}"`
//	}
type Base struct {
	mu    sync.Mutex
	close func() error
}

// Close releases the client. Calls made afterwards fail.
func (b *Base) Close() error {
	b.mu.Lock()
	fn := b.close
	b.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn()
}

func (b *Base) bind(fn func() error) {
	b.mu.Lock()
	b.close = fn
	b.mu.Unlock()
}
