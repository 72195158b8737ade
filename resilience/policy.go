package resilience

import "context"

// Policy chains the optional send guards: the rate limiter waits first,
// then the bulkhead takes a slot, then the breaker runs the call. Nil
// members are skipped.
type Policy struct {
	Limiter  *RateLimiter
	Bulkhead *Bulkhead
	Breaker  *CircuitBreaker
}

// Empty reports whether no guard is configured.
func (p *Policy) Empty() bool {
	return p == nil || (p.Limiter == nil && p.Bulkhead == nil && p.Breaker == nil)
}

// Do runs fn under every configured guard.
func (p *Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	if p.Empty() {
		return fn(ctx)
	}
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	call := func() error { return fn(ctx) }
	if p.Breaker != nil {
		inner := call
		call = func() error { return p.Breaker.Execute(inner) }
	}
	if p.Bulkhead != nil {
		return p.Bulkhead.Execute(ctx, call)
	}
	return call()
}
