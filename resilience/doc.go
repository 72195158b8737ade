// Package resilience holds the fault-tolerance primitives used around
// outbound calls: retry with backoff or caller-supplied delays, a circuit
// breaker, a bulkhead and a token bucket rate limiter.
//
// Policy chains the last three around a single send:
//
//	p := resilience.Policy{
//	    Limiter:  resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50, Burst: 10}),
//	    Bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8}),
//	    Breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("users")),
//	}
//	err := p.Do(ctx, func(ctx context.Context) error { return send(ctx) })
//
// Retry is driven by the task decorators rather than by Policy, so each
// attempt runs the whole call pipeline again.
package resilience
