package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	hold := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	if err := b.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("expected ErrBulkheadFull, got %v", err)
	}
	if b.InUse() != 1 || b.Available() != 0 {
		t.Errorf("unexpected slots in use=%d available=%d", b.InUse(), b.Available())
	}
	close(hold)
	wg.Wait()
	if b.InUse() != 0 {
		t.Errorf("expected slot released")
	}
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 5 * time.Millisecond})
	release := make(chan struct{})
	go func() { _ = b.Execute(context.Background(), func() error { <-release; return nil }) }()
	for b.InUse() == 0 {
		time.Sleep(time.Millisecond)
	}
	err := b.Execute(context.Background(), func() error { return nil })
	close(release)
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Fatalf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	base := time.Unix(100, 0)
	rl.now = func() time.Time { return base }
	rl.last = base

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("expected burst of 2")
	}
	if rl.Allow() {
		t.Fatal("expected third call to be limited")
	}
	base = base.Add(time.Second)
	if !rl.Allow() {
		t.Fatal("expected refill after one second")
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPolicy_Do(t *testing.T) {
	var nilPolicy *Policy
	if !nilPolicy.Empty() {
		t.Fatal("nil policy should be empty")
	}
	called := false
	if err := nilPolicy.Do(context.Background(), func(context.Context) error { called = true; return nil }); err != nil || !called {
		t.Fatalf("nil policy should run fn directly")
	}

	p := &Policy{
		Bulkhead: NewBulkhead(BulkheadConfig{MaxConcurrent: 2}),
		Breaker:  NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1}),
	}
	boom := errors.New("boom")
	if err := p.Do(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := p.Do(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
