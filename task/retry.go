package task

import (
	"context"
	"errors"
	"time"

	apierrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/resilience"
)

// RetryTask re-invokes an inner Task. It is itself a value that can be
// converted back to a Task with Task() and decorated further.
type RetryTask[T any] struct {
	inner    Task[T]
	maxCount int
	delay    func(retry int) time.Duration
	errPreds []func(error) bool
	resPreds []func(T) bool
	onRetry  func(attempt int, err error)
}

// Retry decorates t with up to maxCount extra attempts, so t is invoked
// at most maxCount+1 times. Without any When* predicate every error except
// context cancellation is retried.
func Retry[T any](t Task[T], maxCount int) *RetryTask[T] {
	return &RetryTask[T]{inner: t, maxCount: max(maxCount, 0)}
}

// WhenError retries errors matching pred.
func (r *RetryTask[T]) WhenError(pred func(error) bool) *RetryTask[T] {
	r.errPreds = append(r.errPreds, pred)
	return r
}

// WhenCatch is WhenError, read better with CatchAs.
func (r *RetryTask[T]) WhenCatch(pred func(error) bool) *RetryTask[T] {
	return r.WhenError(pred)
}

// WhenResult retries successful results matching pred.
func (r *RetryTask[T]) WhenResult(pred func(T) bool) *RetryTask[T] {
	r.resPreds = append(r.resPreds, pred)
	return r
}

// WithDelay waits fn(retry) before each retry. retry starts at 0 and the
// first attempt is never delayed.
func (r *RetryTask[T]) WithDelay(fn func(retry int) time.Duration) *RetryTask[T] {
	r.delay = fn
	return r
}

// OnRetry is called after a failed attempt that will be retried.
func (r *RetryTask[T]) OnRetry(fn func(attempt int, err error)) *RetryTask[T] {
	r.onRetry = fn
	return r
}

// Invoke runs the decorated call. When attempts run out the last
// qualifying error is returned, or a RETRY_EXHAUSTED error when the last
// attempt was rejected by a result predicate.
func (r *RetryTask[T]) Invoke(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := resilience.RetryConfig{
		MaxAttempts: r.maxCount + 1,
		Delay:       r.delay,
		RetryIf:     r.retryIf,
	}
	if r.delay == nil {
		cfg.Delay = func(int) time.Duration { return 0 }
	}
	if r.onRetry != nil {
		cfg.OnRetry = func(attempt int, err error, _ time.Duration) { r.onRetry(attempt, err) }
	}

	v, err := resilience.RetryResult(ctx, cfg, func() (T, error) {
		return r.inner.Invoke(ctx)
	}, r.retryResult)
	if errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		return v, apierrors.RetryExhausted(cfg.MaxAttempts, err)
	}
	return v, err
}

// Task returns the decorated call as a Task.
func (r *RetryTask[T]) Task() Task[T] {
	return New(r.Invoke)
}

func (r *RetryTask[T]) retryIf(err error) bool {
	if len(r.errPreds) == 0 {
		return len(r.resPreds) == 0 && resilience.DefaultRetryIf(err)
	}
	for _, p := range r.errPreds {
		if p(err) {
			return true
		}
	}
	return false
}

func (r *RetryTask[T]) retryResult(v T) bool {
	for _, p := range r.resPreds {
		if p(v) {
			return true
		}
	}
	return false
}

// CatchAs matches errors that have an E in their chain.
func CatchAs[E error]() func(error) bool {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// CatchIs matches errors that wrap target.
func CatchIs(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}
