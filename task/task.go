package task

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrUnbound is returned by the zero Task.
var ErrUnbound = errors.New("task: not bound to an invocation")

// Func produces a result for one invocation.
type Func[T any] func(ctx context.Context) (T, error)

// Task is a deferred call. Each Invoke runs the call again.
type Task[T any] struct {
	fn Func[T]
}

// New wraps fn in a Task.
func New[T any](fn Func[T]) Task[T] {
	return Task[T]{fn: fn}
}

// FromResult returns a Task that always yields v.
func FromResult[T any](v T) Task[T] {
	return New(func(context.Context) (T, error) { return v, nil })
}

// FromError returns a Task that always fails with err.
func FromError[T any](err error) Task[T] {
	return New(func(context.Context) (T, error) {
		var zero T
		return zero, err
	})
}

// Invoke runs the call and waits for its result.
func (t Task[T]) Invoke(ctx context.Context) (T, error) {
	if t.fn == nil {
		var zero T
		return zero, ErrUnbound
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return t.fn(ctx)
}

// Start runs the call in a new goroutine.
func (t Task[T]) Start(ctx context.Context) *Future[T] {
	return Go(ctx, Func[T](t.Invoke))
}

// ResultType returns the reflect.Type of T.
func (Task[T]) ResultType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (t *Task[T]) bind(fn func(ctx context.Context) (any, error)) {
	t.fn = func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		return cast[T](v, err)
	}
}

// Future is a call already in flight.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn in a new goroutine.
func Go[T any](ctx context.Context, fn Func[T]) *Future[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a settled future.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: v, err: err}
	close(f.done)
	return f
}

// Await blocks until the call settles or ctx is done. Cancelling ctx does
// not cancel the call itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if f == nil {
		var zero T
		return zero, ErrUnbound
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the call settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// ResultType returns the reflect.Type of T.
func (*Future[T]) ResultType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (f *Future[T]) start(ctx context.Context, fn func(ctx context.Context) (any, error)) {
	f.done = make(chan struct{})
	go func() {
		defer close(f.done)
		v, err := fn(ctx)
		f.value, f.err = cast[T](v, err)
	}()
}

func (f *Future[T]) settle(v any, err error) {
	f.done = make(chan struct{})
	f.value, f.err = cast[T](v, err)
	close(f.done)
}

// cast converts an untyped result. A value of another type becomes an
// error rather than a panic.
func cast[T any](v any, err error) (T, error) {
	var zero T
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("task: result is %T, want %s", v, reflect.TypeFor[T]())
	}
	return t, nil
}
