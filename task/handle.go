package task

import "context"

type catchClause[T any] struct {
	pred     func(error) bool
	fallback func(ctx context.Context, err error) (T, error)
}

// HandleTask turns selected errors into fallback results.
type HandleTask[T any] struct {
	inner   Task[T]
	clauses []catchClause[T]
}

// Handle decorates t. Errors that no clause matches propagate unchanged.
func Handle[T any](t Task[T]) *HandleTask[T] {
	return &HandleTask[T]{inner: t}
}

// WhenCatch returns fallback(err) for errors matching pred.
func (h *HandleTask[T]) WhenCatch(pred func(error) bool, fallback func(error) T) *HandleTask[T] {
	h.clauses = append(h.clauses, catchClause[T]{
		pred: pred,
		fallback: func(_ context.Context, err error) (T, error) {
			return fallback(err), nil
		},
	})
	return h
}

// WhenCatchAsync runs fallback for errors matching pred; its result and
// error replace the original outcome.
func (h *HandleTask[T]) WhenCatchAsync(pred func(error) bool, fallback func(ctx context.Context, err error) (T, error)) *HandleTask[T] {
	h.clauses = append(h.clauses, catchClause[T]{pred: pred, fallback: fallback})
	return h
}

// Invoke runs the call. Clauses are tried in registration order.
func (h *HandleTask[T]) Invoke(ctx context.Context) (T, error) {
	v, err := h.inner.Invoke(ctx)
	if err == nil {
		return v, nil
	}
	for _, c := range h.clauses {
		if c.pred(err) {
			return c.fallback(ctx, err)
		}
	}
	return v, err
}

// Task returns the decorated call as a Task.
func (h *HandleTask[T]) Task() Task[T] {
	return New(h.Invoke)
}
