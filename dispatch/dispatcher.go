package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/proxy"
	"github.com/kbukum/apikit/task"
)

// Executor runs one bound call.
type Executor interface {
	Execute(ctx context.Context, bound *contract.BoundAction) (any, error)
}

// Dispatcher routes the operations of one client.
type Dispatcher struct {
	templates *contract.Templates
	exec      Executor
	release   func()
	log       *logger.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	calls     atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRelease sets the function called once when the client is closed.
func WithRelease(fn func()) Option {
	return func(d *Dispatcher) { d.release = fn }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New creates a dispatcher.
func New(templates *contract.Templates, exec Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{templates: templates, exec: exec}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.NewNop()
	}
	return d
}

var _ proxy.Interceptor = (*Dispatcher)(nil)

// Intercept runs op with args. The returned value matches the operation's
// shape; see proxy.Interceptor.
func (d *Dispatcher) Intercept(_ any, op *contract.Operation, args []any) (any, error) {
	if op.Dispose {
		d.Close()
		return nil, nil
	}
	if d.closed.Load() {
		return nil, errors.ClientClosed(op.Contract.Name)
	}

	action, err := d.templates.Action(op)
	if err != nil {
		return nil, err
	}
	bound, err := action.Bind(args)
	if err != nil {
		return nil, errors.Internal(err).WithDetail(errors.DetailOperation, op.ID())
	}
	d.calls.Add(1)

	out := op.Func.Out(0)
	switch op.Shape() {
	case contract.ShapeDeferred:
		return task.MakeTask(out, d.deferred(bound))
	case contract.ShapeFuture:
		return task.StartFuture(out, bound.Context(), func(ctx context.Context) (any, error) {
			return d.exec.Execute(ctx, bound)
		})
	default:
		return d.exec.Execute(bound.Context(), bound)
	}
}

// deferred returns the invoker of a task. Each Invoke runs the call again
// under the Invoke context, which is also cancelled when the context
// given at declaration is done.
func (d *Dispatcher) deferred(bound *contract.BoundAction) task.Untyped {
	declared := bound.Context()
	return func(ctx context.Context) (any, error) {
		if d.closed.Load() {
			return nil, errors.ClientClosed(bound.Operation.Contract.Name)
		}
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)
		stop := context.AfterFunc(declared, func() { cancel(context.Cause(declared)) })
		defer stop()
		return d.exec.Execute(ctx, bound.WithContext(ctx))
	}
}

// Close marks the client closed and runs the release callback once. It
// reports whether this call closed it.
func (d *Dispatcher) Close() bool {
	first := false
	d.closeOnce.Do(func() {
		first = true
		d.closed.Store(true)
		if d.release != nil {
			d.release()
		}
		d.log.Debug("client closed", logger.Fields("calls", d.calls.Load()))
	})
	return first
}

// Closed reports whether the client was closed.
func (d *Dispatcher) Closed() bool { return d.closed.Load() }

// Calls returns how many calls were dispatched.
func (d *Dispatcher) Calls() int64 { return d.calls.Load() }
