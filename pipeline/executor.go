package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/kbukum/apikit/cache"
	"github.com/kbukum/apikit/codec"
	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/lifecycle"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/resilience"
	"github.com/kbukum/apikit/validation"
)

// Stage names reported in pipeline error details.
const (
	StageValidate  = "validate"
	StageRequest   = "request"
	StageParameter = "parameter"
	StageBegin     = "begin"
	StageCache     = "cache"
	StageSend      = "send"
	StageEnd       = "end"
	StageReturn    = "return"
)

// Handles hands out transport leases per contract.
type Handles interface {
	Acquire(key string) (*lifecycle.Lease, error)
}

// Executor runs the stages of one call.
type Executor struct {
	handles Handles
	caches  *cache.Registry
	codecs  *codec.Registry
	filters []contract.FilterHook
	policy  *resilience.Policy
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithFilters appends global filters. They begin before operation filters
// and end after them.
func WithFilters(f ...contract.FilterHook) Option {
	return func(e *Executor) { e.filters = append(e.filters, f...) }
}

// WithPolicy guards every send.
func WithPolicy(p *resilience.Policy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithTimeout sets the default per-call timeout. 0 leaves calls bounded
// by their context only.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithCaches sets the response cache stores.
func WithCaches(r *cache.Registry) Option {
	return func(e *Executor) { e.caches = r }
}

// WithCodecs sets the codec registry given to hooks.
func WithCodecs(r *codec.Registry) Option {
	return func(e *Executor) { e.codecs = r }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Executor) { e.log = log.WithComponent("pipeline") }
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor sending through handles.
func New(handles Handles, opts ...Option) *Executor {
	e := &Executor{handles: handles, log: logger.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.codecs == nil {
		e.codecs = codec.NewRegistry()
	}
	if e.caches == nil {
		e.caches = cache.NewRegistry()
	}
	return e
}

// Execute runs one call of bound under ctx and returns the extracted
// result. Every stage completes before the next starts; the first error
// ends the call.
func (e *Executor) Execute(ctx context.Context, bound *contract.BoundAction) (any, error) {
	cc := contract.NewCallContext(bound, e.codecs, e.log)
	cc.Context = ctx
	op := bound.Operation.ID()

	for _, p := range bound.Parameters {
		if p.IsContext || p.Rules == "" {
			continue
		}
		if err := validation.Var(p.Name, bound.Value(p), p.Rules); err != nil {
			return nil, errors.ParameterInvalid(op, p.Name, err)
		}
	}

	for _, h := range bound.Hooks {
		if err := h.OnRequest(cc); err != nil {
			return nil, e.fail(cc, StageRequest, h, err)
		}
	}

	for _, p := range bound.Parameters {
		if p.IsContext {
			continue
		}
		arg := bound.Argument(p)
		for _, h := range p.Hooks {
			if err := h.OnParameter(cc, arg); err != nil {
				return nil, e.fail(cc, StageParameter, h, err).WithDetail(errors.DetailParameter, p.Name)
			}
		}
	}

	filters := make([]contract.FilterHook, 0, len(e.filters)+len(bound.Filters))
	filters = append(filters, e.filters...)
	filters = append(filters, bound.Filters...)
	for i, f := range filters {
		if err := f.OnBegin(cc); err != nil {
			cc.Err = e.fail(cc, StageBegin, f, err)
			e.unwind(cc, filters[:i])
			return nil, cc.Err
		}
	}

	store, policy, err := e.readCache(cc)
	if err != nil {
		return nil, err
	}

	if cc.Response == nil {
		cc.Err = e.send(cc)
	}

	for i := len(filters) - 1; i >= 0; i-- {
		if err := filters[i].OnEnd(cc); err != nil {
			return nil, e.fail(cc, StageEnd, filters[i], err)
		}
	}
	if cc.Err != nil {
		return nil, cc.Err
	}

	if policy.Write && !cc.Response.FromCache && cc.Response.IsSuccess() {
		e.writeCache(cc, store)
	}

	ret := bound.Return
	if !cc.Response.IsSuccess() && !ret.AllowError {
		herr := httpclient.ResponseError(cc.Response)
		return nil, errors.Transport(op, cc.Response.StatusCode, herr.Retryable, herr)
	}
	if ret.Hook == nil {
		return nil, nil
	}
	res, err := ret.Hook.OnReturn(cc)
	if err != nil {
		return nil, e.fail(cc, StageReturn, ret.Hook, err)
	}
	if res != nil && ret.Type != nil && !reflect.TypeOf(res).AssignableTo(ret.Type) {
		return nil, e.fail(cc, StageReturn, ret.Hook, fmt.Errorf("return hook produced %T, want %s", res, ret.Type))
	}
	if ret.Validate {
		if err := validation.Struct(res); err != nil {
			return nil, errors.ResultInvalid(op, err)
		}
	}
	cc.Result = res
	return res, nil
}

// unwind ends filters that began before a later one failed. Their errors
// are logged; the begin error is what the caller sees.
func (e *Executor) unwind(cc *contract.CallContext, begun []contract.FilterHook) {
	for i := len(begun) - 1; i >= 0; i-- {
		if err := begun[i].OnEnd(cc); err != nil {
			e.log.Warn("filter end failed", e.fields(cc, logger.FieldStage, StageEnd, logger.FieldError, err.Error()))
		}
	}
}

func (e *Executor) readCache(cc *contract.CallContext) (cache.Cache, contract.CachePolicy, error) {
	h := cc.Action.Cache
	if h == nil {
		return nil, contract.CachePolicy{}, nil
	}
	policy := h.Policy(cc)
	if !policy.Read && !policy.Write {
		return nil, policy, nil
	}
	key, err := h.Key(cc)
	if err != nil {
		return nil, policy, e.fail(cc, StageCache, h, err)
	}
	cc.CacheKey = key
	store, err := e.caches.Get(h.Store())
	if err != nil {
		return nil, policy, e.fail(cc, StageCache, h, err)
	}
	if !policy.Read {
		return store, policy, nil
	}

	entry, err := store.Get(cc.Context, key)
	switch {
	case err != nil:
		// a failing store is a miss
		e.log.Warn("cache read failed", e.fields(cc, logger.FieldError, err.Error()))
	case entry != nil && !entry.Expired(e.now()):
		cc.Response = entry.Response()
		e.log.Debug("cache hit", e.fields(cc))
	}
	return store, policy, nil
}

func (e *Executor) writeCache(cc *contract.CallContext, store cache.Cache) {
	ttl := cc.Action.Cache.TTL()
	entry := cache.FromResponse(cc.CacheKey, cc.Response, ttl, e.now())
	if err := store.Set(cc.Context, cc.CacheKey, entry, ttl); err != nil {
		e.log.Warn("cache write failed", e.fields(cc, logger.FieldError, err.Error()))
	}
}

func (e *Executor) send(cc *contract.CallContext) error {
	op := cc.Operation().ID()
	ctx := cc.Context
	timeout := cc.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lease, err := e.handles.Acquire(cc.Operation().Contract.Key())
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return err
		}
		return errors.Transport(op, 0, false, err)
	}
	defer lease.Release()

	req, err := cc.Request.Build(ctx)
	if err != nil {
		return errors.Pipeline(op, StageSend, err)
	}
	err = e.policy.Do(ctx, func(ctx context.Context) error {
		resp, err := lease.Transport().Send(ctx, req)
		if err != nil {
			return err
		}
		cc.Response = resp
		return nil
	})
	switch {
	case err == nil:
		return nil
	case httpclient.IsTimeout(err), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(op, err)
	case stderrors.Is(err, resilience.ErrCircuitOpen), stderrors.Is(err, resilience.ErrBulkheadFull),
		stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return errors.New(errors.ErrCodeServiceUnavailable, "send rejected").
			WithCause(err).WithDetail(errors.DetailOperation, op)
	case stderrors.Is(err, resilience.ErrRateLimited):
		return errors.New(errors.ErrCodeRateLimited, "send rejected").
			WithCause(err).WithDetail(errors.DetailOperation, op)
	}
	return errors.Transport(op, httpclient.StatusCode(err), httpclient.IsRetryable(err), err)
}

// fail wraps a hook error in a new PIPELINE_ERROR carrying the call's
// details. When the chain holds an AppError its code, status and
// retryability are copied; the hook's error itself is never modified.
func (e *Executor) fail(cc *contract.CallContext, stage string, hook any, err error) *errors.AppError {
	op := cc.Operation().ID()
	e.log.Debug("stage failed", e.fields(cc, logger.FieldStage, stage, logger.FieldError, err.Error()))
	out := errors.Pipeline(op, stage, err).WithDetail(errors.DetailHook, fmt.Sprintf("%T", hook))
	if inner, ok := errors.AsAppError(err); ok {
		out.Code, out.Retryable, out.HTTPStatus = inner.Code, inner.Retryable, inner.HTTPStatus
		for k, v := range inner.Details {
			if _, set := out.Details[k]; !set {
				out.Details[k] = v
			}
		}
	}
	return out
}

func (e *Executor) fields(cc *contract.CallContext, kvs ...any) map[string]any {
	f := logger.CallFields(cc.Operation().Contract.Name, cc.Operation().Name)
	if cc.CacheKey != "" {
		f[logger.FieldCacheKey] = cc.CacheKey
	}
	for k, v := range logger.Fields(kvs...) {
		f[k] = v
	}
	return f
}
