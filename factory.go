package apikit

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/cache"
	"github.com/kbukum/apikit/codec"
	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/dispatch"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/hooks"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/lifecycle"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/pipeline"
	"github.com/kbukum/apikit/proxy"
	"github.com/kbukum/apikit/resilience"
)

// Client is embedded first in struct contracts. Its tag holds the
// contract-level hooks and its Close marks the client closed.
type Client = proxy.Base

// Factory creates clients sharing one template cache, transport pool and
// set of response caches. It is safe for concurrent use.
type Factory struct {
	cfg       Config
	log       *logger.Logger
	hooks     *hooks.Registry
	tokens    *auth.Registry
	generator *proxy.Generator
	templates *contract.Templates
	handles   *lifecycle.Manager
	caches    *cache.Registry
	exec      *pipeline.Executor
	providers []shutdowner
	cancel    context.CancelFunc

	clients   atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

type options struct {
	log       *logger.Logger
	hooks     *hooks.Registry
	stubs     *proxy.StubRegistry
	filters   []contract.FilterHook
	global    []contract.Hook
	transport lifecycle.Factory
	caches    *cache.Registry
	codecs    *codec.Registry
	policy    *resilience.Policy
	tokens    map[string]auth.TokenSource
	handleOps []lifecycle.Option
}

// Option configures a Factory.
type Option func(*options)

// WithLogger sets the logger. Defaults to one built from Config.Logging.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHooks replaces the hook registry resolving tags.
func WithHooks(r *hooks.Registry) Option {
	return func(o *options) { o.hooks = r }
}

// WithStubs sets the registry of generated interface stubs.
func WithStubs(r *proxy.StubRegistry) Option {
	return func(o *options) { o.stubs = r }
}

// WithFilters adds filters around every call of every client.
func WithFilters(f ...contract.FilterHook) Option {
	return func(o *options) { o.filters = append(o.filters, f...) }
}

// WithGlobalHooks adds contract-level hooks to every contract. A keyed
// hook declared in a contract tag wins over a global one.
func WithGlobalHooks(h ...contract.Hook) Option {
	return func(o *options) { o.global = append(o.global, h...) }
}

// WithTransport replaces the transport created per contract.
func WithTransport(f lifecycle.Factory) Option {
	return func(o *options) { o.transport = f }
}

// WithCaches replaces the stores built from Config.Cache.
func WithCaches(r *cache.Registry) Option {
	return func(o *options) { o.caches = r }
}

// WithCodec registers c in addition to the built-in codecs.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if o.codecs == nil {
			o.codecs = codec.NewRegistry()
		}
		o.codecs.Register(c)
	}
}

// WithPolicy replaces the send policy built from Config.Resilience.
func WithPolicy(p *resilience.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithTokenSource makes src available to filter tags under name. Tokens
// are cached until shortly before they expire.
func WithTokenSource(name string, src auth.TokenSource) Option {
	return func(o *options) {
		if o.tokens == nil {
			o.tokens = make(map[string]auth.TokenSource)
		}
		o.tokens[name] = src
	}
}

// WithHandleOptions passes options to the transport pool.
func WithHandleOptions(opts ...lifecycle.Option) Option {
	return func(o *options) { o.handleOps = append(o.handleOps, opts...) }
}

const (
	tokenSkew      = 30 * time.Second
	telemetryFlush = 5 * time.Second
)

// New creates a Factory from cfg.
func New(cfg Config, opts ...Option) (*Factory, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(cfg.Name, "", err.Error()).WithCause(err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New(&cfg.Logging, cfg.Name)
	}
	log := o.log.WithComponent("apikit")
	if o.hooks == nil {
		o.hooks = hooks.NewRegistry(hooks.WithLogger(o.log))
	}

	f := &Factory{cfg: cfg, log: log, hooks: o.hooks, tokens: auth.NewRegistry()}
	for name, src := range o.tokens {
		cached := auth.Cache(src, tokenSkew)
		f.tokens.Register(name, cached)
		if err := o.hooks.RegisterFilter(name, &hooks.TokenFilter{Source: cached}); err != nil {
			return nil, err
		}
	}

	global, filters, err := f.globalHooks()
	if err != nil {
		return nil, err
	}
	global = append(global, o.global...)
	filters = append(filters, o.filters...)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	if cfg.Telemetry.Enabled {
		tf, err := f.telemetry(ctx)
		if err != nil {
			cancel()
			return nil, err
		}
		filters = append([]contract.FilterHook{tf}, filters...)
	}
	f.caches = o.caches
	if f.caches == nil {
		if f.caches, err = cache.FromConfig(ctx, cfg.Cache, cache.WithLogger(o.log.WithComponent("cache"))); err != nil {
			_ = f.shutdownTelemetry(ctx)
			cancel()
			return nil, err
		}
	}

	transport := o.transport
	if transport == nil {
		tc := cfg.Transport
		transport = func(string) (httpclient.Transport, error) { return httpclient.NewHandle(tc) }
	}
	handleOps := append([]lifecycle.Option{lifecycle.WithLogger(o.log)}, o.handleOps...)
	if f.handles, err = lifecycle.New(cfg.Handles, transport, handleOps...); err != nil {
		_ = f.caches.Close()
		_ = f.shutdownTelemetry(ctx)
		cancel()
		return nil, err
	}

	policy := o.policy
	if policy == nil {
		policy = cfg.Resilience.policy(cfg.Name)
	}
	f.generator = proxy.NewGenerator(o.stubs)
	f.templates = contract.NewTemplates(o.hooks, global...)
	f.exec = pipeline.New(f.handles,
		pipeline.WithFilters(filters...),
		pipeline.WithPolicy(policy),
		pipeline.WithTimeout(max(cfg.Timeout, 0)),
		pipeline.WithCaches(f.caches),
		pipeline.WithCodecs(o.codecs),
		pipeline.WithLogger(o.log),
	)
	log.Debug("factory ready", logger.Fields("name", cfg.Name, "base_url", cfg.BaseURL))
	return f, nil
}

// globalHooks turns the host, user agent and auth settings into hooks.
func (f *Factory) globalHooks() ([]contract.Hook, []contract.FilterHook, error) {
	var (
		global  []contract.Hook
		filters []contract.FilterHook
	)
	if f.cfg.BaseURL != "" {
		h, err := hooks.NewHost(f.cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		global = append(global, h)
	}
	global = append(global, &hooks.UserAgent{Value: f.cfg.UserAgent})
	if f.cfg.Auth.JWT != nil {
		src, err := auth.NewJWTSource(f.cfg.Auth.JWT)
		if err != nil {
			return nil, nil, err
		}
		cached := auth.Cache(src, tokenSkew)
		f.tokens.Register("jwt", cached)
		filters = append(filters, &hooks.TokenFilter{Source: cached})
		return global, filters, nil
	}
	ac, err := f.cfg.Auth.static()
	if err != nil {
		return nil, nil, err
	}
	if ac != nil {
		global = append(global, &hooks.Auth{Config: ac})
	}
	return global, filters, nil
}

// Create returns a client of contract T. T is a pointer to a struct
// contract or an interface with a generated stub.
func Create[T any](f *Factory) (T, error) {
	var zero T
	v, err := f.create(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func (f *Factory) create(t reflect.Type) (reflect.Value, error) {
	if f.closed.Load() {
		return reflect.Value{}, errors.ClientClosed(t.String())
	}
	if t.Kind() == reflect.Struct {
		return reflect.Value{}, errors.Configurationf(t.String(), "", "create *%s, not the struct value", t.Name())
	}
	c, err := f.generator.Contract(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if f.cfg.EagerTemplates {
		if err := f.templates.Prepare(c); err != nil {
			return reflect.Value{}, err
		}
	}

	f.clients.Add(1)
	d := dispatch.New(f.templates, f.exec,
		dispatch.WithLogger(f.log.WithFields(logger.Fields(logger.FieldContract, c.Name))),
		dispatch.WithRelease(func() { f.clients.Add(-1) }),
	)
	v, _, err := f.generator.Generate(t, d)
	if err != nil {
		d.Close()
		return reflect.Value{}, err
	}
	f.log.Debug("client created", logger.Fields(logger.FieldContract, c.Name, "operations", len(c.Operations)))
	return v, nil
}

// Stats is a snapshot of a factory.
type Stats struct {
	// Clients counts clients created and not yet closed.
	Clients int64
	// Templates counts cached call templates, failed builds included.
	Templates int
	// Builds counts template builds.
	Builds  int64
	Handles lifecycle.Stats
}

// Stats returns a snapshot of the factory.
func (f *Factory) Stats() Stats {
	return Stats{
		Clients:   f.clients.Load(),
		Templates: f.templates.Len(),
		Builds:    f.templates.Builds(),
		Handles:   f.handles.Stats(),
	}
}

// Hooks returns the registry resolving tags. Hooks registered after a
// template was built do not affect it.
func (f *Factory) Hooks() *hooks.Registry { return f.hooks }

// TokenSource returns the token source registered under name.
func (f *Factory) TokenSource(name string) (auth.TokenSource, error) { return f.tokens.Get(name) }

// Collector exposes the transport pool to Prometheus.
func (f *Factory) Collector() *lifecycle.Collector { return lifecycle.NewCollector(f.handles) }

// Close disposes the transport pool and the response caches. Clients
// created by f fail afterwards.
func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlush)
		defer cancel()
		f.closeErr = stderrors.Join(f.handles.Close(), f.caches.Close(), f.shutdownTelemetry(ctx))
		f.cancel()
		f.log.Debug("factory closed", logger.Fields("clients", f.clients.Load()))
	})
	return f.closeErr
}
