package hooks

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
)

// Built-in hook names.
const (
	NameRequestID = "requestid"
	NameUserAgent = "useragent"
	NameLogging   = "logging"
)

// ParameterFactory creates the hook of one parameter kind. alias is the
// part after '=' in the params tag and may be empty.
type ParameterFactory func(alias string) (contract.ParameterHook, error)

// Registry resolves tag values into hooks. Named hooks and filters are
// shared by every operation that names them and must be safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]contract.ActionHook
	filters map[string]contract.FilterHook
	params  map[string]ParameterFactory
	log     *logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger of the built-in logging filter.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry returns a registry holding the built-in hooks and every
// parameter kind.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]contract.ActionHook),
		filters: make(map[string]contract.FilterHook),
		params:  make(map[string]ParameterFactory),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.actions[NameRequestID] = &RequestID{}
	r.actions[NameUserAgent] = &UserAgent{}
	r.filters[NameLogging] = NewLoggingFilter(r.log)

	bind := func(alias string) binding { return binding{Alias: alias} }
	r.params[contract.KindPath] = func(a string) (contract.ParameterHook, error) { return &Path{bind(a)}, nil }
	r.params[contract.KindQuery] = func(a string) (contract.ParameterHook, error) { return &Query{bind(a)}, nil }
	r.params[contract.KindPathQuery] = func(a string) (contract.ParameterHook, error) { return &PathQuery{bind(a)}, nil }
	r.params[contract.KindHeader] = func(a string) (contract.ParameterHook, error) { return &HeaderParam{bind(a)}, nil }
	r.params[contract.KindForm] = func(a string) (contract.ParameterHook, error) { return &FormBody{bind(a)}, nil }
	r.params[contract.KindFormData] = func(a string) (contract.ParameterHook, error) { return &FormData{bind(a)}, nil }
	r.params[contract.KindFile] = func(a string) (contract.ParameterHook, error) { return &File{bind(a)}, nil }
	r.params[contract.KindRaw] = func(a string) (contract.ParameterHook, error) { return &Raw{bind(a)}, nil }
	r.params[contract.KindTimeout] = func(a string) (contract.ParameterHook, error) { return &TimeoutParam{bind(a)}, nil }
	for _, format := range []string{contract.KindJSON, contract.KindXML, contract.KindYAML, contract.KindProto} {
		r.params[format] = func(a string) (contract.ParameterHook, error) {
			return &Body{binding: bind(a), Format: format}, nil
		}
	}
	return r
}

// RegisterHook makes h available to hook tags under name.
func (r *Registry) RegisterHook(name string, h contract.ActionHook) error {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[name]; ok {
		return errors.Configurationf("", "", "hook %q is already registered", name)
	}
	r.actions[name] = h
	return nil
}

// RegisterFilter makes f available to filter tags under name.
func (r *Registry) RegisterFilter(name string, f contract.FilterHook) error {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.filters[name]; ok {
		return errors.Configurationf("", "", "filter %q is already registered", name)
	}
	r.filters[name] = f
	return nil
}

// RegisterParameter adds a parameter kind.
func (r *Registry) RegisterParameter(kind string, f ParameterFactory) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.params[kind]; ok {
		return errors.Configurationf("", "", "parameter kind %q is already registered", kind)
	}
	r.params[kind] = f
	return nil
}

// Names returns the registered hook and filter names, sorted.
func (r *Registry) Names() (hooks, filters []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for n := range r.actions {
		hooks = append(hooks, n)
	}
	for n := range r.filters {
		filters = append(filters, n)
	}
	sort.Strings(hooks)
	sort.Strings(filters)
	return hooks, filters
}

func (r *Registry) Action(key, value string) (contract.ActionHook, error) {
	switch key {
	case contract.TagHost:
		return NewHost(value)
	case contract.TagHeader:
		return NewHeader(value)
	case contract.TagTimeout:
		return NewTimeout(value)
	}
	return nil, fmt.Errorf("no action for tag %q", key)
}

func (r *Registry) NamedAction(name string) (contract.ActionHook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.actions[strings.ToLower(name)]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("unknown hook %q", name)
}

func (r *Registry) Filter(name string) (contract.FilterHook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.filters[strings.ToLower(name)]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("unknown filter %q", name)
}

func (r *Registry) Parameter(kind, alias string) (contract.ParameterHook, error) {
	r.mu.RLock()
	f, ok := r.params[strings.ToLower(kind)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown parameter kind %q", kind)
	}
	return f(alias)
}

func (r *Registry) Return(spec contract.ReturnSpec) (contract.ReturnHook, error) {
	return &Return{Spec: spec}, nil
}

func (r *Registry) Cache(spec contract.CacheSpec) (contract.CacheHook, error) {
	if spec.TTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &Cache{Spec: spec}, nil
}

var _ contract.Resolver = (*Registry)(nil)
