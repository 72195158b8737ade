package contract

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	apierrors "github.com/kbukum/apikit/errors"
)

// OperationID keys the template cache.
type OperationID struct {
	Contract reflect.Type
	Index    int
}

type built struct {
	action *Action
	err    error
}

// Templates builds call templates on first use and keeps them for its own
// lifetime. Concurrent first calls for one operation share one build.
type Templates struct {
	resolver Resolver
	global   []Hook

	mu      sync.RWMutex
	actions map[OperationID]built
	group   singleflight.Group
	builds  atomic.Int64
}

// NewTemplates creates an empty cache. global hooks apply to every
// contract at contract level, after its tag hooks.
func NewTemplates(r Resolver, global ...Hook) *Templates {
	return &Templates{resolver: r, global: global, actions: make(map[OperationID]built)}
}

// Get returns the template of operation index of c.
func (t *Templates) Get(c *Contract, index int) (*Action, error) {
	if index < 0 || index >= len(c.Operations) {
		return nil, apierrors.Configurationf(c.Name, "", "operation index %d out of range", index)
	}
	return t.Action(c.Operations[index])
}

// Action returns the template of op, building it on first use. Build
// errors are cached like templates.
func (t *Templates) Action(op *Operation) (*Action, error) {
	id := OperationID{Contract: op.Contract.Type, Index: op.Index}
	t.mu.RLock()
	b, ok := t.actions[id]
	t.mu.RUnlock()
	if ok {
		return b.action, b.err
	}

	v, _, _ := t.group.Do(flightKey(id), func() (any, error) {
		t.mu.RLock()
		b, ok := t.actions[id]
		t.mu.RUnlock()
		if ok {
			return b, nil
		}
		t.builds.Add(1)
		action, err := t.build(op)
		b = built{action: action, err: err}
		t.mu.Lock()
		t.actions[id] = b
		t.mu.Unlock()
		return b, nil
	})
	b = v.(built)
	return b.action, b.err
}

// Prepare builds every operation of c and returns the first error.
func (t *Templates) Prepare(c *Contract) error {
	for _, op := range c.Operations {
		if op.Dispose {
			continue
		}
		if _, err := t.Action(op); err != nil {
			return err
		}
	}
	return nil
}

// Builds returns how many templates have been built.
func (t *Templates) Builds() int64 { return t.builds.Load() }

// Len returns the number of cached templates.
func (t *Templates) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.actions)
}

func (t *Templates) build(op *Operation) (*Action, error) {
	c := op.Contract
	if op.Dispose {
		return nil, op.configErr("Close has no template")
	}
	a := &Action{Operation: op, contextIndex: -1}

	method, path, err := methodOf(op.Tag)
	if err != nil {
		return nil, op.configErr(err.Error())
	}
	a.Method, a.Path = method, path

	contractHooks, err := t.levelHooks(c.Tag, false)
	if err != nil {
		return nil, op.configErr("contract tag: " + err.Error())
	}
	contractHooks = append(contractHooks, t.global...)
	opHooks, err := t.levelHooks(op.Tag, true)
	if err != nil {
		return nil, op.configErr(err.Error())
	}
	if p, ok := providerOf(c.Type); ok {
		contractHooks = append(contractHooks, p.ContractHooks()...)
		opHooks = append(opHooks, p.OperationHooks(op.Name)...)
	}

	ret := &Return{Shape: op.shape, Type: op.result}
	for _, h := range Merge(contractHooks, opHooks) {
		switch h := h.(type) {
		case ReturnHook:
			ret.Hook = h
		case CacheHook:
			a.Cache = h
		case FilterHook:
			a.Filters = append(a.Filters, h)
		case ActionHook:
			a.Hooks = append(a.Hooks, h)
		default:
			return nil, op.configErr(fmt.Sprintf("hook %T has no known kind", h))
		}
	}

	spec, err := ParseReturn(op.Tag.Get(TagReturn))
	if err != nil {
		return nil, op.configErr(err.Error())
	}
	ret.AllowError = spec.AllowError
	if ret.Hook == nil && op.shape != ShapeError {
		if ret.Hook, err = t.resolver.Return(spec); err != nil {
			return nil, op.configErr(err.Error())
		}
	}
	if ret.Validate, err = ParseBool(op.Tag.Get(TagValidateResult)); err != nil {
		return nil, op.configErr("validate-result: " + err.Error())
	}
	a.Return = ret

	if err := t.buildParameters(a); err != nil {
		return nil, err
	}
	return a, nil
}

func methodOf(tag reflect.StructTag) (method, path string, err error) {
	for _, m := range Methods {
		if p, ok := tag.Lookup(m); ok {
			if method != "" {
				return "", "", fmt.Errorf("both %s and %s declared", method, m)
			}
			method, path = m, p
		}
	}
	if method == "" {
		return "", "", fmt.Errorf("no HTTP method declared, add one of %s", strings.Join(Methods, ", "))
	}
	return method, path, nil
}

// levelHooks resolves the hook keys valid at both levels, plus cache for
// operations. Order follows the key order below, then list order.
func (t *Templates) levelHooks(tag reflect.StructTag, operation bool) ([]Hook, error) {
	var hooks []Hook
	if v, ok := tag.Lookup(TagHost); ok {
		h, err := t.resolver.Action(TagHost, v)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	if v, ok := tag.Lookup(TagHeader); ok {
		pairs, err := ParseHeaders(v)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			h, err := t.resolver.Action(TagHeader, p[0]+": "+p[1])
			if err != nil {
				return nil, err
			}
			hooks = append(hooks, h)
		}
	}
	if v, ok := tag.Lookup(TagTimeout); ok {
		h, err := t.resolver.Action(TagTimeout, v)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	for _, name := range splitList(tag.Get(TagHook), ",") {
		h, err := t.resolver.NamedAction(name)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	for _, name := range splitList(tag.Get(TagFilter), ",") {
		h, err := t.resolver.Filter(name)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	if v, ok := tag.Lookup(TagCache); ok && operation {
		spec, err := ParseCache(v)
		if err != nil {
			return nil, err
		}
		h, err := t.resolver.Cache(spec)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}

func (t *Templates) buildParameters(a *Action) error {
	op := a.Operation
	specs, err := ParseParams(op.Tag.Get(TagParams))
	if err != nil {
		return op.configErr(err.Error())
	}
	rules, err := ParseRules(op.Tag.Get(TagValidate))
	if err != nil {
		return op.configErr(err.Error())
	}

	next := 0
	for i := range op.Func.NumIn() {
		pt := op.Func.In(i)
		p := &Parameter{Index: i, Type: pt}
		if pt == contextType {
			if a.contextIndex >= 0 {
				return op.configErr("more than one context.Context parameter")
			}
			p.IsContext, p.Name = true, "ctx"
			a.contextIndex = i
			a.Parameters = append(a.Parameters, p)
			continue
		}

		spec := ParamSpec{Name: fmt.Sprintf("arg%d", next)}
		if next < len(specs) {
			spec = specs[next]
		}
		next++
		p.Name = spec.Name
		if len(spec.Bindings) == 0 {
			spec.Bindings = []ParamBinding{{Kind: KindPathQuery}}
		}
		for _, b := range spec.Bindings {
			h, err := t.resolver.Parameter(b.Kind, b.Alias)
			if err != nil {
				return op.configErr(fmt.Sprintf("parameter %s: %v", p.Name, err))
			}
			if tc, ok := h.(TypeChecker); ok {
				if err := tc.CheckType(pt); err != nil {
					return op.configErr(fmt.Sprintf("parameter %s: %v", p.Name, err))
				}
			}
			p.Hooks = append(p.Hooks, h)
		}
		if r, ok := rules[p.Name]; ok {
			p.Rules = r
			delete(rules, p.Name)
		}
		a.Parameters = append(a.Parameters, p)
	}
	if next < len(specs) {
		return op.configErr(fmt.Sprintf("params declares %d names for %d arguments", len(specs), next))
	}
	for name := range rules {
		return op.configErr(fmt.Sprintf("validate names unknown parameter %s", name))
	}
	return nil
}

func flightKey(id OperationID) string {
	return fmt.Sprintf("%s#%d", typeKey(id.Contract), id.Index)
}

func providerOf(t reflect.Type) (HookProvider, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if p, ok := reflect.Zero(t).Interface().(HookProvider); ok {
		return p, true
	}
	if p, ok := reflect.New(t).Interface().(HookProvider); ok {
		return p, true
	}
	return nil, false
}
