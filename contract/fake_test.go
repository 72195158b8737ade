package contract

import (
	"fmt"
	"reflect"
	"time"
)

type fakeAction struct {
	key, value string
	multiple   bool
}

func (h *fakeAction) AllowMultiple() bool         { return h.multiple }
func (h *fakeAction) HookKey() string             { return h.key }
func (h *fakeAction) OnRequest(*CallContext) error { return nil }

type fakeFilter struct{ name string }

func (*fakeFilter) AllowMultiple() bool         { return true }
func (*fakeFilter) OnBegin(*CallContext) error { return nil }
func (*fakeFilter) OnEnd(*CallContext) error   { return nil }

type fakeParam struct {
	kind, alias string
}

func (*fakeParam) AllowMultiple() bool                       { return true }
func (*fakeParam) OnParameter(*CallContext, Argument) error { return nil }

// timeoutParam only accepts durations.
type timeoutParam struct{ fakeParam }

func (*timeoutParam) CheckType(t reflect.Type) error {
	if t != reflect.TypeFor[time.Duration]() {
		return fmt.Errorf("%s is not a time.Duration", t)
	}
	return nil
}

type fakeReturn struct{ spec ReturnSpec }

func (*fakeReturn) AllowMultiple() bool                  { return false }
func (*fakeReturn) HookKey() string                      { return "return" }
func (*fakeReturn) OnReturn(*CallContext) (any, error) { return nil, nil }

type fakeCache struct{ spec CacheSpec }

func (*fakeCache) AllowMultiple() bool                       { return false }
func (*fakeCache) HookKey() string                           { return "cache" }
func (c *fakeCache) Policy(*CallContext) CachePolicy         { return CachePolicy{Read: c.spec.Read, Write: c.spec.Write} }
func (*fakeCache) Key(*CallContext) (string, error)          { return "k", nil }
func (c *fakeCache) TTL() time.Duration                      { return c.spec.TTL }
func (c *fakeCache) Store() string                           { return c.spec.Store }

type fakeResolver struct{}

func (fakeResolver) Action(key, value string) (ActionHook, error) {
	return &fakeAction{key: key, value: value, multiple: key == TagHeader}, nil
}

func (fakeResolver) NamedAction(name string) (ActionHook, error) {
	if name == "missing" {
		return nil, fmt.Errorf("hook %q not registered", name)
	}
	return &fakeAction{key: "named:" + name, value: name}, nil
}

func (fakeResolver) Filter(name string) (FilterHook, error) { return &fakeFilter{name: name}, nil }

func (fakeResolver) Parameter(kind, alias string) (ParameterHook, error) {
	switch kind {
	case KindTimeout:
		return &timeoutParam{fakeParam{kind: kind, alias: alias}}, nil
	case "bogus":
		return nil, fmt.Errorf("unknown parameter kind %q", kind)
	}
	return &fakeParam{kind: kind, alias: alias}, nil
}

func (fakeResolver) Return(spec ReturnSpec) (ReturnHook, error) { return &fakeReturn{spec: spec}, nil }

func (fakeResolver) Cache(spec CacheSpec) (CacheHook, error) { return &fakeCache{spec: spec}, nil }
