package proxy

import (
	"reflect"
	"sync"

	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
)

// StubFactory creates a stub bound to ic. ops are the contract's
// operations in declaration order.
type StubFactory func(ic Interceptor, ops []*contract.Operation) any

// Stub is a generated implementation of an interface contract.
type Stub struct {
	// Tag holds the contract-level hooks.
	Tag reflect.StructTag
	// Operations lists every method in declaration order.
	Operations []contract.OperationSpec
	New        StubFactory
}

// StubRegistry maps interface types to generated stubs.
type StubRegistry struct {
	mu    sync.RWMutex
	stubs map[reflect.Type]Stub
}

// NewStubRegistry creates an empty registry.
func NewStubRegistry() *StubRegistry {
	return &StubRegistry{stubs: make(map[reflect.Type]Stub)}
}

// DefaultStubs receives the stubs registered by generated code.
var DefaultStubs = NewStubRegistry()

// Register adds the stub of interface type t.
func (r *StubRegistry) Register(t reflect.Type, s Stub) error {
	if t.Kind() != reflect.Interface {
		return errors.Configuration(t.String(), "", "stubs can only be registered for interfaces")
	}
	if s.New == nil {
		return errors.Configuration(t.String(), "", "stub has no constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stubs[t]; ok {
		return errors.Configuration(t.String(), "", "stub is already registered")
	}
	r.stubs[t] = s
	return nil
}

// Lookup returns the stub of t.
func (r *StubRegistry) Lookup(t reflect.Type) (Stub, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stubs[t]
	return s, ok
}

// RegisterStub registers the stub of T in DefaultStubs. Generated init
// functions call it; it panics on conflicts.
func RegisterStub[T any](s Stub) {
	if err := DefaultStubs.Register(reflect.TypeFor[T](), s); err != nil {
		panic(err)
	}
}
