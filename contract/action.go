package contract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Parameter is the template of one operation argument.
type Parameter struct {
	// Index is the position in the argument list.
	Index int
	Name  string
	Type  reflect.Type
	// IsContext marks the context.Context argument, which has no hooks.
	IsContext bool
	Hooks     []ParameterHook
	// Rules are validator rules checked before the request is built.
	Rules string
}

// Return describes how the result reaches the caller.
type Return struct {
	Shape Shape
	// Type is T, or nil for ShapeError.
	Type reflect.Type
	Hook ReturnHook
	// Validate runs struct validation on the result.
	Validate bool
	// AllowError passes non-2xx responses to Hook.
	AllowError bool
}

// Action is the immutable call template of one operation. It is shared by
// all calls and must not be modified after Templates returns it.
type Action struct {
	Operation  *Operation
	Method     string
	Path       string
	Parameters []*Parameter
	// Hooks are pre-request hooks in merged order.
	Hooks   []ActionHook
	Filters []FilterHook
	Cache   CacheHook
	Return  *Return

	contextIndex int
}

// Name returns the operation name.
func (a *Action) Name() string { return a.Operation.Name }

// BoundAction is an Action with one call's arguments. Each call gets its
// own, so concurrent calls never share argument state.
type BoundAction struct {
	*Action
	values []any
	ctx    context.Context
	replay *replay
}

// replay remembers how to resend reader arguments.
type replay struct {
	mu      sync.Mutex
	offsets map[string]int64
	data    map[string][]byte
}

// Bind copies args into a new BoundAction. The context argument, if any,
// becomes the call context.
func (a *Action) Bind(args []any) (*BoundAction, error) {
	if len(args) != len(a.Parameters) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", a.Operation.ID(), len(a.Parameters), len(args))
	}
	b := &BoundAction{Action: a, values: append([]any(nil), args...), ctx: context.Background(), replay: &replay{}}
	if a.contextIndex >= 0 {
		if ctx, ok := args[a.contextIndex].(context.Context); ok && ctx != nil {
			b.ctx = ctx
		}
	}
	return b, nil
}

// Context returns the context argument, or context.Background().
func (b *BoundAction) Context() context.Context { return b.ctx }

// Value returns the argument bound to p.
func (b *BoundAction) Value(p *Parameter) any { return b.values[p.Index] }

// Lookup returns the argument of the named parameter.
func (b *BoundAction) Lookup(name string) (any, bool) {
	for _, p := range b.Parameters {
		if p.Name == name && !p.IsContext {
			return b.values[p.Index], true
		}
	}
	return nil, false
}

// Argument returns what a parameter hook sees for p.
func (b *BoundAction) Argument(p *Parameter) Argument {
	return Argument{Name: p.Name, Type: p.Type, Value: b.values[p.Index]}
}

// WithContext returns a copy of b bound to ctx. Deferred calls use it to
// attach the context passed to Invoke.
func (b *BoundAction) WithContext(ctx context.Context) *BoundAction {
	c := *b
	c.ctx = ctx
	return &c
}

// Reader returns the reader argument name positioned so that every run of
// this bound call sends the same content. A seeker is rewound to where the
// first run found it; any other reader is read into memory on first use.
// Runs of one bound call must not overlap while they hold the reader.
func (b *BoundAction) Reader(name string, r io.Reader) (io.Reader, error) {
	rp := b.replay
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if s, ok := r.(io.Seeker); ok {
		if off, seen := rp.offsets[name]; seen {
			if _, err := s.Seek(off, io.SeekStart); err != nil {
				return nil, fmt.Errorf("rewind %s: %w", name, err)
			}
			return r, nil
		}
		off, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("position of %s: %w", name, err)
		}
		if rp.offsets == nil {
			rp.offsets = make(map[string]int64)
		}
		rp.offsets[name] = off
		return r, nil
	}
	if data, seen := rp.data[name]; seen {
		return bytes.NewReader(data), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if rp.data == nil {
		rp.data = make(map[string][]byte)
	}
	rp.data[name] = data
	return bytes.NewReader(data), nil
}
