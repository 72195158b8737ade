package proxy

import (
	"context"
	"reflect"
	"sync"

	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/task"
)

// Interceptor receives every operation call of a generated client.
//
// For ShapeSync the result is the T value, for ShapeError it is ignored,
// for ShapeDeferred it is a task.Task[T] and for ShapeFuture a
// *task.Future[T].
type Interceptor interface {
	Intercept(target any, op *contract.Operation, args []any) (any, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(target any, op *contract.Operation, args []any) (any, error)

func (f InterceptorFunc) Intercept(target any, op *contract.Operation, args []any) (any, error) {
	return f(target, op, args)
}

var (
	errorType = reflect.TypeFor[error]()
	baseType  = reflect.TypeFor[Base]()
)

// Generator creates clients. Contract analysis is cached per type.
type Generator struct {
	stubs     *StubRegistry
	contracts sync.Map // reflect.Type -> *contract.Contract
}

// NewGenerator creates a generator resolving interface contracts through
// stubs, or DefaultStubs when nil.
func NewGenerator(stubs *StubRegistry) *Generator {
	if stubs == nil {
		stubs = DefaultStubs
	}
	return &Generator{stubs: stubs}
}

// Contract returns the analysed contract of t.
func (g *Generator) Contract(t reflect.Type) (*contract.Contract, error) {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		t = t.Elem()
	}
	if c, ok := g.contracts.Load(t); ok {
		return c.(*contract.Contract), nil
	}

	var (
		c   *contract.Contract
		err error
	)
	switch t.Kind() {
	case reflect.Struct:
		c, err = contract.Analyze(t)
	case reflect.Interface:
		stub, ok := g.stubs.Lookup(t)
		if !ok {
			return nil, errors.Configuration(t.String(), "", "no generated stub registered, run apikit-gen on the package declaring it")
		}
		c, err = contract.FromInterface(t, stub.Tag, stub.Operations)
	default:
		return nil, errors.Configuration(t.String(), "", "contract must be a struct or an interface")
	}
	if err != nil {
		return nil, err
	}
	actual, _ := g.contracts.LoadOrStore(t, c)
	return actual.(*contract.Contract), nil
}

// Generate creates a client of t forwarding to ic. For struct contracts
// the value is a pointer to the struct; for interface contracts it holds
// the stub.
func (g *Generator) Generate(t reflect.Type, ic Interceptor) (reflect.Value, *contract.Contract, error) {
	c, err := g.Contract(t)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	if c.Type.Kind() == reflect.Interface {
		v, err := g.instantiateStub(c, ic)
		return v, c, err
	}
	return synthesize(c, ic), c, nil
}

func (g *Generator) instantiateStub(c *contract.Contract, ic Interceptor) (reflect.Value, error) {
	stub, _ := g.stubs.Lookup(c.Type)
	inst := stub.New(ic, c.Operations)
	if inst == nil || !reflect.TypeOf(inst).Implements(c.Type) {
		return reflect.Value{}, errors.Configurationf(c.Name, "", "stub %T does not implement %s", inst, c.Type)
	}
	v := reflect.New(c.Type).Elem()
	v.Set(reflect.ValueOf(inst))
	return v, nil
}

func synthesize(c *contract.Contract, ic Interceptor) reflect.Value {
	ptr := reflect.New(c.Type)
	v := ptr.Elem()
	target := ptr.Interface()

	for _, op := range c.Operations {
		fn := reflect.MakeFunc(op.Func, func(in []reflect.Value) []reflect.Value {
			args := make([]any, len(in))
			for i, a := range in {
				args[i] = a.Interface()
			}
			res, err := ic.Intercept(target, op, args)
			return results(op, res, err)
		})
		v.FieldByName(op.Name).Set(fn)
	}

	for i := range c.Type.NumField() {
		f := c.Type.Field(i)
		if f.Anonymous && f.Type == baseType {
			dispose := c.Dispose()
			v.Field(i).Addr().Interface().(*Base).bind(func() error {
				_, err := ic.Intercept(target, dispose, nil)
				return err
			})
		}
	}
	return ptr
}

func results(op *contract.Operation, res any, err error) []reflect.Value {
	errV := reflect.Zero(errorType)
	if err != nil {
		errV = reflect.ValueOf(&err).Elem()
	}
	switch op.Shape() {
	case contract.ShapeError:
		return []reflect.Value{errV}
	case contract.ShapeSync:
		return []reflect.Value{valueOf(op.Func.Out(0), res), errV}
	}

	out := op.Func.Out(0)
	if err != nil {
		var failed any
		if op.Shape() == contract.ShapeDeferred {
			failed, _ = task.MakeTask(out, func(ctx context.Context) (any, error) { return nil, err })
		} else {
			failed, _ = task.SettledFuture(out, nil, err)
		}
		return []reflect.Value{valueOf(out, failed)}
	}
	return []reflect.Value{valueOf(out, res)}
}
