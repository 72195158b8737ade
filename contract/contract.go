package contract

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	apierrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/task"
)

// Shape is how an operation hands its result to the caller.
type Shape int

const (
	// ShapeError is func(...) error.
	ShapeError Shape = iota
	// ShapeSync is func(...) (T, error).
	ShapeSync
	// ShapeDeferred is func(...) task.Task[T]; nothing runs until Invoke.
	ShapeDeferred
	// ShapeFuture is func(...) *task.Future[T]; the call starts at once.
	ShapeFuture
)

func (s Shape) String() string {
	switch s {
	case ShapeError:
		return "error"
	case ShapeSync:
		return "sync"
	case ShapeDeferred:
		return "task"
	case ShapeFuture:
		return "future"
	}
	return "unknown"
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// DisposeName is the operation that releases a client.
const DisposeName = "Close"

// Contract is the analysed form of a contract type.
type Contract struct {
	Name string
	Type reflect.Type
	// Tag carries contract-level hooks.
	Tag        reflect.StructTag
	Operations []*Operation

	dispose *Operation
}

// Operation is one declared remote operation. Index is the binding between
// generated stubs and cached templates.
type Operation struct {
	Contract *Contract
	Index    int
	Name     string
	// Func is the operation's signature without receiver.
	Func reflect.Type
	Tag  reflect.StructTag
	// Dispose marks the Close() error operation.
	Dispose bool

	shape  Shape
	result reflect.Type
}

// Shape returns the result shape.
func (o *Operation) Shape() Shape { return o.shape }

// ResultType returns T for (T, error), Task[T] and *Future[T], or nil.
func (o *Operation) ResultType() reflect.Type { return o.result }

// ID returns a printable identity such as "UserAPI.GetUser".
func (o *Operation) ID() string { return o.Contract.Name + "." + o.Name }

// OperationSpec describes an interface method in declaration order. The
// stub generator emits these because reflection sorts interface methods.
type OperationSpec struct {
	Name string
	Tag  reflect.StructTag
}

// Analyze builds the Contract of a struct contract type. Exported func
// fields are operations in declaration order; the tag of the first
// embedded field holds contract-level hooks.
func Analyze(t reflect.Type) (*Contract, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, apierrors.Configuration(t.String(), "", "contract must be a struct or an interface")
	}
	c := &Contract{Name: contractName(t), Type: t}
	if err := checkGeneric(c); err != nil {
		return nil, err
	}

	tagged := false
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous {
			if !tagged {
				c.Tag, tagged = f.Tag, true
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if f.Type.Kind() != reflect.Func {
			return nil, apierrors.Configuration(c.Name, f.Name, "property-style fields are not supported, declare a func field")
		}
		op := &Operation{Contract: c, Index: len(c.Operations), Name: f.Name, Func: f.Type, Tag: f.Tag}
		if err := op.analyze(); err != nil {
			return nil, err
		}
		c.Operations = append(c.Operations, op)
	}
	c.findDispose()
	return c, nil
}

// FromInterface builds the Contract of an interface contract type. specs
// lists every method in declaration order.
func FromInterface(t reflect.Type, tag reflect.StructTag, specs []OperationSpec) (*Contract, error) {
	if t.Kind() != reflect.Interface {
		return nil, apierrors.Configuration(t.String(), "", "not an interface type")
	}
	c := &Contract{Name: contractName(t), Type: t, Tag: tag}
	if err := checkGeneric(c); err != nil {
		return nil, err
	}
	if len(specs) != t.NumMethod() {
		return nil, apierrors.Configurationf(c.Name, "", "stub lists %d operations, interface has %d", len(specs), t.NumMethod())
	}
	for i, s := range specs {
		m, ok := t.MethodByName(s.Name)
		if !ok {
			return nil, apierrors.Configuration(c.Name, s.Name, "method not found on interface")
		}
		op := &Operation{Contract: c, Index: i, Name: s.Name, Func: m.Type, Tag: s.Tag}
		if err := op.analyze(); err != nil {
			return nil, err
		}
		c.Operations = append(c.Operations, op)
	}
	c.findDispose()
	return c, nil
}

// Dispose returns the declared Close operation, or a synthetic one with
// Index -1 when the contract declares none.
func (c *Contract) Dispose() *Operation { return c.dispose }

func (c *Contract) findDispose() {
	for _, op := range c.Operations {
		if op.Dispose {
			c.dispose = op
			return
		}
	}
	c.dispose = &Operation{
		Contract: c, Index: -1, Name: DisposeName,
		Func: reflect.TypeFor[func() error](), Dispose: true, shape: ShapeError,
	}
}

// Key identifies the contract type across packages.
func (c *Contract) Key() string { return typeKey(c.Type) }

func typeKey(t reflect.Type) string { return t.PkgPath() + "." + t.String() }

// Operation returns the operation with the given name.
func (c *Contract) Operation(name string) (*Operation, bool) {
	for _, op := range c.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

func contractName(t reflect.Type) string {
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func checkGeneric(c *Contract) error {
	if strings.Contains(c.Type.Name(), "[") {
		return apierrors.Configuration(c.Name, "", "generic contract types are not supported")
	}
	return nil
}

// analyze classifies the signature and rejects unsupported shapes.
func (o *Operation) analyze() error {
	ft := o.Func
	if o.Name == DisposeName {
		if ft.NumIn() != 0 || ft.NumOut() != 1 || ft.Out(0) != errorType {
			return o.configErr("Close must be declared as func() error")
		}
		o.Dispose, o.shape = true, ShapeError
		return nil
	}
	if ft.NumIn() == 0 && ft.NumOut() == 1 && ft.Out(0) != errorType &&
		!task.IsTask(ft.Out(0)) && !task.IsFuture(ft.Out(0)) {
		return o.configErr("property-style accessors are not supported")
	}
	if ft.IsVariadic() {
		return o.configErr("variadic parameters are not supported")
	}
	for i := range ft.NumIn() {
		if err := checkParam(ft.In(i)); err != nil {
			return o.configErr(fmt.Sprintf("parameter %d: %v", i, err))
		}
	}

	switch {
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		o.shape = ShapeError
	case ft.NumOut() == 1 && task.IsTask(ft.Out(0)):
		o.shape, o.result = ShapeDeferred, task.ResultTypeOf(ft.Out(0))
	case ft.NumOut() == 1 && task.IsFuture(ft.Out(0)):
		o.shape, o.result = ShapeFuture, task.ResultTypeOf(ft.Out(0))
	case ft.NumOut() == 2 && ft.Out(1) == errorType && !task.IsTask(ft.Out(0)) && !task.IsFuture(ft.Out(0)):
		o.shape, o.result = ShapeSync, ft.Out(0)
	default:
		return o.configErr("return must be error, (T, error), task.Task[T] or *task.Future[T]")
	}
	return nil
}

func checkParam(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Chan, reflect.Func:
		return fmt.Errorf("%s is passed by reference", t)
	case reflect.UnsafePointer:
		return fmt.Errorf("unsafe.Pointer is not supported")
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Pointer {
			return fmt.Errorf("%s is a pointer to a pointer", t)
		}
	}
	return nil
}

func (o *Operation) configErr(reason string) error {
	return apierrors.Configuration(o.Contract.Name, o.Name, reason)
}
