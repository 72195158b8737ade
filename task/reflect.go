package task

import (
	"context"
	"fmt"
	"reflect"
)

// Untyped is the invocation shape used by generated clients, which only
// know the result type at run time.
type Untyped func(ctx context.Context) (any, error)

type deferred interface {
	ResultType() reflect.Type
	bind(fn func(ctx context.Context) (any, error))
}

type eager interface {
	ResultType() reflect.Type
	start(ctx context.Context, fn func(ctx context.Context) (any, error))
	settle(v any, err error)
}

var (
	deferredType = reflect.TypeFor[deferred]()
	eagerType    = reflect.TypeFor[eager]()
)

// IsTask reports whether t is an instantiation of Task.
func IsTask(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(deferredType)
}

// IsFuture reports whether t is a pointer to an instantiation of Future.
func IsFuture(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct && t.Implements(eagerType)
}

// ResultTypeOf returns T for Task[T] and *Future[T], or nil.
func ResultTypeOf(t reflect.Type) reflect.Type {
	switch {
	case IsTask(t):
		return reflect.Zero(t).Interface().(interface{ ResultType() reflect.Type }).ResultType()
	case IsFuture(t):
		return reflect.New(t.Elem()).Interface().(eager).ResultType()
	}
	return nil
}

// MakeTask returns a Task of type t, which must satisfy IsTask, bound to fn.
// fn must yield values assignable to the task's T.
func MakeTask(t reflect.Type, fn Untyped) (any, error) {
	if !IsTask(t) {
		return nil, fmt.Errorf("task: %s is not a Task type", t)
	}
	ptr := reflect.New(t)
	ptr.Interface().(deferred).bind(fn)
	return ptr.Elem().Interface(), nil
}

// StartFuture starts fn and returns a Future of type t, which must satisfy IsFuture.
func StartFuture(t reflect.Type, ctx context.Context, fn Untyped) (any, error) {
	if !IsFuture(t) {
		return nil, fmt.Errorf("task: %s is not a Future type", t)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	f := reflect.New(t.Elem()).Interface().(eager)
	f.start(ctx, fn)
	return f, nil
}

// SettledFuture returns an already settled Future of type t.
func SettledFuture(t reflect.Type, v any, err error) (any, error) {
	if !IsFuture(t) {
		return nil, fmt.Errorf("task: %s is not a Future type", t)
	}
	f := reflect.New(t.Elem()).Interface().(eager)
	f.settle(v, err)
	return f, nil
}
