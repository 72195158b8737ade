package proxy

import (
	"reflect"

	"github.com/kbukum/apikit/task"
)

// As converts an interceptor result to T. A nil result is the zero T.
func As[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	if t, ok := v.(T); ok {
		return t
	}
	rv := reflect.ValueOf(v)
	target := reflect.TypeFor[T]()
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target).Interface().(T)
	}
	var zero T
	return zero
}

// Task converts a deferred result, folding err into the task.
func Task[T any](v any, err error) task.Task[T] {
	if err != nil {
		return task.FromError[T](err)
	}
	return As[task.Task[T]](v)
}

// Future converts an eager result, folding err into a settled future.
func Future[T any](v any, err error) *task.Future[T] {
	if err != nil {
		var zero T
		return task.Resolved(zero, err)
	}
	if f := As[*task.Future[T]](v); f != nil {
		return f
	}
	var zero T
	return task.Resolved(zero, nil)
}

// valueOf converts v to a reflect.Value of type t.
func valueOf(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t || rv.Type().AssignableTo(t) {
		return rv
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	return reflect.Zero(t)
}
