// Package task provides deferred and eager call results for generated
// clients, and the Retry and Handle decorators that wrap them.
//
// A Task is a thunk: nothing is sent until Invoke. Operations that return a
// Task can therefore be decorated before any request leaves the process:
//
//	user, err := task.Retry(api.GetUserLazy(ctx, "42"), 3).
//	    WhenCatch(task.CatchAs[*httpclient.Error]()).
//	    WithDelay(func(i int) time.Duration { return time.Duration(i+1) * 100 * time.Millisecond }).
//	    Invoke(ctx)
//
// A Future is already running; Await blocks until it settles.
package task
