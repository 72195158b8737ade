// Package dispatch connects generated clients to the call pipeline.
//
// A Dispatcher is the proxy.Interceptor of one client. It looks up the call
// template of the invoked operation, binds the call's arguments into a
// private copy and runs it through the pipeline in the form the operation
// declares: inline for (T, error) and error, as an unstarted task for
// task.Task[T], and on a new goroutine for *task.Future[T].
package dispatch
