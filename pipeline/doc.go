// Package pipeline runs the stages of one remote call.
//
// Executor.Execute takes a bound call template and, strictly in order:
//
//  1. validates arguments against their validate rules
//  2. runs pre-request hooks
//  3. runs parameter hooks, by parameter then by declaration
//  4. begins global filters, then operation filters
//  5. reads the response cache when the cache hook allows it
//  6. sends through a leased transport under the send policy and timeout
//  7. ends filters in reverse begin order
//  8. writes fresh successful responses to the cache
//  9. extracts the result through the return hook
//
// A failing stage ends the call. Hook failures are wrapped in a new
// AppError carrying the operation and stage. Its code is PIPELINE_ERROR,
// or the code of an AppError found in the hook's error. Non-2xx responses
// become TRANSPORT_ERROR AppErrors wrapping an *httpclient.Error, unless
// the return tag says allow-error.
package pipeline
