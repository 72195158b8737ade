// Package contract describes declarative API contracts and caches the
// per-operation call templates built from them.
//
// A Contract is the analysed form of a contract type: its ordered
// operations plus the contract-level tag. Templates turns an Operation into
// an immutable Action on first use, resolving tag keys into hooks through a
// Resolver. Calls never mutate an Action; each call binds its arguments
// into a BoundAction and carries its mutable state in a CallContext.
//
// Hook kinds:
//
//   - ActionHook     mutates the request before parameters are bound
//   - ParameterHook  maps one argument onto the request
//   - FilterHook     wraps the call (begin before send, end after)
//   - CacheHook      decides cache key, lifetime and read/write policy
//   - ReturnHook     turns the response into the declared result
//
// When the same hook appears at contract and operation level, Merge
// decides which ones survive.
package contract
