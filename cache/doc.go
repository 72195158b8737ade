// Package cache stores snapshots of HTTP responses for operations tagged
// with `cache:"ttl"`.
//
// A Cache maps a request key to an Entry. Keys are computed by the cache
// hook; this package only stores and expires entries. Backends:
//
//   - Memory      in-process map, for tests and small clients
//   - BigCache    in-process sharded byte cache (allegro/bigcache)
//   - Redis       shared cache across processes (go-redis)
//
// Byte-oriented backends serialize entries with a Serializer. Wrap it with
// Sealed to encrypt entries at rest.
//
// Stores are looked up by name through a Registry, so a contract can pick
// one with `cache:"30s,store=shared"`.
package cache
