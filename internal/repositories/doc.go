// Package repositories implements persistence for the delivery cache.
//
// The [CacheStore] interface maps cache keys to delivery handles; a miss is
// (nil, nil), never an error. Three backends implement it:
//   - [SQLiteStore] : durable single-host store on the cache_entries table
//   - [RedisStore] : shared store for multi-process deployments
//   - [MemoryStore] : ephemeral store for tests and throwaway runs
//
// SQLite and memory additionally implement [Lister] for cache inspection.
// Put is always an upsert, so re-fetching an artifact silently replaces the
// previous handle.
package repositories
