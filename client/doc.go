// Package client is the HTTP request client used by rendered views.
//
// # Deduplication and caching
//
// Concurrent GETs with the same request key share one network call. A
// settled GET is cached for a TTL, bounded by an LRU. Mutations always reach
// the network and never touch the cache.
//
// # Cancellation
//
// Every call takes a context. A caller whose context ends stops waiting at
// once. The shared fetch runs detached from any single caller and is cancelled
// only when every waiter has gone; an abandoned fetch never populates the cache.
//
// The client never retries.
package client
