// Package kv defines the persisted key-value contract the session control plane is built on.
//
// A [Store] is the Go-side stand-in for browser-persisted storage: string keys, string values,
// synchronous visibility of writes, and two atomic primitives the control plane relies on:
//
//   - [Store.Apply] commits a batch of set/delete operations as one unit, so a reader never
//     observes a token without its user or a half-written impersonation handoff.
//   - [Store.Take] reads and deletes a single key in one step, so a one-shot marker is consumed
//     exactly once even when several evaluations race across processes.
//
// # Implementations
//
//   - memory: mutex-guarded map, used by tests and single-process embedding.
//   - redisstore: Redis via go-redis (MULTI/EXEC batches, Lua get-and-delete).
//   - boltstore: single-file bbolt database; survives process restarts.
//
// # What this package must NOT do
//
//   - Interpret values (JSON parsing belongs to the session package).
//   - Import session, client, or goGate.
package kv
