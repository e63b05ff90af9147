// Package session provides typed persistence for the client session, the
// impersonation context and the exit-transition marker over a [kv.Store].
//
// # Self-healing reads
//
// Every read validates what it finds. A token without a user, a user without a
// token, an unparseable user payload or an impersonation context that breaks
// its invariant is removed atomically and reported as absent. The optional
// [HealFunc] is told about each repair.
//
// # Atomicity
//
// Multi-key writes (session pair, impersonation begin, exit phase 1) go through
// one [kv.Store.Apply] batch so no reader ever sees half of an update. The exit
// marker is consumed with [kv.Store.Take], so exactly one reader observes it.
//
// # What this package must NOT do
//
//   - Import goGate, route or client (no upward imports).
//   - Decide whether a navigation is allowed.
//   - Touch keys outside its own prefix.
package session
