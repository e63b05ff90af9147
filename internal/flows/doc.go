// Package flows contains pure-function orchestrators for the Engine's gate
// and impersonation operations.
//
// Each flow function (RunGate, RunEnter, RunExit) accepts a typed dependency
// struct and returns a result value. Side effects happen only through those
// dependencies, so every rule can be tested with a fake store and plain funcs.
//
// # Architecture boundaries
//
// Flows coordinate the session store, route classifier, role registry and
// token inspector. They do NOT own any of these resources, and they do not
// emit metrics, audit events or logs; the Engine maps results onto those.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goGate (to avoid import cycles).
//   - Serialize callers; the Engine's latches do that.
package flows
