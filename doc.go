// Package goGate is the client-side session and authorization control plane
// of the performance-review application.
//
// On every navigation [Engine.Evaluate] decides whether the caller may see a
// path or must be redirected (login, role home, unauthorized). Outgoing API
// calls go through [Engine.Client], which attaches the bearer token,
// deduplicates concurrent GETs and caches their responses. A super
// administrator can impersonate a tenant with [Engine.EnterImpersonation] and
// return with [Engine.ExitImpersonation]; the exit is a two-phase protocol
// persisted in the session store so a crash between phases is finished by the
// next gate evaluation.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface: [Engine], [Builder], [Config], [Decision] and
// the audit and metrics types. Rule evaluation lives in internal/flows; typed
// persistence in session over the kv backends; route and role tables in route
// and role; network calls in client.
//
// # What this package must NOT do
//
//   - Render pages or perform navigations itself; it returns decisions.
//   - Retry failed requests.
//   - Import any sub-package that re-imports goGate (no import cycles).
package goGate
