// Package middleware gates a locally served application shell with a goGate
// engine.
//
// [Guard] treats each request path as a navigation: it runs the route gate
// through Engine.Navigate, answers redirects with 303 See Other and passes
// allowed requests through with the [goGate.Decision] in their context.
//
// The engine holds one session, so Guard suits single-user shells such as a
// desktop webview or a development server, not multi-tenant HTTP services.
package middleware
