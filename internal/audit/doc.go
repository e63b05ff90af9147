// Package audit implements async dispatching of control-plane audit events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, no-op, func).
//   - [Dispatcher]: buffered async relay with drop-if-full or bounded blocking.
//   - [Event]: record of a login, logout, heal, expiry or impersonation step.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// events to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goGate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
