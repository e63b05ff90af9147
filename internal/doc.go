// Package internal holds goGate's private building blocks.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for the route gate and impersonation
//   - logging: slog construction from LoggingConfig
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGate API.
package internal
