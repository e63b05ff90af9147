// Package role provides the role registry, compact role sets and home-path
// lookup used by route classification and the navigation gate.
//
// # Role sets
//
// Each registered role owns one bit of a 64-bit [Set]. Bit positions are
// assigned by [Registry.Register] in registration order and are stable for the
// lifetime of the process.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import goGate, session or route.
package role
