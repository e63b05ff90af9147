// Package token inspects bearer tokens held by the session so expired JWTs can
// be dropped before they reach the backend. It also carries a small signer used
// by development backends and tests.
package token
