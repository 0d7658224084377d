// Package oauth provides the shared OAuth 2.0 primitives used by the
// postern auth core: PKCE verifier/challenge generation, state parameter
// generation, the token type cached per request, and a redaction wrapper
// that keeps token values out of log output.
//
// The package is deliberately free of I/O. Token endpoint communication,
// flow orchestration, and storage live in internal/auth; this package
// only defines the data and the crypto/random helpers they share.
package oauth
