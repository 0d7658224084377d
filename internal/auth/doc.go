// Package auth implements request authentication for postern: the
// credential config model, the OAuth2 grant flows, the pending
// authorization registry that correlates provider redirects, the
// in-memory token cache, and the request decorator.
//
// The package splits along trust boundaries. Decorate is pure and
// touches no I/O; TokenClient talks to token endpoints; Surface owns
// the browser and loopback callback server; Service composes them and
// is the only type callers outside this package need.
package auth
