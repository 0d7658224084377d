package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth failure taxonomy. Callers distinguish
// outcomes with errors.Is / errors.As; none of these are retried
// internally.
var (
	// ErrConfigInvalid marks a malformed or incomplete auth config.
	ErrConfigInvalid = errors.New("auth config invalid")

	// ErrCryptoUnavailable marks an unusable entropy source. Fatal to
	// the flow that needed it.
	ErrCryptoUnavailable = errors.New("crypto entropy source unavailable")

	// ErrProviderBlocked marks a redirect wait that expired. The usual
	// cause is a provider that refuses to render in the embedded
	// surface; callers may retry with a browser window surface.
	ErrProviderBlocked = errors.New("authorization surface blocked or timed out")

	// ErrUserCancelled marks an authorization aborted by the user.
	ErrUserCancelled = errors.New("authorization cancelled")

	// ErrStateMismatch marks a redirect callback whose state matches no
	// pending authorization. The message is dropped; this error never
	// rejects an unrelated pending flow.
	ErrStateMismatch = errors.New("redirect state matches no pending authorization")

	// ErrTokenRequired marks decoration attempted with an OAuth2 config
	// and no valid cached token. This is a caller contract violation:
	// run the flow first.
	ErrTokenRequired = errors.New("no valid cached token; run the authorization flow first")

	// ErrDuplicateState marks an attempt to register a pending
	// authorization under a state that is already in flight.
	ErrDuplicateState = errors.New("state already pending")
)

// ConfigError describes which config field failed validation. It
// unwraps to ErrConfigInvalid.
type ConfigError struct {
	Field  string
	Reason string
}

func newConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("auth config invalid: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfigInvalid).
func (*ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// ProviderError is an error reported by the authorization provider in
// the redirect (the standard error / error_description parameters).
type ProviderError struct {
	Code        string
	Description string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider returned %q: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("provider returned %q", e.Code)
}

// TokenExchangeError is a failed token endpoint exchange: a non-2xx
// status or an unparseable response body.
type TokenExchangeError struct {
	Status int
	Body   string
}

// Error implements the error interface. The body is included because
// token endpoints put the actionable OAuth error code there.
func (e *TokenExchangeError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("token exchange failed with status %d", e.Status)
}
