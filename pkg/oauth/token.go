package oauth

import (
	"time"

	"golang.org/x/oauth2"
)

// Token represents an issued OAuth access token with its metadata.
// It is the value cached per request identity after a successful flow.
type Token struct {
	// AccessToken is the bearer credential used for authorization.
	AccessToken string `json:"access_token"`

	// TokenType is the scheme prefix for the Authorization header,
	// typically "Bearer".
	TokenType string `json:"token_type"`

	// RefreshToken allows obtaining a new access token without
	// re-running the interactive flow (optional, never issued by the
	// implicit grant).
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the lifetime in seconds as reported by the token
	// endpoint.
	ExpiresIn int `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry, stamped when the token response
	// was read. A zero value means the token never expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Scope is the granted scope(s), if the provider reported them.
	Scope string `json:"scope,omitempty"`
}

// Type returns the token type, defaulting to "Bearer" when the provider
// omitted it.
func (t *Token) Type() string {
	if t.TokenType == "" {
		return "Bearer"
	}
	return t.TokenType
}

// IsExpired reports whether the token has expired, or will expire within
// the given margin. Tokens without an expiry never expire.
func (t *Token) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !time.Now().Add(margin).Before(t.ExpiresAt)
}

// ToOAuth2Token converts the token to a *oauth2.Token for use with the
// transport layer and other golang.org/x/oauth2 consumers.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.Type(),
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// FromOAuth2Token builds a Token from a *oauth2.Token.
func FromOAuth2Token(t *oauth2.Token) *Token {
	return &Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
}
