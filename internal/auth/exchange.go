package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"postern/pkg/logging"
	"postern/pkg/oauth"
)

// maxTokenResponseSize caps how much of a token endpoint response is
// read, preventing a hostile endpoint from exhausting memory.
const maxTokenResponseSize = 1 << 20 // 1MB

// HTTPDoer is the slice of http.Client the token client needs. The
// transport layer satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenClient performs the synchronous grant exchanges against a token
// endpoint. The implicit grant never goes through here; its token
// arrives directly in the redirect.
type TokenClient struct {
	http HTTPDoer
}

// NewTokenClient creates a token client. A nil doer falls back to a
// plain 30-second-timeout http.Client.
func NewTokenClient(doer HTTPDoer) *TokenClient {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenClient{http: doer}
}

// Exchange POSTs the form-encoded grant parameters to the token URL and
// parses the JSON token response. The absolute expiry is stamped from
// expires_in after the response has been read, which absorbs clock skew
// conservatively. Non-2xx statuses and malformed bodies fail with
// *TokenExchangeError.
func (c *TokenClient) Exchange(ctx context.Context, tokenURL string, params url.Values) (*oauth.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	// expiresAt is computed from the time of request completion, not
	// issuance.
	completedAt := time.Now()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug("TokenClient", "Token exchange failed: status=%d", resp.StatusCode)
		return nil, &TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	var token oauth.Token
	if err := json.Unmarshal(body, &token); err != nil {
		logging.Debug("TokenClient", "Token response unparseable: %v", err)
		return nil, &TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}
	if token.AccessToken == "" {
		return nil, &TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if token.ExpiresIn > 0 && token.ExpiresAt.IsZero() {
		token.ExpiresAt = completedAt.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	logging.Debug("TokenClient", "Token exchange succeeded (grant=%s, token=%s, expires_in=%d)",
		params.Get("grant_type"), oauth.Redact(token.AccessToken), token.ExpiresIn)

	return &token, nil
}

// ClientCredentialsGrant builds the form parameters for the
// client_credentials grant.
func ClientCredentialsGrant(cfg *OAuth2ClientCredentialsConfig) url.Values {
	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", cfg.ClientID)
	params.Set("client_secret", cfg.ClientSecret)
	if cfg.Scope != "" {
		params.Set("scope", cfg.Scope)
	}
	if cfg.Audience != "" {
		params.Set("audience", cfg.Audience)
	}
	return params
}

// PasswordGrant builds the form parameters for the resource owner
// password grant.
func PasswordGrant(cfg *OAuth2PasswordConfig) url.Values {
	params := url.Values{}
	params.Set("grant_type", "password")
	params.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		params.Set("client_secret", cfg.ClientSecret)
	}
	params.Set("username", cfg.Username)
	params.Set("password", cfg.Password)
	if cfg.Scope != "" {
		params.Set("scope", cfg.Scope)
	}
	return params
}

// AuthorizationCodeGrant builds the form parameters for redeeming an
// authorization code. codeVerifier is included only when PKCE was used
// in the authorization request.
func AuthorizationCodeGrant(cfg *OAuth2AuthorizationCodeConfig, code, codeVerifier string) url.Values {
	params := url.Values{}
	params.Set("grant_type", "authorization_code")
	params.Set("code", code)
	params.Set("redirect_uri", cfg.RedirectURI)
	params.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		params.Set("client_secret", cfg.ClientSecret)
	}
	if codeVerifier != "" {
		params.Set("code_verifier", codeVerifier)
	}
	return params
}

// RefreshGrant builds the form parameters for refreshing an access
// token. Renewal is always caller-initiated; nothing in the flow
// orchestrator refreshes silently.
func RefreshGrant(clientID, clientSecret, refreshToken string) url.Values {
	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("refresh_token", refreshToken)
	params.Set("client_id", clientID)
	if clientSecret != "" {
		params.Set("client_secret", clientSecret)
	}
	return params
}
