package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"postern/pkg/logging"
	"postern/pkg/oauth"
)

// FlowState is the orchestrator's position in a grant flow.
type FlowState int

const (
	StateIdle FlowState = iota
	StateBuildingRequest
	StateAwaitingRedirect
	StateExchangingToken
	StateComplete
	StateFailed
	StateCancelled
)

// String makes FlowState satisfy fmt.Stringer.
func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingRequest:
		return "building-request"
	case StateAwaitingRedirect:
		return "awaiting-redirect"
	case StateExchangingToken:
		return "exchanging-token"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// terminal reports whether the state ends a flow.
func (s FlowState) terminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

// Flow runs one grant for one request identity. A Flow is single-use:
// it reaches exactly one terminal state per Run, and performs no
// automatic retries — a failed exchange stays failed until the caller
// initiates a new flow.
type Flow struct {
	requestID string
	config    *Config

	tokens   *TokenStore
	client   *TokenClient
	surface  Surface
	pending  *PendingAuths
	redirect time.Duration

	mu        sync.Mutex
	state     FlowState
	authState string // correlation state token, set while a redirect is pending
}

// NewFlow builds a flow for the given OAuth2 config. The config must
// already be validated and variable-interpolated.
func NewFlow(requestID string, cfg *Config, tokens *TokenStore, client *TokenClient,
	surface Surface, pending *PendingAuths, redirectWait time.Duration) *Flow {
	return &Flow{
		requestID: requestID,
		config:    cfg,
		tokens:    tokens,
		client:    client,
		surface:   surface,
		pending:   pending,
		redirect:  redirectWait,
		state:     StateIdle,
	}
}

// State returns the flow's current state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// AuthState returns the correlation state token while a redirect is
// pending, for use with AbortPendingAuth. Empty otherwise.
func (f *Flow) AuthState() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authState
}

// Run executes the grant and caches the resulting token under the
// flow's request identity. The returned error carries the taxonomy
// kind: ErrProviderBlocked, ErrUserCancelled, *ProviderError,
// *TokenExchangeError, ErrStateMismatch, ErrCryptoUnavailable, or
// *ConfigError.
func (f *Flow) Run(ctx context.Context) (*oauth.Token, error) {
	switch f.config.Type {
	case TypeOAuth2ClientCredentials:
		return f.runClientCredentials(ctx)
	case TypeOAuth2Password:
		return f.runPassword(ctx)
	case TypeOAuth2AuthorizationCode:
		return f.runAuthorizationCode(ctx)
	case TypeOAuth2Implicit:
		return f.runImplicit(ctx)
	default:
		return nil, f.fail(newConfigError("type",
			fmt.Sprintf("type %q has no token flow", f.config.Type)))
	}
}

func (f *Flow) runClientCredentials(ctx context.Context) (*oauth.Token, error) {
	cfg := f.config.OAuth2ClientCredentials
	f.transition(StateBuildingRequest)
	params := ClientCredentialsGrant(cfg)

	f.transition(StateExchangingToken)
	token, err := f.client.Exchange(ctx, cfg.TokenURL, params)
	if err != nil {
		return nil, f.fail(err)
	}

	return f.complete(token)
}

func (f *Flow) runPassword(ctx context.Context) (*oauth.Token, error) {
	cfg := f.config.OAuth2Password
	f.transition(StateBuildingRequest)
	params := PasswordGrant(cfg)

	f.transition(StateExchangingToken)
	token, err := f.client.Exchange(ctx, cfg.TokenURL, params)
	if err != nil {
		return nil, f.fail(err)
	}

	return f.complete(token)
}

func (f *Flow) runAuthorizationCode(ctx context.Context) (*oauth.Token, error) {
	cfg := f.config.OAuth2AuthorizationCode
	f.transition(StateBuildingRequest)

	state, err := oauth.GenerateState()
	if err != nil {
		return nil, f.fail(fmt.Errorf("%w: %v", ErrCryptoUnavailable, err))
	}

	var pkce *oauth.PKCEChallenge
	if cfg.UsePKCE {
		pkce, err = oauth.GeneratePKCE()
		if err != nil {
			return nil, f.fail(fmt.Errorf("%w: %v", ErrCryptoUnavailable, err))
		}
	}

	authURL, err := buildAuthorizationCodeURL(cfg, state, pkce)
	if err != nil {
		return nil, f.fail(err)
	}

	result, err := f.awaitRedirect(ctx, state, authURL)
	if err != nil {
		return nil, err // awaitRedirect already set the terminal state
	}

	if result.Code == "" {
		return nil, f.fail(&ProviderError{Code: "invalid_response",
			Description: "redirect carried no authorization code"})
	}

	f.transition(StateExchangingToken)
	verifier := ""
	if pkce != nil {
		verifier = pkce.CodeVerifier
	}
	token, err := f.client.Exchange(ctx, cfg.TokenURL, AuthorizationCodeGrant(cfg, result.Code, verifier))
	if err != nil {
		return nil, f.fail(err)
	}

	return f.complete(token)
}

func (f *Flow) runImplicit(ctx context.Context) (*oauth.Token, error) {
	cfg := f.config.OAuth2Implicit
	f.transition(StateBuildingRequest)

	state, err := oauth.GenerateState()
	if err != nil {
		return nil, f.fail(fmt.Errorf("%w: %v", ErrCryptoUnavailable, err))
	}

	authURL, err := buildImplicitURL(cfg, state)
	if err != nil {
		return nil, f.fail(err)
	}

	result, err := f.awaitRedirect(ctx, state, authURL)
	if err != nil {
		return nil, err
	}

	if result.AccessToken == "" {
		return nil, f.fail(&ProviderError{Code: "invalid_response",
			Description: "redirect fragment carried no access token"})
	}

	// The token is taken from the redirect as-is: no exchange, no
	// client secret exposure, and no refresh token.
	token := oauth.FromOAuth2Token(&oauth2.Token{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
	token.ExpiresIn = result.ExpiresIn
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}

	return f.complete(token)
}

// awaitRedirect arms the capture channel, opens the surface, and blocks
// for the provider redirect. On any error the flow is already in its
// terminal state when this returns.
func (f *Flow) awaitRedirect(ctx context.Context, state, authURL string) (*CallbackResult, error) {
	if err := f.pending.Register(state); err != nil {
		return nil, f.fail(err)
	}

	f.mu.Lock()
	f.authState = state
	f.mu.Unlock()

	f.transition(StateAwaitingRedirect)
	if err := f.surface.Open(ctx, authURL); err != nil {
		f.pending.Abort(state)
		return nil, f.fail(err)
	}

	result, err := f.pending.Await(ctx, state, f.redirect)

	f.mu.Lock()
	f.authState = ""
	f.mu.Unlock()

	if err != nil {
		return nil, f.fail(err)
	}

	if result.IsError() {
		return nil, f.fail(&ProviderError{Code: result.Error, Description: result.ErrorDescription})
	}

	return result, nil
}

func buildAuthorizationCodeURL(cfg *OAuth2AuthorizationCodeConfig, state string, pkce *oauth.PKCEChallenge) (string, error) {
	u, err := url.Parse(cfg.AuthorizationURL)
	if err != nil {
		return "", newConfigError("oauth2AuthorizationCode.authorizationUrl", err.Error())
	}

	query := u.Query()
	query.Set("response_type", "code")
	query.Set("client_id", cfg.ClientID)
	query.Set("redirect_uri", cfg.RedirectURI)
	query.Set("state", state)
	if cfg.Scope != "" {
		query.Set("scope", cfg.Scope)
	}
	if pkce != nil {
		query.Set("code_challenge", pkce.CodeChallenge)
		query.Set("code_challenge_method", pkce.CodeChallengeMethod)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func buildImplicitURL(cfg *OAuth2ImplicitConfig, state string) (string, error) {
	u, err := url.Parse(cfg.AuthorizationURL)
	if err != nil {
		return "", newConfigError("oauth2Implicit.authorizationUrl", err.Error())
	}

	query := u.Query()
	query.Set("response_type", "token")
	query.Set("client_id", cfg.ClientID)
	query.Set("redirect_uri", cfg.RedirectURI)
	query.Set("state", state)
	if cfg.Scope != "" {
		query.Set("scope", cfg.Scope)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// transition moves to a non-terminal state. Transitions out of a
// terminal state are ignored; a flow ends exactly once.
func (f *Flow) transition(next FlowState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.terminal() {
		return
	}
	logging.Debug("Flow", "request=%s %s -> %s",
		logging.TruncateID(f.requestID), f.state, next)
	f.state = next
}

// fail moves to the failed or cancelled terminal state, picking
// cancelled for user-initiated aborts, and passes the error through.
func (f *Flow) fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.terminal() {
		return err
	}

	next := StateFailed
	if isCancellation(err) {
		next = StateCancelled
	}
	logging.Debug("Flow", "request=%s %s -> %s: %v",
		logging.TruncateID(f.requestID), f.state, next, err)
	f.state = next
	return err
}

// complete stores the token and moves to the complete terminal state.
func (f *Flow) complete(token *oauth.Token) (*oauth.Token, error) {
	f.tokens.Set(f.requestID, token)

	f.mu.Lock()
	if !f.state.terminal() {
		logging.Info("Flow", "request=%s flow complete (%s)",
			logging.TruncateID(f.requestID), f.config.Type)
		f.state = StateComplete
	}
	f.mu.Unlock()

	return token, nil
}

// isCancellation covers both suspension points: an aborted redirect
// wait surfaces ErrUserCancelled, a cancelled token exchange surfaces
// the transport error wrapping context.Canceled.
func isCancellation(err error) bool {
	return errors.Is(err, ErrUserCancelled) || errors.Is(err, context.Canceled)
}
