package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"postern/pkg/logging"
	"postern/pkg/oauth"
)

// ConfigSource yields the effective auth config for a request identity,
// inheritance already applied.
type ConfigSource interface {
	EffectiveAuth(requestID string) (*Config, error)
}

// Resolver interpolates environment variables in config values.
// Unknown placeholders are an error; credentials must never go on the
// wire half-resolved.
type Resolver interface {
	Resolve(s string) (string, error)
}

// ServiceOptions carries the tunables for NewService. Zero values fall
// back to defaults.
type ServiceOptions struct {
	// RedirectWait bounds how long a redirect flow waits for the
	// provider callback before reporting the provider as blocked.
	RedirectWait time.Duration
}

const defaultRedirectWait = 2 * time.Minute

// Service is the auth facade: it resolves configs, runs grant flows,
// caches tokens, and decorates outgoing requests. All dependencies are
// injected; Service owns the surface pump and the token cache lifecycle.
type Service struct {
	configs  ConfigSource
	resolver Resolver
	tokens   *TokenStore
	pending  *PendingAuths
	client   *TokenClient
	surface  Surface

	redirectWait time.Duration

	// group collapses concurrent flow starts for the same request
	// identity into one provider round trip.
	group singleflight.Group

	mu    sync.Mutex
	flows map[string]*Flow

	stopOnce sync.Once
	pumpDone chan struct{}
}

// NewService wires the facade. The surface's callback channel is pumped
// into the pending-authorization registry until Stop is called.
func NewService(configs ConfigSource, resolver Resolver, client *TokenClient,
	surface Surface, opts ServiceOptions) *Service {
	if opts.RedirectWait <= 0 {
		opts.RedirectWait = defaultRedirectWait
	}

	s := &Service{
		configs:      configs,
		resolver:     resolver,
		tokens:       NewTokenStore(),
		pending:      NewPendingAuths(),
		client:       client,
		surface:      surface,
		redirectWait: opts.RedirectWait,
		flows:        make(map[string]*Flow),
		pumpDone:     make(chan struct{}),
	}

	go s.pump()

	return s
}

// pump moves surface callbacks into the registry. Unmatched states are
// dropped by Deliver; a drop never disturbs other pending flows.
func (s *Service) pump() {
	defer close(s.pumpDone)
	for result := range s.surface.Callbacks() {
		s.pending.Deliver(result)
	}
}

// ResolveAndDecorate looks up the request's effective auth config,
// interpolates variables, and returns a decorated copy of the request.
// Non-interactive grants (client credentials, password) are run
// transparently when no valid token is cached. Redirect-based grants
// are never auto-started: without a cached token the caller gets
// ErrTokenRequired and must initiate the flow explicitly.
func (s *Service) ResolveAndDecorate(ctx context.Context, requestID string, req RequestDescriptor) (RequestDescriptor, error) {
	cfg, err := s.effectiveConfig(requestID)
	if err != nil {
		return req, err
	}
	if cfg == nil || cfg.Type == TypeNone {
		return req.Clone(), nil
	}

	var token *oauth.Token
	if cfg.Type.IsOAuth2() {
		token = s.tokens.Get(requestID)
		if token == nil {
			switch cfg.Type {
			case TypeOAuth2ClientCredentials, TypeOAuth2Password:
				token, err = s.runFlow(ctx, requestID, cfg)
				if err != nil {
					return req, err
				}
			default:
				return req, fmt.Errorf("%w: %s flow must be initiated first", ErrTokenRequired, cfg.Type)
			}
		}
	}

	return Decorate(req, cfg, token)
}

// InitiateAuthorizationCodeFlow starts the authorization_code grant for
// the request and blocks until the flow reaches a terminal state. The
// token is cached on success.
func (s *Service) InitiateAuthorizationCodeFlow(ctx context.Context, requestID string) (*oauth.Token, error) {
	cfg, err := s.effectiveConfig(requestID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.Type != TypeOAuth2AuthorizationCode {
		return nil, newConfigError("type", "request is not configured for the authorization code grant")
	}
	return s.runFlow(ctx, requestID, cfg)
}

// InitiateImplicitFlow starts the implicit grant for the request and
// blocks until the flow reaches a terminal state.
func (s *Service) InitiateImplicitFlow(ctx context.Context, requestID string) (*oauth.Token, error) {
	cfg, err := s.effectiveConfig(requestID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.Type != TypeOAuth2Implicit {
		return nil, newConfigError("type", "request is not configured for the implicit grant")
	}
	return s.runFlow(ctx, requestID, cfg)
}

// RefreshToken redeems the cached refresh token for the request. There
// is no silent renewal anywhere else; refresh happens only when the
// caller asks for it.
func (s *Service) RefreshToken(ctx context.Context, requestID string) (*oauth.Token, error) {
	cached := s.tokens.Peek(requestID)
	if cached == nil || cached.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token cached for request", ErrTokenRequired)
	}

	cfg, err := s.effectiveConfig(requestID)
	if err != nil {
		return nil, err
	}

	tokenURL, clientID, clientSecret, err := refreshEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	token, err := s.client.Exchange(ctx, tokenURL, RefreshGrant(clientID, clientSecret, cached.RefreshToken))
	if err != nil {
		return nil, err
	}
	// Providers may omit the refresh token on rotation; keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = cached.RefreshToken
	}

	s.tokens.Set(requestID, token)
	return token, nil
}

func refreshEndpoint(cfg *Config) (tokenURL, clientID, clientSecret string, err error) {
	switch {
	case cfg == nil:
		return "", "", "", newConfigError("type", "no auth config for request")
	case cfg.Type == TypeOAuth2ClientCredentials:
		c := cfg.OAuth2ClientCredentials
		return c.TokenURL, c.ClientID, c.ClientSecret, nil
	case cfg.Type == TypeOAuth2Password:
		c := cfg.OAuth2Password
		return c.TokenURL, c.ClientID, c.ClientSecret, nil
	case cfg.Type == TypeOAuth2AuthorizationCode:
		c := cfg.OAuth2AuthorizationCode
		return c.TokenURL, c.ClientID, c.ClientSecret, nil
	default:
		return "", "", "", newConfigError("type",
			fmt.Sprintf("type %q has no refreshable token endpoint", cfg.Type))
	}
}

// TestResult reports a configuration dry run.
type TestResult struct {
	Success bool
	Message string
}

// TestConfig verifies the request's auth config. Non-interactive grants
// are exercised against the live token endpoint without touching the
// cache; redirect grants and static schemes are validated structurally.
func (s *Service) TestConfig(ctx context.Context, requestID string) TestResult {
	cfg, err := s.effectiveConfig(requestID)
	if err != nil {
		return TestResult{Message: err.Error()}
	}
	if cfg == nil || cfg.Type == TypeNone {
		return TestResult{Success: true, Message: "no authentication configured"}
	}

	switch cfg.Type {
	case TypeOAuth2ClientCredentials:
		_, err = s.client.Exchange(ctx, cfg.OAuth2ClientCredentials.TokenURL,
			ClientCredentialsGrant(cfg.OAuth2ClientCredentials))
	case TypeOAuth2Password:
		_, err = s.client.Exchange(ctx, cfg.OAuth2Password.TokenURL,
			PasswordGrant(cfg.OAuth2Password))
	default:
		return TestResult{Success: true,
			Message: fmt.Sprintf("%s config is valid (flow not exercised)", cfg.Type)}
	}

	if err != nil {
		return TestResult{Message: fmt.Sprintf("token endpoint rejected credentials: %v", err)}
	}
	return TestResult{Success: true, Message: "token endpoint accepted credentials"}
}

// GetCachedToken returns the request's cached token regardless of
// expiry, or nil when none exists.
func (s *Service) GetCachedToken(requestID string) *oauth.Token {
	return s.tokens.Peek(requestID)
}

// TokenExpiringSoon reports whether the cached token is valid now but
// close to expiry. Display only; validity checks stay exact.
func (s *Service) TokenExpiringSoon(requestID string) bool {
	return s.tokens.ExpiringSoon(requestID)
}

// ClearTokens drops the cached token for one request.
func (s *Service) ClearTokens(requestID string) {
	s.tokens.Delete(requestID)
}

// ClearAll drops every cached token.
func (s *Service) ClearAll() {
	s.tokens.Clear()
}

// AbortPendingAuth cancels the pending authorization identified by its
// state token. Safe to call after the flow has already resolved.
func (s *Service) AbortPendingAuth(state string) {
	s.pending.Abort(state)
}

// FlowState returns the current state of the request's flow, or
// StateIdle when none has run.
func (s *Service) FlowState(requestID string) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[requestID]; ok {
		return f.State()
	}
	return StateIdle
}

// PendingAuthState returns the correlation state token of the request's
// pending authorization, or "" when nothing is pending.
func (s *Service) PendingAuthState(requestID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[requestID]; ok {
		return f.AuthState()
	}
	return ""
}

// Stop tears the service down: the surface closes, the pump drains, and
// the token cache cleanup goroutine exits.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if err := s.surface.Close(); err != nil {
			logging.Warn("Auth", "surface close: %v", err)
		}
		<-s.pumpDone
		s.tokens.Stop()
	})
}

// runFlow executes the grant for the request, deduplicating concurrent
// starts so one provider interaction serves all simultaneous callers.
func (s *Service) runFlow(ctx context.Context, requestID string, cfg *Config) (*oauth.Token, error) {
	v, err, _ := s.group.Do(requestID, func() (interface{}, error) {
		flow := NewFlow(requestID, cfg, s.tokens, s.client, s.surface, s.pending, s.redirectWait)

		s.mu.Lock()
		s.flows[requestID] = flow
		s.mu.Unlock()

		return flow.Run(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth.Token), nil
}

// effectiveConfig resolves, interpolates, and validates the request's
// auth config. The returned config is a private copy.
func (s *Service) effectiveConfig(requestID string) (*Config, error) {
	cfg, err := s.configs.EffectiveAuth(requestID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	resolved, err := s.interpolate(cfg)
	if err != nil {
		return nil, err
	}
	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// interpolate applies the variable resolver to every credential field
// on a clone of the config.
func (s *Service) interpolate(cfg *Config) (*Config, error) {
	out := cfg.Clone()
	if s.resolver == nil {
		return out, nil
	}

	var firstErr error
	apply := func(field *string) {
		v, err := s.resolver.Resolve(*field)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		*field = v
	}

	switch {
	case out.Basic != nil:
		apply(&out.Basic.Username)
		apply(&out.Basic.Password)
	case out.Bearer != nil:
		apply(&out.Bearer.Token)
	case out.APIKey != nil:
		apply(&out.APIKey.Key)
		apply(&out.APIKey.Value)
	case out.OAuth2ClientCredentials != nil:
		c := out.OAuth2ClientCredentials
		apply(&c.TokenURL)
		apply(&c.ClientID)
		apply(&c.ClientSecret)
		apply(&c.Scope)
		apply(&c.Audience)
	case out.OAuth2Password != nil:
		c := out.OAuth2Password
		apply(&c.TokenURL)
		apply(&c.ClientID)
		apply(&c.ClientSecret)
		apply(&c.Username)
		apply(&c.Password)
		apply(&c.Scope)
	case out.OAuth2AuthorizationCode != nil:
		c := out.OAuth2AuthorizationCode
		apply(&c.AuthorizationURL)
		apply(&c.TokenURL)
		apply(&c.ClientID)
		apply(&c.ClientSecret)
		apply(&c.RedirectURI)
		apply(&c.Scope)
	case out.OAuth2Implicit != nil:
		c := out.OAuth2Implicit
		apply(&c.AuthorizationURL)
		apply(&c.ClientID)
		apply(&c.RedirectURI)
		apply(&c.Scope)
	case out.ManualHeaders != nil:
		for i := range out.ManualHeaders.Headers {
			apply(&out.ManualHeaders.Headers[i].Value)
		}
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, firstErr)
	}
	return out, nil
}
