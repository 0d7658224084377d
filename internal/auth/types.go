package auth

import (
	"net/http"
	"strconv"
)

// Type discriminates the Config tagged union. Exactly one payload field
// matching the type is populated on a valid Config.
type Type string

const (
	TypeNone                    Type = "none"
	TypeBasic                   Type = "basic"
	TypeBearer                  Type = "bearer"
	TypeAPIKey                  Type = "api-key"
	TypeOAuth2ClientCredentials Type = "oauth2-client-credentials"
	TypeOAuth2Password          Type = "oauth2-password"
	TypeOAuth2AuthorizationCode Type = "oauth2-authorization-code"
	TypeOAuth2Implicit          Type = "oauth2-implicit"
	TypeManualHeaders           Type = "manual-headers"
)

// IsOAuth2 reports whether the type requires a cached token before a
// request can be decorated.
func (t Type) IsOAuth2() bool {
	switch t {
	case TypeOAuth2ClientCredentials, TypeOAuth2Password,
		TypeOAuth2AuthorizationCode, TypeOAuth2Implicit:
		return true
	default:
		return false
	}
}

// APIKeyLocation says where an api-key credential is placed.
type APIKeyLocation string

const (
	APIKeyInHeader APIKeyLocation = "header"
	APIKeyInQuery  APIKeyLocation = "query"
)

// Config describes how to authenticate a single logical request. It is
// a tagged union: Type selects which payload pointer is set.
type Config struct {
	Type Type `yaml:"type" json:"type"`

	Basic                   *BasicConfig                   `yaml:"basic,omitempty" json:"basic,omitempty"`
	Bearer                  *BearerConfig                  `yaml:"bearer,omitempty" json:"bearer,omitempty"`
	APIKey                  *APIKeyConfig                  `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	OAuth2ClientCredentials *OAuth2ClientCredentialsConfig `yaml:"oauth2ClientCredentials,omitempty" json:"oauth2ClientCredentials,omitempty"`
	OAuth2Password          *OAuth2PasswordConfig          `yaml:"oauth2Password,omitempty" json:"oauth2Password,omitempty"`
	OAuth2AuthorizationCode *OAuth2AuthorizationCodeConfig `yaml:"oauth2AuthorizationCode,omitempty" json:"oauth2AuthorizationCode,omitempty"`
	OAuth2Implicit          *OAuth2ImplicitConfig          `yaml:"oauth2Implicit,omitempty" json:"oauth2Implicit,omitempty"`
	ManualHeaders           *ManualHeadersConfig           `yaml:"manualHeaders,omitempty" json:"manualHeaders,omitempty"`
}

// BasicConfig carries HTTP Basic credentials.
type BasicConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// BearerConfig carries a static bearer token.
type BearerConfig struct {
	Token string `yaml:"token" json:"token"`
}

// APIKeyConfig carries an API key placed in a header or the query string.
type APIKeyConfig struct {
	Key   string         `yaml:"key" json:"key"`
	Value string         `yaml:"value" json:"value"`
	In    APIKeyLocation `yaml:"in" json:"in"`
}

// OAuth2ClientCredentialsConfig configures the client_credentials grant.
type OAuth2ClientCredentialsConfig struct {
	TokenURL     string `yaml:"tokenUrl" json:"tokenUrl"`
	ClientID     string `yaml:"clientId" json:"clientId"`
	ClientSecret string `yaml:"clientSecret" json:"clientSecret"`
	Scope        string `yaml:"scope,omitempty" json:"scope,omitempty"`
	Audience     string `yaml:"audience,omitempty" json:"audience,omitempty"`
}

// OAuth2PasswordConfig configures the resource owner password grant.
type OAuth2PasswordConfig struct {
	TokenURL     string `yaml:"tokenUrl" json:"tokenUrl"`
	ClientID     string `yaml:"clientId" json:"clientId"`
	ClientSecret string `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	Scope        string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// OAuth2AuthorizationCodeConfig configures the authorization_code grant,
// optionally with PKCE.
type OAuth2AuthorizationCodeConfig struct {
	AuthorizationURL string `yaml:"authorizationUrl" json:"authorizationUrl"`
	TokenURL         string `yaml:"tokenUrl" json:"tokenUrl"`
	ClientID         string `yaml:"clientId" json:"clientId"`
	ClientSecret     string `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`
	RedirectURI      string `yaml:"redirectUri" json:"redirectUri"`
	Scope            string `yaml:"scope,omitempty" json:"scope,omitempty"`
	UsePKCE          bool   `yaml:"usePkce" json:"usePkce"`
}

// OAuth2ImplicitConfig configures the implicit grant. The token arrives
// in the redirect fragment; there is no token endpoint exchange and no
// refresh token.
type OAuth2ImplicitConfig struct {
	AuthorizationURL string `yaml:"authorizationUrl" json:"authorizationUrl"`
	ClientID         string `yaml:"clientId" json:"clientId"`
	RedirectURI      string `yaml:"redirectUri" json:"redirectUri"`
	Scope            string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// HeaderEntry is one manually specified header. Disabled entries are
// skipped at decoration time.
type HeaderEntry struct {
	Name    string `yaml:"name" json:"name"`
	Value   string `yaml:"value" json:"value"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// ManualHeadersConfig carries verbatim headers.
type ManualHeadersConfig struct {
	Headers []HeaderEntry `yaml:"headers" json:"headers"`
}

// Validate checks the tagged-union invariant (exactly one payload,
// matching Type) and the per-type required fields. All violations are
// reported as *ConfigError wrapping ErrConfigInvalid.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}

	populated := 0
	if c.Basic != nil {
		populated++
	}
	if c.Bearer != nil {
		populated++
	}
	if c.APIKey != nil {
		populated++
	}
	if c.OAuth2ClientCredentials != nil {
		populated++
	}
	if c.OAuth2Password != nil {
		populated++
	}
	if c.OAuth2AuthorizationCode != nil {
		populated++
	}
	if c.OAuth2Implicit != nil {
		populated++
	}
	if c.ManualHeaders != nil {
		populated++
	}

	switch c.Type {
	case TypeNone:
		if populated != 0 {
			return newConfigError("type", "none config must carry no payload")
		}
		return nil
	case TypeBasic:
		if c.Basic == nil || populated != 1 {
			return newConfigError("basic", "basic payload required, all others absent")
		}
		if c.Basic.Username == "" {
			return newConfigError("basic.username", "username is required")
		}
		return nil
	case TypeBearer:
		if c.Bearer == nil || populated != 1 {
			return newConfigError("bearer", "bearer payload required, all others absent")
		}
		if c.Bearer.Token == "" {
			return newConfigError("bearer.token", "token is required")
		}
		return nil
	case TypeAPIKey:
		if c.APIKey == nil || populated != 1 {
			return newConfigError("apiKey", "apiKey payload required, all others absent")
		}
		if c.APIKey.Key == "" {
			return newConfigError("apiKey.key", "key is required")
		}
		if c.APIKey.In != APIKeyInHeader && c.APIKey.In != APIKeyInQuery {
			return newConfigError("apiKey.in", `location must be "header" or "query"`)
		}
		return nil
	case TypeOAuth2ClientCredentials:
		if c.OAuth2ClientCredentials == nil || populated != 1 {
			return newConfigError("oauth2ClientCredentials", "payload required, all others absent")
		}
		cc := c.OAuth2ClientCredentials
		if cc.TokenURL == "" {
			return newConfigError("oauth2ClientCredentials.tokenUrl", "token URL is required")
		}
		if cc.ClientID == "" {
			return newConfigError("oauth2ClientCredentials.clientId", "client ID is required")
		}
		if cc.ClientSecret == "" {
			return newConfigError("oauth2ClientCredentials.clientSecret", "client secret is required")
		}
		return nil
	case TypeOAuth2Password:
		if c.OAuth2Password == nil || populated != 1 {
			return newConfigError("oauth2Password", "payload required, all others absent")
		}
		pw := c.OAuth2Password
		if pw.TokenURL == "" {
			return newConfigError("oauth2Password.tokenUrl", "token URL is required")
		}
		if pw.ClientID == "" {
			return newConfigError("oauth2Password.clientId", "client ID is required")
		}
		if pw.Username == "" {
			return newConfigError("oauth2Password.username", "username is required")
		}
		return nil
	case TypeOAuth2AuthorizationCode:
		if c.OAuth2AuthorizationCode == nil || populated != 1 {
			return newConfigError("oauth2AuthorizationCode", "payload required, all others absent")
		}
		ac := c.OAuth2AuthorizationCode
		if ac.AuthorizationURL == "" {
			return newConfigError("oauth2AuthorizationCode.authorizationUrl", "authorization URL is required")
		}
		if ac.TokenURL == "" {
			return newConfigError("oauth2AuthorizationCode.tokenUrl", "token URL is required")
		}
		if ac.ClientID == "" {
			return newConfigError("oauth2AuthorizationCode.clientId", "client ID is required")
		}
		if ac.RedirectURI == "" {
			return newConfigError("oauth2AuthorizationCode.redirectUri", "redirect URI is required")
		}
		return nil
	case TypeOAuth2Implicit:
		if c.OAuth2Implicit == nil || populated != 1 {
			return newConfigError("oauth2Implicit", "payload required, all others absent")
		}
		im := c.OAuth2Implicit
		if im.AuthorizationURL == "" {
			return newConfigError("oauth2Implicit.authorizationUrl", "authorization URL is required")
		}
		if im.ClientID == "" {
			return newConfigError("oauth2Implicit.clientId", "client ID is required")
		}
		if im.RedirectURI == "" {
			return newConfigError("oauth2Implicit.redirectUri", "redirect URI is required")
		}
		return nil
	case TypeManualHeaders:
		if c.ManualHeaders == nil || populated != 1 {
			return newConfigError("manualHeaders", "payload required, all others absent")
		}
		for i, h := range c.ManualHeaders.Headers {
			if h.Name == "" {
				return newConfigError("manualHeaders.headers", "header entry "+strconv.Itoa(i)+" has no name")
			}
		}
		return nil
	default:
		return newConfigError("type", "unknown auth type "+string(c.Type))
	}
}

// Clone returns a deep copy of the config. Decoration and variable
// interpolation always operate on copies; the stored config is never
// mutated.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{Type: c.Type}
	if c.Basic != nil {
		v := *c.Basic
		out.Basic = &v
	}
	if c.Bearer != nil {
		v := *c.Bearer
		out.Bearer = &v
	}
	if c.APIKey != nil {
		v := *c.APIKey
		out.APIKey = &v
	}
	if c.OAuth2ClientCredentials != nil {
		v := *c.OAuth2ClientCredentials
		out.OAuth2ClientCredentials = &v
	}
	if c.OAuth2Password != nil {
		v := *c.OAuth2Password
		out.OAuth2Password = &v
	}
	if c.OAuth2AuthorizationCode != nil {
		v := *c.OAuth2AuthorizationCode
		out.OAuth2AuthorizationCode = &v
	}
	if c.OAuth2Implicit != nil {
		v := *c.OAuth2Implicit
		out.OAuth2Implicit = &v
	}
	if c.ManualHeaders != nil {
		v := ManualHeadersConfig{Headers: make([]HeaderEntry, len(c.ManualHeaders.Headers))}
		copy(v.Headers, c.ManualHeaders.Headers)
		out.ManualHeaders = &v
	}
	return out
}

// RequestDescriptor is the transport-independent shape of an outgoing
// request as far as decoration is concerned.
type RequestDescriptor struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Clone returns a copy whose header map is independent of the original.
func (r RequestDescriptor) Clone() RequestDescriptor {
	out := r
	out.Header = make(http.Header, len(r.Header))
	for k, vs := range r.Header {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out.Header[k] = cp
	}
	return out
}
