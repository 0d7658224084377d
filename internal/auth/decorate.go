package auth

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"postern/pkg/oauth"
)

// Decorate applies the resolved auth config to a copy of the request
// and returns it. The input request is never mutated. For OAuth2 types
// the caller supplies the cached token; a nil token yields
// ErrTokenRequired so the caller can initiate the matching flow.
//
// Decorate is pure: no I/O, no clock, no cache access.
func Decorate(req RequestDescriptor, cfg *Config, token *oauth.Token) (RequestDescriptor, error) {
	out := req.Clone()

	if cfg == nil {
		return out, nil
	}

	switch cfg.Type {
	case TypeNone, "":
		return out, nil

	case TypeBasic:
		if cfg.Basic == nil {
			return req, newConfigError("basic", "basic payload missing")
		}
		raw := cfg.Basic.Username + ":" + cfg.Basic.Password
		out.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
		return out, nil

	case TypeBearer:
		if cfg.Bearer == nil {
			return req, newConfigError("bearer", "bearer payload missing")
		}
		out.Header.Set("Authorization", "Bearer "+cfg.Bearer.Token)
		return out, nil

	case TypeAPIKey:
		if cfg.APIKey == nil {
			return req, newConfigError("apiKey", "apiKey payload missing")
		}
		switch cfg.APIKey.In {
		case APIKeyInHeader:
			out.Header.Set(cfg.APIKey.Key, cfg.APIKey.Value)
		case APIKeyInQuery:
			u, err := url.Parse(out.URL)
			if err != nil {
				return req, newConfigError("apiKey", fmt.Sprintf("request URL unparsable: %v", err))
			}
			q := u.Query()
			q.Set(cfg.APIKey.Key, cfg.APIKey.Value)
			u.RawQuery = q.Encode()
			out.URL = u.String()
		default:
			return req, newConfigError("apiKey.in", "unknown api key location "+string(cfg.APIKey.In))
		}
		return out, nil

	case TypeOAuth2ClientCredentials, TypeOAuth2Password,
		TypeOAuth2AuthorizationCode, TypeOAuth2Implicit:
		if token == nil || token.AccessToken == "" {
			return req, fmt.Errorf("%w: no cached token for %s", ErrTokenRequired, cfg.Type)
		}
		// Providers vary the token_type casing; *oauth2.Token.Type
		// canonicalizes it ("bearer" -> "Bearer", "mac" -> "MAC").
		o2 := token.ToOAuth2Token()
		out.Header.Set("Authorization", o2.Type()+" "+o2.AccessToken)
		return out, nil

	case TypeManualHeaders:
		if cfg.ManualHeaders == nil {
			return req, newConfigError("manualHeaders", "manualHeaders payload missing")
		}
		for _, h := range cfg.ManualHeaders.Headers {
			if !h.Enabled {
				continue
			}
			out.Header.Set(h.Name, h.Value)
		}
		return out, nil

	default:
		return req, newConfigError("type", "unknown auth type "+string(cfg.Type))
	}
}
