package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postern/pkg/oauth"
)

func testRequest() RequestDescriptor {
	return RequestDescriptor{
		Method: http.MethodGet,
		URL:    "https://api.example.com/v1/widgets?page=2",
		Header: http.Header{"Accept": {"application/json"}},
	}
}

func TestDecorateNone(t *testing.T) {
	out, err := Decorate(testRequest(), &Config{Type: TypeNone}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Header.Get("Authorization"))

	out, err = Decorate(testRequest(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Header.Get("Authorization"))
}

func TestDecorateBasic(t *testing.T) {
	cfg := &Config{Type: TypeBasic, Basic: &BasicConfig{Username: "alice", Password: "s3cret"}}

	out, err := Decorate(testRequest(), cfg, nil)
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
	assert.Equal(t, want, out.Header.Get("Authorization"))
}

func TestDecorateBearer(t *testing.T) {
	cfg := &Config{Type: TypeBearer, Bearer: &BearerConfig{Token: "static-token"}}

	out, err := Decorate(testRequest(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer static-token", out.Header.Get("Authorization"))
}

func TestDecorateAPIKeyHeader(t *testing.T) {
	cfg := &Config{Type: TypeAPIKey,
		APIKey: &APIKeyConfig{Key: "X-Api-Key", Value: "k-123", In: APIKeyInHeader}}

	out, err := Decorate(testRequest(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "k-123", out.Header.Get("X-Api-Key"))
	assert.Equal(t, testRequest().URL, out.URL, "header placement must not touch the URL")
}

func TestDecorateAPIKeyQuery(t *testing.T) {
	cfg := &Config{Type: TypeAPIKey,
		APIKey: &APIKeyConfig{Key: "api_key", Value: "k-123", In: APIKeyInQuery}}

	out, err := Decorate(testRequest(), cfg, nil)
	require.NoError(t, err)
	assert.Contains(t, out.URL, "api_key=k-123")
	assert.Contains(t, out.URL, "page=2", "existing query parameters survive")
	assert.Empty(t, out.Header.Get("Authorization"))
}

func TestDecorateOAuth2(t *testing.T) {
	cfg := &Config{Type: TypeOAuth2ClientCredentials,
		OAuth2ClientCredentials: &OAuth2ClientCredentialsConfig{
			TokenURL: "https://idp.example.com/token", ClientID: "id", ClientSecret: "s"}}

	t.Run("without token", func(t *testing.T) {
		_, err := Decorate(testRequest(), cfg, nil)
		assert.True(t, errors.Is(err, ErrTokenRequired))
	})

	t.Run("with token", func(t *testing.T) {
		token := &oauth.Token{
			AccessToken: "at-456",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
		}
		out, err := Decorate(testRequest(), cfg, token)
		require.NoError(t, err)
		assert.Equal(t, "Bearer at-456", out.Header.Get("Authorization"))
	})

	t.Run("token type defaults to bearer", func(t *testing.T) {
		out, err := Decorate(testRequest(), cfg, &oauth.Token{AccessToken: "at"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer at", out.Header.Get("Authorization"))
	})

	t.Run("token type casing is canonicalized", func(t *testing.T) {
		out, err := Decorate(testRequest(), cfg,
			&oauth.Token{AccessToken: "at", TokenType: "bearer"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer at", out.Header.Get("Authorization"))
	})
}

func TestDecorateManualHeaders(t *testing.T) {
	cfg := &Config{Type: TypeManualHeaders,
		ManualHeaders: &ManualHeadersConfig{Headers: []HeaderEntry{
			{Name: "X-Tenant", Value: "acme", Enabled: true},
			{Name: "X-Debug", Value: "1", Enabled: false},
		}}}

	out, err := Decorate(testRequest(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", out.Header.Get("X-Tenant"))
	assert.Empty(t, out.Header.Get("X-Debug"), "disabled entries are skipped")
}

func TestDecorateDoesNotMutateInput(t *testing.T) {
	req := testRequest()
	cfg := &Config{Type: TypeBearer, Bearer: &BearerConfig{Token: "t"}}

	_, err := Decorate(req, cfg, nil)
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, "https://api.example.com/v1/widgets?page=2", req.URL)
}
