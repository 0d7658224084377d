package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeClientCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "my-client", r.PostForm.Get("client_id"))
		assert.Equal(t, "my-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "read write", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"scope":"read write"}`))
	}))
	defer server.Close()

	client := NewTokenClient(nil)
	params := ClientCredentialsGrant(&OAuth2ClientCredentialsConfig{
		TokenURL: server.URL, ClientID: "my-client", ClientSecret: "my-secret", Scope: "read write"})

	token, err := client.Exchange(context.Background(), server.URL, params)
	require.NoError(t, err)

	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.False(t, token.ExpiresAt.IsZero(), "absolute expiry is stamped from expires_in")
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)
}

func TestExchangeRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	client := NewTokenClient(nil)
	_, err := client.Exchange(context.Background(), server.URL,
		ClientCredentialsGrant(&OAuth2ClientCredentialsConfig{ClientID: "x", ClientSecret: "bad"}))
	require.Error(t, err)

	var exchangeErr *TokenExchangeError
	require.True(t, errors.As(err, &exchangeErr))
	assert.Equal(t, http.StatusUnauthorized, exchangeErr.Status)
	assert.Contains(t, exchangeErr.Body, "invalid_client")
}

func TestExchangeMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>surprise</html>"},
		{"missing access token", `{"token_type":"Bearer"}`},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewTokenClient(nil)
			_, err := client.Exchange(context.Background(), server.URL,
				ClientCredentialsGrant(&OAuth2ClientCredentialsConfig{ClientID: "x", ClientSecret: "y"}))

			var exchangeErr *TokenExchangeError
			require.True(t, errors.As(err, &exchangeErr), "got %v", err)
		})
	}
}

func TestExchangeDefaultsTokenType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"at-1"}`))
	}))
	defer server.Close()

	client := NewTokenClient(nil)
	token, err := client.Exchange(context.Background(), server.URL,
		ClientCredentialsGrant(&OAuth2ClientCredentialsConfig{ClientID: "x", ClientSecret: "y"}))
	require.NoError(t, err)

	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.ExpiresAt.IsZero(), "no expires_in means no expiry")
}

func TestExchangeContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewTokenClient(nil)
	_, err := client.Exchange(ctx, server.URL,
		ClientCredentialsGrant(&OAuth2ClientCredentialsConfig{ClientID: "x", ClientSecret: "y"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGrantBuilders(t *testing.T) {
	t.Run("password", func(t *testing.T) {
		params := PasswordGrant(&OAuth2PasswordConfig{
			ClientID: "id", ClientSecret: "s", Username: "alice", Password: "pw", Scope: "api"})

		assert.Equal(t, "password", params.Get("grant_type"))
		assert.Equal(t, "alice", params.Get("username"))
		assert.Equal(t, "pw", params.Get("password"))
		assert.Equal(t, "s", params.Get("client_secret"))
		assert.Equal(t, "api", params.Get("scope"))
	})

	t.Run("password without secret", func(t *testing.T) {
		params := PasswordGrant(&OAuth2PasswordConfig{ClientID: "id", Username: "a", Password: "p"})
		assert.False(t, params.Has("client_secret"), "public clients omit the secret")
	})

	t.Run("authorization code with verifier", func(t *testing.T) {
		cfg := &OAuth2AuthorizationCodeConfig{
			ClientID: "id", ClientSecret: "s", RedirectURI: "http://127.0.0.1:1234/cb"}
		params := AuthorizationCodeGrant(cfg, "the-code", "the-verifier")

		assert.Equal(t, "authorization_code", params.Get("grant_type"))
		assert.Equal(t, "the-code", params.Get("code"))
		assert.Equal(t, "the-verifier", params.Get("code_verifier"))
		assert.Equal(t, "http://127.0.0.1:1234/cb", params.Get("redirect_uri"))
	})

	t.Run("authorization code without verifier", func(t *testing.T) {
		params := AuthorizationCodeGrant(&OAuth2AuthorizationCodeConfig{ClientID: "id"}, "c", "")
		assert.False(t, params.Has("code_verifier"))
	})

	t.Run("refresh", func(t *testing.T) {
		params := RefreshGrant("id", "s", "rt-1")
		assert.Equal(t, "refresh_token", params.Get("grant_type"))
		assert.Equal(t, "rt-1", params.Get("refresh_token"))
	})
}
