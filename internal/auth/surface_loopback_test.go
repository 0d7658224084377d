package auth

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoopback(t *testing.T) *LoopbackSurface {
	t.Helper()

	// Port 0 lets the listener pick a free port.
	s, err := NewLoopbackSurface("http://127.0.0.1:0/callback")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background(), "https://idp.example.com/authorize"))
	t.Cleanup(func() { s.Close() })
	return s
}

func awaitCallback(t *testing.T, s *LoopbackSurface) CallbackResult {
	t.Helper()
	select {
	case result := <-s.Callbacks():
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("no callback emitted")
		return CallbackResult{}
	}
}

func TestNewLoopbackSurfaceRejectsNonLoopback(t *testing.T) {
	_, err := NewLoopbackSurface("http://example.com/callback")
	assert.Error(t, err)

	_, err = NewLoopbackSurface("https://127.0.0.1/callback")
	assert.Error(t, err)

	_, err = NewLoopbackSurface("http://localhost:8080/callback")
	assert.NoError(t, err)
}

func TestLoopbackCodeRedirect(t *testing.T) {
	s := startLoopback(t)

	resp, err := http.Get(s.RedirectURI() + "?code=the-code&state=the-state")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Authorization complete")

	result := awaitCallback(t, s)
	assert.Equal(t, "the-code", result.Code)
	assert.Equal(t, "the-state", result.State)
	assert.False(t, result.IsError())
}

func TestLoopbackErrorRedirect(t *testing.T) {
	s := startLoopback(t)

	resp, err := http.Get(s.RedirectURI() + "?error=access_denied&error_description=nope&state=st")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	result := awaitCallback(t, s)
	assert.True(t, result.IsError())
	assert.Equal(t, "access_denied", result.Error)
	assert.Equal(t, "nope", result.ErrorDescription)
	assert.Equal(t, "st", result.State)
}

func TestLoopbackImplicitRelay(t *testing.T) {
	s := startLoopback(t)

	// First request carries nothing in the query (the token rides the
	// fragment, which browsers keep client-side); the relay page comes
	// back.
	resp, err := http.Get(s.RedirectURI())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "location.hash")

	// The relay page re-requests with the fragment as the query.
	resp, err = http.Get(s.RedirectURI() +
		"?access_token=at-1&token_type=Bearer&expires_in=1800&state=st")
	require.NoError(t, err)
	resp.Body.Close()

	result := awaitCallback(t, s)
	assert.Equal(t, "at-1", result.AccessToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, 1800, result.ExpiresIn)
	assert.Equal(t, "st", result.State)
}

func TestLoopbackRejectsPost(t *testing.T) {
	s := startLoopback(t)

	resp, err := http.Post(s.RedirectURI(), "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLoopbackSecurityHeaders(t *testing.T) {
	s := startLoopback(t)

	resp, err := http.Get(s.RedirectURI() + "?code=c&state=s")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	awaitCallback(t, s)
}

func TestLoopbackCloseIdempotent(t *testing.T) {
	s, err := NewLoopbackSurface("http://127.0.0.1:0/callback")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background(), "https://idp.example.com/authorize"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// The callback channel is closed; receives do not block.
	_, open := <-s.Callbacks()
	assert.False(t, open)

	assert.Error(t, s.Open(context.Background(), "https://idp.example.com/authorize"))
}
