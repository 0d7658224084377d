package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postern/internal/auth"
	"postern/internal/collection"
)

func newTestConsole(t *testing.T) *console {
	t.Helper()

	old := configDir
	configDir = t.TempDir()
	t.Cleanup(func() { configDir = old })

	a, err := newApp("test")
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &console{a: a, out: &bytes.Buffer{}}
}

func consoleOutput(c *console) string {
	return c.out.(*bytes.Buffer).String()
}

func TestConsoleExecuteBasics(t *testing.T) {
	c := newTestConsole(t)

	quit, err := c.execute(context.Background(), "help")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, consoleOutput(c), "login <request>")

	quit, err = c.execute(context.Background(), "exit")
	require.NoError(t, err)
	assert.True(t, quit)

	_, err = c.execute(context.Background(), "frobnicate")
	assert.Error(t, err)

	_, err = c.execute(context.Background(), "use staging")
	assert.Error(t, err, "unknown environments are rejected")

	_, err = c.execute(context.Background(), "send")
	assert.Error(t, err, "send needs a request name")
}

func TestConsoleLoginThenSendShareTokenCache(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"cc-token","token_type":"bearer","expires_in":600}`))
	}))
	defer tokenSrv.Close()

	var got struct {
		sync.Mutex
		auth string
	}
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Lock()
		got.auth = r.Header.Get("Authorization")
		got.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer apiSrv.Close()

	c := newTestConsole(t)
	id, err := c.a.collections.AddRequest(collection.Request{
		Name:   "widgets",
		Method: "GET",
		URL:    apiSrv.URL,
		Auth: &auth.Config{Type: auth.TypeOAuth2ClientCredentials,
			OAuth2ClientCredentials: &auth.OAuth2ClientCredentialsConfig{
				TokenURL: tokenSrv.URL, ClientID: "id", ClientSecret: "s"}},
	})
	require.NoError(t, err)

	quit, err := c.execute(context.Background(), "login widgets")
	require.NoError(t, err)
	assert.False(t, quit)
	require.NotNil(t, c.a.service.GetCachedToken(id),
		"login caches the token in the session's shared store")

	_, err = c.execute(context.Background(), "send widgets")
	require.NoError(t, err)

	got.Lock()
	gotAuth := got.auth
	got.Unlock()
	assert.Equal(t, "Bearer cc-token", gotAuth,
		"the send reuses the token the login cached, with canonical type casing")

	_, err = c.execute(context.Background(), "clear widgets")
	require.NoError(t, err)
	assert.Nil(t, c.a.service.GetCachedToken(id))
}
