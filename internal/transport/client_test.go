package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postern/internal/auth"
)

func TestClientSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "postern-test", r.Header.Get("User-Agent"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"x":1}`, string(body))

		w.Header().Set("X-Server", "fake")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	client := New(5*time.Second, "postern-test")
	resp, err := client.Send(context.Background(), auth.RequestDescriptor{
		Method: http.MethodPost,
		URL:    server.URL,
		Header: http.Header{"Authorization": {"Bearer tok"}},
		Body:   []byte(`{"x":1}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "fake", resp.Header.Get("X-Server"))
	assert.Equal(t, "created", string(resp.Body))
	assert.Greater(t, resp.Duration, time.Duration(0))
}

func TestClientSendContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := New(5*time.Second, "")
	_, err := client.Send(ctx, auth.RequestDescriptor{Method: http.MethodGet, URL: server.URL})
	assert.Error(t, err)
}

func TestClientPreservesExplicitUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client := New(5*time.Second, "postern-test")
	_, err := client.Send(context.Background(), auth.RequestDescriptor{
		Method: http.MethodGet,
		URL:    server.URL,
		Header: http.Header{"User-Agent": {"custom-agent"}},
	})
	require.NoError(t, err)
}
