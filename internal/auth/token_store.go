package auth

import (
	"sync"
	"time"

	"postern/pkg/logging"
	"postern/pkg/oauth"
)

// expiringSoonMargin is used only for status display ("expires soon"),
// never for validity decisions: a token is usable until the instant of
// its expiry.
const expiringSoonMargin = 30 * time.Second

// TokenStore is the in-memory token cache, keyed by the owning
// request/entity identifier. At most one live token per identity;
// Set overwrites unconditionally.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*oauth.Token

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewTokenStore creates a token cache and starts its background cleanup
// of expired entries.
func NewTokenStore() *TokenStore {
	ts := &TokenStore{
		tokens:          make(map[string]*oauth.Token),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go ts.cleanupLoop()

	return ts
}

// Set caches a token for the identity, replacing any prior entry.
// If the token carries only ExpiresIn, the absolute expiry is stamped
// here.
func (ts *TokenStore) Set(id string, token *oauth.Token) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if token.ExpiresAt.IsZero() && token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	ts.tokens[id] = token
	logging.Debug("TokenCache", "Stored token for request=%s (expires: %v)",
		logging.TruncateID(id), token.ExpiresAt)
}

// Get returns the cached token for the identity, or nil if none exists
// or it has expired. Expiry is exact: a token is valid until
// now >= expiresAt.
func (ts *TokenStore) Get(id string) *oauth.Token {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	token, ok := ts.tokens[id]
	if !ok {
		return nil
	}

	if token.IsExpired(0) {
		logging.Debug("TokenCache", "Token expired for request=%s", logging.TruncateID(id))
		return nil
	}

	return token
}

// Peek returns the cached token regardless of expiry, for status
// display. Returns nil only when no entry exists at all.
func (ts *TokenStore) Peek(id string) *oauth.Token {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.tokens[id]
}

// ExpiringSoon reports whether the identity's token is valid now but
// inside the display margin of its expiry.
func (ts *TokenStore) ExpiringSoon(id string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	token, ok := ts.tokens[id]
	if !ok {
		return false
	}
	return !token.IsExpired(0) && token.IsExpired(expiringSoonMargin)
}

// Delete removes the identity's token.
func (ts *TokenStore) Delete(id string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	delete(ts.tokens, id)
	logging.Debug("TokenCache", "Deleted token for request=%s", logging.TruncateID(id))
}

// Clear removes every cached token.
func (ts *TokenStore) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	count := len(ts.tokens)
	ts.tokens = make(map[string]*oauth.Token)
	logging.Debug("TokenCache", "Cleared %d tokens", count)
}

// Count returns the number of cached tokens, expired entries included.
func (ts *TokenStore) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tokens)
}

// Stop terminates the background cleanup goroutine. Safe to call more
// than once.
func (ts *TokenStore) Stop() {
	ts.stopOnce.Do(func() { close(ts.stopCleanup) })
}

func (ts *TokenStore) cleanupLoop() {
	ticker := time.NewTicker(ts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ts.cleanup()
		case <-ts.stopCleanup:
			return
		}
	}
}

func (ts *TokenStore) cleanup() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	count := 0
	for id, token := range ts.tokens {
		if token.IsExpired(0) {
			delete(ts.tokens, id)
			count++
		}
	}

	if count > 0 {
		logging.Debug("TokenCache", "Cleaned up %d expired tokens", count)
	}
}
