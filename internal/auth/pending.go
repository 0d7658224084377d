package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"postern/pkg/logging"
)

// CallbackResult is the payload relayed from an authorization surface
// when the provider redirects back. Exactly one of Code (authorization
// code flow), AccessToken (implicit flow), or Error is meaningful.
type CallbackResult struct {
	// State correlates the callback with a pending authorization.
	State string

	// Code is the authorization code, for response_type=code flows.
	Code string

	// AccessToken carries the token directly, for response_type=token
	// flows (parsed out of the URL fragment by the surface).
	AccessToken string

	// TokenType accompanies AccessToken, typically "Bearer".
	TokenType string

	// ExpiresIn accompanies AccessToken, in seconds.
	ExpiresIn int

	// Error and ErrorDescription are the provider's error parameters.
	Error            string
	ErrorDescription string
}

// IsError reports whether the provider redirected with an error.
func (r CallbackResult) IsError() bool {
	return r.Error != ""
}

// pendingAuth is one in-flight redirect wait, keyed by its state token.
type pendingAuth struct {
	state     string
	resultCh  chan CallbackResult
	abortedCh chan struct{}
	createdAt time.Time
	resolved  bool
}

// PendingAuths is the redirect capture channel: a registry of awaitable,
// cancellable waits keyed by state token. States are unique across all
// concurrently pending authorizations; each resolves at most once, and
// any signal for an unknown or already-resolved state is dropped.
type PendingAuths struct {
	mu      sync.Mutex
	waiters map[string]*pendingAuth
}

// NewPendingAuths creates an empty registry.
func NewPendingAuths() *PendingAuths {
	return &PendingAuths{
		waiters: make(map[string]*pendingAuth),
	}
}

// Register arms a wait for the given state. Fails with
// ErrDuplicateState if the state is already in flight.
func (p *PendingAuths) Register(state string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.waiters[state]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateState, logging.TruncateID(state))
	}

	p.waiters[state] = &pendingAuth{
		state:     state,
		resultCh:  make(chan CallbackResult, 1),
		abortedCh: make(chan struct{}),
		createdAt: time.Now(),
	}

	logging.Debug("Pending", "Registered pending authorization state=%s", logging.TruncateID(state))
	return nil
}

// Deliver routes a surface callback to the matching pending wait.
// Returns false when the state matches nothing — an unknown state, a
// stale duplicate, or a possible CSRF attempt — in which case the
// message is discarded without touching any other pending entry.
func (p *PendingAuths) Deliver(result CallbackResult) bool {
	p.mu.Lock()
	entry, ok := p.waiters[result.State]
	if ok && entry.resolved {
		ok = false
	}
	if ok {
		entry.resolved = true
	}
	p.mu.Unlock()

	if !ok {
		logging.Warn("Pending", "Dropping callback with unmatched state=%s (%v)",
			logging.TruncateID(result.State), ErrStateMismatch)
		return false
	}

	// The resolved flag guarantees exactly one send into the buffered
	// channel, so this cannot block. The entry stays registered until
	// Await consumes the result; a callback that beats Await is held,
	// not dropped.
	entry.resultCh <- result
	logging.Debug("Pending", "Delivered callback for state=%s", logging.TruncateID(result.State))
	return true
}

// Abort cancels the pending wait for the given state. Idempotent:
// aborting an unknown, already-resolved, or already-aborted state is a
// no-op. The entry stays registered until Await observes the abort, so
// an abort that lands before Await starts still reads as a
// cancellation, never as an unknown state.
func (p *PendingAuths) Abort(state string) {
	p.mu.Lock()
	entry, ok := p.waiters[state]
	if ok && entry.resolved {
		// Already resolved by a delivered callback; the abort loses.
		ok = false
	}
	if ok {
		entry.resolved = true
	}
	p.mu.Unlock()

	if !ok {
		return
	}

	close(entry.abortedCh)
	logging.Debug("Pending", "Aborted pending authorization state=%s", logging.TruncateID(state))
}

// Await blocks until the registered state resolves. Outcomes:
//   - a delivered callback: returned as-is (provider errors included)
//   - Abort(state): ErrUserCancelled
//   - timeout elapsed: ErrProviderBlocked (the heuristic signal that the
//     provider refused the surface; callers may retry with a window)
//   - ctx cancelled: ErrUserCancelled wrapping the context error
//
// Whatever the outcome, the entry is gone afterwards and late signals
// for the state are dropped.
func (p *PendingAuths) Await(ctx context.Context, state string, timeout time.Duration) (*CallbackResult, error) {
	p.mu.Lock()
	entry, ok := p.waiters[state]
	p.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateMismatch, logging.TruncateID(state))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-entry.resultCh:
		p.remove(state)
		return &result, nil
	case <-entry.abortedCh:
		p.remove(state)
		return nil, ErrUserCancelled
	case <-timer.C:
		p.expire(state, entry)
		// A callback may have raced the timer; honor it if so.
		select {
		case result := <-entry.resultCh:
			return &result, nil
		default:
		}
		return nil, fmt.Errorf("%w after %s", ErrProviderBlocked, timeout)
	case <-ctx.Done():
		p.expire(state, entry)
		select {
		case result := <-entry.resultCh:
			return &result, nil
		default:
		}
		return nil, fmt.Errorf("%w: %v", ErrUserCancelled, ctx.Err())
	}
}

// Len returns the number of in-flight authorizations.
func (p *PendingAuths) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

func (p *PendingAuths) remove(state string) {
	p.mu.Lock()
	delete(p.waiters, state)
	p.mu.Unlock()
}

// expire removes a timed-out or cancelled wait and marks it resolved so
// late callbacks for the state are dropped.
func (p *PendingAuths) expire(state string, entry *pendingAuth) {
	p.mu.Lock()
	entry.resolved = true
	delete(p.waiters, state)
	p.mu.Unlock()
}
