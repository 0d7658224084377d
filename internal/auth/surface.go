package auth

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"postern/pkg/logging"
)

// Surface is an external authorization user-agent: something capable of
// rendering the provider's authorization URL and relaying the redirect
// callback. The redirect capture channel depends only on this
// interface; the two concrete surfaces are the embedded loopback frame
// and the separate browser window.
type Surface interface {
	// Open presents the authorization URL to the user.
	Open(ctx context.Context, authURL string) error

	// Callbacks emits one CallbackResult per provider redirect. Results
	// are matched to pending authorizations by state elsewhere; the
	// surface does no correlation of its own.
	Callbacks() <-chan CallbackResult

	// Close releases the surface. Further callbacks are dropped.
	Close() error
}

// BrowserSurface is the "separate window" surface: a loopback callback
// listener plus the user's system browser. It is the fallback when a
// provider refuses to render inside the embedded frame.
type BrowserSurface struct {
	loop *LoopbackSurface
}

// NewBrowserSurface creates a browser surface listening on the given
// redirect URI.
func NewBrowserSurface(redirectURI string) (*BrowserSurface, error) {
	loop, err := NewLoopbackSurface(redirectURI)
	if err != nil {
		return nil, err
	}
	return &BrowserSurface{loop: loop}, nil
}

// Open starts the callback listener and opens the authorization URL in
// the system browser. A browser launch failure is not fatal: the URL
// has been logged and the user can open it by hand.
func (s *BrowserSurface) Open(ctx context.Context, authURL string) error {
	if err := s.loop.Open(ctx, authURL); err != nil {
		return err
	}

	if err := openBrowser(authURL); err != nil {
		logging.Warn("Surface", "Failed to open browser: %v", err)
		logging.Info("Surface", "Open this URL manually: %s", authURL)
	}
	return nil
}

// Callbacks implements Surface.
func (s *BrowserSurface) Callbacks() <-chan CallbackResult {
	return s.loop.Callbacks()
}

// Close implements Surface.
func (s *BrowserSurface) Close() error {
	return s.loop.Close()
}

// openBrowser opens the URL in the default browser on Linux, macOS, or
// Windows.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	// Fire and forget; the browser detaches from our process.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
