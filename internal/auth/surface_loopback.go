package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"postern/pkg/logging"
)

// LoopbackSurface is the embedded authorization surface: a local HTTP
// listener bound to the redirect URI configured on the auth config. It
// parses provider redirects (query parameters for the code flow, URL
// fragment via a relay page for the implicit flow) and emits them on
// the callback channel.
//
// One surface serves any number of overlapping flows; correlation by
// state happens in PendingAuths.
type LoopbackSurface struct {
	host string
	port int
	path string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	closed   bool

	results chan CallbackResult
}

// NewLoopbackSurface creates a surface for the given redirect URI, which
// must be an http URL on a loopback host, e.g.
// "http://127.0.0.1:8714/callback".
func NewLoopbackSurface(redirectURI string) (*LoopbackSurface, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI must use http on loopback, got scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return nil, fmt.Errorf("redirect URI host must be loopback, got %q", host)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redirect URI port: %w", err)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &LoopbackSurface{
		host:    host,
		port:    port,
		path:    path,
		results: make(chan CallbackResult, 8),
	}, nil
}

// Open starts the callback listener if it is not already running. The
// authorization URL itself is only logged; rendering it is the
// embedding UI's job.
func (s *LoopbackSurface) Open(_ context.Context, authURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("authorization surface is closed")
	}

	if s.server == nil {
		addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to start callback listener on %s: %w", addr, err)
		}
		s.listener = listener
		s.port = listener.Addr().(*net.TCPAddr).Port

		mux := http.NewServeMux()
		mux.HandleFunc(s.path, s.handleCallback)

		s.server = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
				logging.Error("Surface", err, "callback listener stopped")
			}
		}()

		logging.Debug("Surface", "Callback listener started on %s%s", listener.Addr(), s.path)
	}

	logging.Info("Surface", "Authorization URL ready: %s", authURL)
	return nil
}

// Callbacks implements Surface.
func (s *LoopbackSurface) Callbacks() <-chan CallbackResult {
	return s.results
}

// Close shuts the listener down and closes the callback channel.
// Shutdown happens outside the lock so in-flight handlers can finish
// emitting instead of blocking against it.
func (s *LoopbackSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	server := s.server
	listener := s.listener
	s.mu.Unlock()

	var err error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = server.Shutdown(ctx)
	}
	if listener != nil {
		_ = listener.Close()
	}
	close(s.results)
	return err
}

// RedirectURI returns the effective redirect URI, useful when the
// configured port was 0 and the listener picked one.
func (s *LoopbackSurface) RedirectURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(s.host, strconv.Itoa(s.port)), s.path)
}

// handleCallback parses a provider redirect. Three shapes arrive here:
//
//  1. code flow:     GET path?code=...&state=...        -> emit result
//  2. provider error: GET path?error=...&state=...      -> emit result
//  3. implicit flow: GET path (params in the #fragment) -> serve the
//     relay page, which re-requests with the fragment moved into the
//     query; the second request is shape 1-like with access_token.
func (s *LoopbackSurface) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	setSecurityHeaders(w)
	query := r.URL.Query()

	switch {
	case query.Get("error") != "":
		result := CallbackResult{
			State:            query.Get("state"),
			Error:            query.Get("error"),
			ErrorDescription: query.Get("error_description"),
		}
		s.emit(result)
		writeCallbackPage(w, http.StatusBadRequest, "Authorization failed",
			fmt.Sprintf("The provider reported %q. You can close this window.",
				html.EscapeString(result.Error)))

	case query.Get("code") != "":
		s.emit(CallbackResult{
			State: query.Get("state"),
			Code:  query.Get("code"),
		})
		writeCallbackPage(w, http.StatusOK, "Authorization complete",
			"You can close this window and return to postern.")

	case query.Get("access_token") != "":
		expiresIn, _ := strconv.Atoi(query.Get("expires_in"))
		s.emit(CallbackResult{
			State:       query.Get("state"),
			AccessToken: query.Get("access_token"),
			TokenType:   query.Get("token_type"),
			ExpiresIn:   expiresIn,
		})
		writeCallbackPage(w, http.StatusOK, "Authorization complete",
			"You can close this window and return to postern.")

	default:
		// No recognizable parameters in the query: the implicit grant
		// puts them in the fragment, which never reaches the server.
		// Serve the relay page so the fragment gets re-sent as a query.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, fragmentRelayHTML)
	}
}

func (s *LoopbackSurface) emit(result CallbackResult) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	select {
	case s.results <- result:
	default:
		logging.Warn("Surface", "Callback channel full, dropping redirect for state=%s",
			logging.TruncateID(result.State))
	}
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}

func writeCallbackPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, callbackPageHTML, title, title, message)
}

const callbackPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <meta charset="utf-8">
    <style>
        body { font-family: monospace; background: #0b0f0c; color: #9ece8c; margin: 40px; text-align: center; }
        .box { max-width: 560px; margin: 0 auto; border: 1px solid #2d4631; padding: 24px; }
    </style>
</head>
<body>
    <div class="box">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`

// fragmentRelayHTML turns a fragment-carrying redirect into a query
// request the server can read. The rewrite happens client-side because
// only the browser ever sees the fragment.
const fragmentRelayHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Completing authorization</title>
    <meta charset="utf-8">
    <script>
        (function () {
            var frag = window.location.hash;
            if (frag && frag.length > 1) {
                window.location.replace(
                    window.location.pathname + "?" + frag.substring(1));
            }
        })();
    </script>
</head>
<body>
    <p>Completing authorization&hellip;</p>
</body>
</html>`
