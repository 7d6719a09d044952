package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tunelink/internal/events"
	"tunelink/internal/provider"
	"tunelink/pkg/oauth"
)

// CallbackTimeout is how long a coordinator waits for the popup to report
// back before failing the attempt.
const CallbackTimeout = 5 * time.Minute

// callbackPath is the path the provider redirects back to.
const callbackPath = "/callback"

// Bridge is the popup-side messaging surface: a short-lived loopback HTTP
// server that receives the provider redirect, extracts the result
// parameters, and posts exactly one structured message to its opener's
// channel. The message is stamped with the bridge's own origin so the
// receiver can reject anything that did not come from this surface.
//
// For implicit-flow providers the token arrives in the URL fragment, which
// never reaches a server; the bridge first serves a tiny HTML shim that
// re-submits the fragment as query parameters.
type Bridge struct {
	port     int
	cfg      *provider.Config
	poster   Poster
	emitter  events.Emitter
	server   *http.Server
	listener net.Listener
	origin   string
	once     sync.Once
}

// NewBridge creates a bridge for one provider posting into the given
// channel. Port 0 picks an ephemeral loopback port.
func NewBridge(port int, cfg *provider.Config, poster Poster, emitter events.Emitter) *Bridge {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Bridge{
		port:    port,
		cfg:     cfg,
		poster:  poster,
		emitter: emitter,
	}
}

// Start binds the loopback listener and begins serving. It returns the
// redirect URI to register in the authorization request. The server stops
// when the context is cancelled.
func (b *Bridge) Start(ctx context.Context) (string, error) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(b.port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback bridge on %s: %w", addr, err)
	}

	b.listener = listener
	b.port = listener.Addr().(*net.TCPAddr).Port
	b.origin = fmt.Sprintf("http://127.0.0.1:%d", b.port)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, b.handleCallback)

	b.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = b.server.Serve(listener)
	}()

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	return b.origin + callbackPath, nil
}

// Origin returns the bridge's own origin. The coordinator binds to this
// value so messages from anywhere else are discarded.
func (b *Bridge) Origin() string {
	return b.origin
}

// RedirectURI returns the redirect URI for the authorization request.
func (b *Bridge) RedirectURI() string {
	return b.origin + callbackPath
}

// handleCallback processes the provider redirect. The result is posted at
// most once; later hits answer 400.
func (b *Bridge) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	// Implicit-flow redirects carry the result in the fragment, invisible
	// here. Serve the shim that replays the fragment as query parameters.
	// The shim does not consume the single delivery slot.
	if b.cfg.Flow == provider.FlowImplicit &&
		!query.Has("access_token") && !query.Has("code") && !query.Has("error") {
		b.renderFragmentShim(w)
		return
	}

	// A hit with no result parameters at all is not a provider redirect
	// (browser prefetch, port scan). It must not consume the delivery
	// slot.
	if !query.Has("code") && !query.Has("state") && !query.Has("error") && !query.Has("access_token") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var delivered bool
	b.once.Do(func() {
		delivered = true
		b.deliver(w, query)
	})

	if !delivered {
		http.Error(w, "callback already processed", http.StatusBadRequest)
	}

	// Give the response time to flush, then shut down.
	go func() {
		time.Sleep(1 * time.Second)
		b.Stop()
	}()
}

// deliver builds the message from the redirect parameters, posts it, and
// renders the closing page. Called exactly once.
func (b *Bridge) deliver(w http.ResponseWriter, query map[string][]string) {
	get := func(key string) string {
		if vs := query[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var msg *oauth.Message
	if errCode := get("error"); errCode != "" {
		detail := errCode
		if desc := get("error_description"); desc != "" {
			detail = errCode + ": " + desc
		}
		msg = &oauth.Message{
			Type:  oauth.ErrorType(b.cfg.Name),
			Error: detail,
		}
	} else {
		expiresIn, _ := strconv.Atoi(get("expires_in"))
		msg = &oauth.Message{
			Type:        oauth.SuccessType(b.cfg.Name),
			Code:        get("code"),
			State:       get("state"),
			AccessToken: get("access_token"),
			ExpiresIn:   expiresIn,
		}
	}
	msg.Origin = b.origin

	b.emitter.Emit(events.AuthMessageReceived, b.cfg.Name, map[string]any{
		"type":      msg.Type,
		"has_code":  msg.Code != "",
		"has_state": msg.State != "",
	})

	if msg.IsError() {
		b.renderPage(w, http.StatusBadRequest, "Authentication failed", html.EscapeString(msg.Error))
	} else {
		b.renderPage(w, http.StatusOK, "Authentication complete", "You can close this window and return to tunelink.")
	}

	b.poster.Post(msg)
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.server.Shutdown(ctx)
	}
	if b.listener != nil {
		_ = b.listener.Close()
	}
}

// setSecurityHeaders sets the response headers for HTML pages served to
// the popup window.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}

// renderFragmentShim serves the page that converts a fragment redirect
// into a query redirect. Only location.hash is touched; nothing is sent
// anywhere but back to this same origin.
func (b *Bridge) renderFragmentShim(w http.ResponseWriter) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'unsafe-inline'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Signing in…</title></head>
<body>
<script>
  var h = window.location.hash;
  if (h && h.length > 1) {
    window.location.replace(%q + "?" + h.substring(1));
  } else {
    window.location.replace(%q + "?error=access_denied");
  }
</script>
</body>
</html>`, callbackPath, callbackPath)
}

// renderPage renders the terminal page shown in the popup.
func (b *Bridge) renderPage(w http.ResponseWriter, status int, title, message string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>%s - tunelink</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center;
               min-height: 100vh; background: #14181f; color: #e8e8e8; }
        .card { text-align: center; padding: 2.5rem; background: #1d2430;
                border-radius: 12px; max-width: 420px; }
        p { color: #9aa4b2; margin-top: 1rem; }
    </style>
</head>
<body>
    <div class="card">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, title, title, message)
}
