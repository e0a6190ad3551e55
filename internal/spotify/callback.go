package spotify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// callbackTimeout bounds how long the loopback listener waits for the user
// to finish the authorization dance in the browser.
const callbackTimeout = 5 * time.Minute

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Baton</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>%s</h2>
<p>You can close this window and return to your player.</p>
</body>
</html>`

// CallbackListener is a short-lived loopback HTTP listener that captures the
// OAuth redirect directly, replacing the fragile popup/postMessage hand-off.
// One listener serves one authorization attempt.
type CallbackListener struct {
	manager *TokenManager
	port    int
	logger  *logrus.Entry

	mu     sync.Mutex
	server *http.Server
}

// NewCallbackListener creates a listener bound to the token manager
func NewCallbackListener(manager *TokenManager, port int, logger *logrus.Logger) *CallbackListener {
	return &CallbackListener{
		manager: manager,
		port:    port,
		logger:  logger.WithField("component", "oauth-callback"),
	}
}

// Start begins listening for the redirect. Idempotent: a second call while a
// listener is already up replaces it, since each authorization attempt
// invalidates the previous session anyway.
func (l *CallbackListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		l.shutdownLocked()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.port))
	if err != nil {
		return fmt.Errorf("failed to bind callback listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", l.handleCallback)

	server := &http.Server{Handler: mux}
	l.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.WithError(err).Warn("Callback listener stopped unexpectedly")
		}
	}()

	// Tear the listener down if the user never completes the flow.
	go func() {
		time.Sleep(callbackTimeout)
		l.mu.Lock()
		if l.server == server {
			l.shutdownLocked()
			l.logger.Info("Authorization attempt timed out, callback listener closed")
		}
		l.mu.Unlock()
	}()

	l.logger.WithField("port", l.port).Debug("Callback listener started")
	return nil
}

// Stop closes the listener if it is running
func (l *CallbackListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shutdownLocked()
}

func (l *CallbackListener) shutdownLocked() {
	if l.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = l.server.Shutdown(ctx)
	l.server = nil
}

// handleCallback captures the redirect, exchanges the code and reports the
// outcome as a tiny HTML page.
func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		l.logger.WithField("error", errParam).Warn("Authorization denied")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, callbackPage, "Authorization was denied.")
		go l.Stop()
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := l.manager.Exchange(ctx, code, state); err != nil {
		l.logger.WithError(err).Warn("Code exchange failed")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, callbackPage, "Connecting to Spotify failed.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, callbackPage, "Spotify connected.")
	go l.Stop()
}
