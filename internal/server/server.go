// Package server exposes the HTTP control surface consumed by the UI: the
// canonical player state, the control commands, authorization management and
// the supporting endpoints (players, history, artwork, health).
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"baton/internal/cache"
	"baton/internal/config"
	"baton/internal/history"
	"baton/internal/ngrok"
	"baton/internal/player"
	"baton/internal/spotify"

	"github.com/sirupsen/logrus"
)

// PlayerLister enumerates running local players (backed by playerctl --list-all)
type PlayerLister interface {
	ListPlayers() []string
}

// ArtworkProber extracts embedded artwork from a local audio file
type ArtworkProber interface {
	EmbeddedArtwork(path string) ([]byte, string, bool)
}

// Deps bundles the collaborators the server routes requests to. History,
// Prober and Ngrok may be nil when the corresponding feature is disabled.
type Deps struct {
	Manager  *player.Manager
	Router   *player.Router
	Tokens   *spotify.TokenManager
	Callback *spotify.CallbackListener
	Bridge   PlayerLister
	History  *history.Store
	Prober   ArtworkProber
	Ngrok    *ngrok.Service
}

// Server is the HTTP control surface
type Server struct {
	config  *config.Config
	logger  *logrus.Logger
	manager *player.Manager
	router  *player.Router
	tokens  *spotify.TokenManager
	auth    *spotify.CallbackListener
	bridge  PlayerLister
	history *history.Store
	prober  ArtworkProber
	ngrok   *ngrok.Service
	artwork *cache.ArtworkCache

	httpServer *http.Server

	mu      sync.Mutex
	notices []string
}

// New creates the control surface server
func New(cfg *config.Config, logger *logrus.Logger, deps Deps) *Server {
	return &Server{
		config:  cfg,
		logger:  logger,
		manager: deps.Manager,
		router:  deps.Router,
		tokens:  deps.Tokens,
		auth:    deps.Callback,
		bridge:  deps.Bridge,
		history: deps.History,
		prober:  deps.Prober,
		ngrok:   deps.Ngrok,
		artwork: cache.NewArtworkCache(time.Duration(cfg.Player.ArtworkTTLMs) * time.Millisecond),
	}
}

// Handler builds the route table wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/player/", s.handlePlayerCommand)
	mux.HandleFunc("/api/players", s.handleListPlayers)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/artwork", s.handleArtwork)
	mux.HandleFunc("/api/notifications", s.handleNotifications)

	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/code", s.handleAuthCode)
	mux.HandleFunc("/api/auth/status", s.handleAuthStatus)
	mux.HandleFunc("/api/auth/disconnect", s.handleAuthDisconnect)

	mux.HandleFunc("/health", s.handleHealthCheck)

	var handler http.Handler = mux
	handler = s.basicAuthMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.requestLoggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// Start starts the control surface, blocking until the listener fails
func (s *Server) Start() error {
	s.manager.Start()

	localAddress := fmt.Sprintf("http://%s", s.config.GetAddress())
	s.logger.WithField("address", localAddress).Info("Baton control surface starting")

	if s.ngrok != nil {
		if err := s.ngrok.StartTunnel(context.Background(), localAddress); err != nil {
			s.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	s.httpServer = &http.Server{
		Addr:        s.config.GetAddress(),
		Handler:     s.Handler(),
		ReadTimeout: time.Duration(s.config.Server.ReadTimeout) * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and its collaborators
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down control surface")

	s.manager.Stop()

	if s.ngrok != nil {
		if err := s.ngrok.Stop(); err != nil {
			s.logger.WithError(err).Warn("Failed to stop ngrok tunnel")
		}
	}
	if s.auth != nil {
		s.auth.Stop()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("HTTP shutdown did not complete cleanly")
		}
	}

	s.logger.Info("Control surface shutdown complete")
}

// Notify queues a user-visible notice (credential expiry and the like) for
// the UI to drain through /api/notifications.
func (s *Server) Notify(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, message)
}

// drainNotices returns and clears all pending notices
func (s *Server) drainNotices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := s.notices
	s.notices = nil
	if notices == nil {
		notices = []string{}
	}
	return notices
}
