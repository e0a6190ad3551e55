package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleAuthLogin starts an authorization attempt and returns the URL the
// user must open. The loopback callback listener is started alongside so the
// redirect lands somewhere.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	authURL, err := s.tokens.BeginAuthorization()
	if err != nil {
		s.logger.WithError(err).Warn("Could not begin authorization")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.auth != nil {
		if err := s.auth.Start(); err != nil {
			s.logger.WithError(err).Warn("Could not start callback listener")
			// Manual code paste via /api/auth/code still works.
		}
	}

	s.respondJSON(w, map[string]string{"url": authURL})
}

// handleAuthCode exchanges a manually pasted authorization code; the
// fallback for environments where the loopback listener cannot bind.
func (s *Server) handleAuthCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if payload.Code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.tokens.Exchange(ctx, payload.Code, payload.State); err != nil {
		s.logger.WithError(err).Warn("Manual code exchange failed")
		http.Error(w, "Code exchange failed", http.StatusBadRequest)
		return
	}

	if s.auth != nil {
		s.auth.Stop()
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// handleAuthStatus reports whether a Spotify account is connected
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondJSON(w, map[string]bool{"authenticated": s.tokens.Authenticated()})
}

// handleAuthDisconnect clears all stored credentials
func (s *Server) handleAuthDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.tokens.Disconnect(); err != nil {
		s.logger.WithError(err).Error("Failed to disconnect")
		http.Error(w, "Failed to disconnect", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}
