package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"baton/internal/player"

	"github.com/sirupsen/logrus"
)

// respondJSON writes a JSON response body
func (s *Server) respondJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response")
	}
}

// respondError maps command-path errors onto HTTP statuses. 403 and 404
// carry distinct user-facing meanings and must not collapse into a generic
// failure.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	message := "command failed"

	switch {
	case errors.Is(err, player.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, player.ErrNotAuthenticated):
		status = http.StatusUnauthorized
		message = "not connected to Spotify"
	case errors.Is(err, player.ErrRestricted):
		status = http.StatusForbidden
		message = "this action is not available for your player (Spotify Premium or an eligible device may be required)"
	case errors.Is(err, player.ErrNoActiveDevice):
		status = http.StatusNotFound
		message = "no active playback device"
	case errors.Is(err, player.ErrUnavailable):
		status = http.StatusServiceUnavailable
		message = "no player available"
	default:
		s.logger.WithError(err).Warn("Player command failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// handleStatus returns the canonical player state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondJSON(w, s.manager.State())
}

// handlePlayerCommand dispatches POST /api/player/{command}
func (s *Server) handlePlayerCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 4 || pathParts[3] == "" {
		http.Error(w, "Missing player command", http.StatusBadRequest)
		return
	}
	command := pathParts[3]

	ctx := r.Context()
	var err error

	switch command {
	case "play":
		err = s.router.Play(ctx)
	case "pause":
		err = s.router.Pause(ctx)
	case "play-pause":
		err = s.router.Toggle(ctx)
	case "next":
		err = s.router.Next(ctx)
	case "previous":
		err = s.router.Previous(ctx)
	case "shuffle":
		err = s.router.ToggleShuffle(ctx)
	case "seek":
		position, ok := numericField(r.Body, "position")
		if !ok {
			http.Error(w, "position must be numeric", http.StatusBadRequest)
			return
		}
		err = s.router.Seek(ctx, position)
	case "volume":
		volume, ok := numericField(r.Body, "volume")
		if !ok {
			http.Error(w, "volume must be numeric", http.StatusBadRequest)
			return
		}
		err = s.router.SetVolume(ctx, volume)
	case "loop":
		mode, cycleErr := s.router.CycleRepeat(ctx)
		if cycleErr != nil {
			s.respondError(w, cycleErr)
			return
		}
		s.respondJSON(w, map[string]interface{}{"success": true, "mode": mode.String()})
		return
	default:
		http.Error(w, "Unknown player command", http.StatusBadRequest)
		return
	}

	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// numericField decodes a JSON body and extracts one numeric field. A string
// or missing value is rejected so a bad payload never reaches a backend.
func numericField(body io.Reader, field string) (float64, bool) {
	var payload map[string]interface{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return 0, false
	}
	value, ok := payload[field].(float64)
	return value, ok
}

// handleListPlayers returns running local player identifiers
func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	players := s.bridge.ListPlayers()
	if players == nil {
		players = []string{}
	}
	s.respondJSON(w, map[string][]string{"players": players})
}

// handleMode gets or switches the active backend mode
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.respondJSON(w, map[string]string{"mode": string(s.manager.Mode())})
	case http.MethodPost:
		var payload struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		mode, err := player.ParseMode(payload.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.manager.SetMode(mode)
		s.respondJSON(w, map[string]interface{}{"success": true, "mode": string(mode)})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHistory returns recent playback history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query history")
		http.Error(w, "Error retrieving history", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, map[string]interface{}{"history": entries})
}

// handleNotifications drains pending user-visible notices
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondJSON(w, map[string][]string{"notifications": s.drainNotices()})
}

// handleHealthCheck returns basic liveness information
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"mode":      string(s.manager.Mode()),
	}
	if s.ngrok != nil {
		health["public_url"] = s.ngrok.PublicURL()
	}

	s.logger.WithFields(logrus.Fields{"mode": s.manager.Mode()}).Debug("Health check")
	s.respondJSON(w, health)
}
