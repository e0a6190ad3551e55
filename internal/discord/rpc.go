// Package discord mirrors the canonical player state to Discord Rich
// Presence. It is a passive consumer of poll results; failures here never
// affect the control path.
package discord

import (
	"fmt"
	"sync"
	"time"

	"baton/internal/config"
	"baton/internal/player"

	"github.com/hugolgst/rich-go/client"
	"github.com/sirupsen/logrus"
)

// RPCService handles Discord Rich Presence updates
type RPCService struct {
	config    *config.DiscordConfig
	logger    *logrus.Entry
	enabled   bool
	connected bool

	mu       sync.Mutex
	lastKey  string
	lastPlay bool
}

// NewRPCService creates a new Discord RPC service
func NewRPCService(cfg *config.DiscordConfig, logger *logrus.Logger) *RPCService {
	return &RPCService{
		config:  cfg,
		logger:  logger.WithField("component", "discord"),
		enabled: cfg.Enabled && cfg.ApplicationID != "",
	}
}

// Connect initializes the Discord RPC connection
func (d *RPCService) Connect() error {
	if !d.enabled || d.connected {
		return nil
	}

	if err := client.Login(d.config.ApplicationID); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}

	d.connected = true
	d.logger.Info("Connected to Discord RPC")
	return nil
}

// Disconnect closes the Discord RPC connection
func (d *RPCService) Disconnect() {
	if !d.enabled || !d.connected {
		return
	}
	client.Logout()
	d.connected = false
	d.logger.Info("Disconnected from Discord RPC")
}

// Observe consumes one poll result and updates the presence when the track
// or play state changed. Redundant updates are suppressed because Discord
// rate-limits activity changes.
func (d *RPCService) Observe(state player.State) {
	if !d.enabled || !d.connected {
		return
	}

	key := state.TrackKey()

	d.mu.Lock()
	changed := key != d.lastKey || state.Playing != d.lastPlay
	d.lastKey = key
	d.lastPlay = state.Playing
	d.mu.Unlock()

	if !changed {
		return
	}

	if key == "" {
		if err := d.setIdle(); err != nil {
			d.logger.WithError(err).Debug("Failed to set idle presence")
		}
		return
	}

	if err := d.setNowPlaying(state); err != nil {
		d.logger.WithError(err).Debug("Failed to update presence")
	}
}

// setNowPlaying publishes the current track as the activity
func (d *RPCService) setNowPlaying(state player.State) error {
	activity := client.Activity{
		Details:    state.Title,
		State:      fmt.Sprintf("by %s", state.Artist),
		LargeImage: "baton",
		LargeText:  "Baton",
		SmallImage: "pause",
		SmallText:  "Paused",
	}
	if state.Album != "" {
		activity.State = fmt.Sprintf("by %s • %s", state.Artist, state.Album)
	}

	if state.Playing {
		activity.SmallImage = "play"
		activity.SmallText = "Playing"

		if state.DurationMs > 0 {
			now := time.Now()
			start := now.Add(-time.Duration(state.ProgressMs) * time.Millisecond)
			end := now.Add(time.Duration(state.DurationMs-state.ProgressMs) * time.Millisecond)
			activity.Timestamps = &client.Timestamps{Start: &start, End: &end}
		}
	}

	return client.SetActivity(activity)
}

// setIdle clears the now-playing details
func (d *RPCService) setIdle() error {
	return client.SetActivity(client.Activity{
		Details:    "Nothing playing",
		LargeImage: "baton",
		LargeText:  "Baton",
		SmallImage: "idle",
		SmallText:  "Idle",
	})
}
