package player

import (
	"context"
	"fmt"
	"math"
)

// Router maps abstract UI actions onto the active backend's vocabulary.
// It holds no playback state of its own: stateful operations like the repeat
// cycle re-read the backend every time, so an external actor changing the
// player between polls cannot make the router drift.
type Router struct {
	backend func() Backend
}

// NewRouter creates a router over a backend provider. The provider is
// consulted on every call so mode switches take effect immediately.
func NewRouter(backend func() Backend) *Router {
	return &Router{backend: backend}
}

// Play starts playback
func (r *Router) Play(ctx context.Context) error {
	return r.backend().SendCommand(ctx, Command{Action: ActionPlay})
}

// Pause pauses playback
func (r *Router) Pause(ctx context.Context) error {
	return r.backend().SendCommand(ctx, Command{Action: ActionPause})
}

// Toggle flips between playing and paused
func (r *Router) Toggle(ctx context.Context) error {
	return r.backend().SendCommand(ctx, Command{Action: ActionToggle})
}

// Next skips to the next track
func (r *Router) Next(ctx context.Context) error {
	return r.backend().SendCommand(ctx, Command{Action: ActionNext})
}

// Previous skips to the previous track
func (r *Router) Previous(ctx context.Context) error {
	return r.backend().SendCommand(ctx, Command{Action: ActionPrevious})
}

// Seek jumps to an absolute position in seconds. Rejected before any backend
// call when the position is not a finite, non-negative number.
func (r *Router) Seek(ctx context.Context, seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("%w: seek position must be a non-negative number", ErrInvalidInput)
	}
	return r.backend().SendCommand(ctx, Command{Action: ActionSeek, Seek: seconds})
}

// SetVolume sets the volume level in 0..1, validated before any backend call
func (r *Router) SetVolume(ctx context.Context, volume float64) error {
	if math.IsNaN(volume) || volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume must be between 0 and 1", ErrInvalidInput)
	}
	return r.backend().SendCommand(ctx, Command{Action: ActionVolume, Volume: volume})
}

// ToggleShuffle flips the shuffle state
func (r *Router) ToggleShuffle(ctx context.Context) error {
	return r.backend().SendCommand(ctx, Command{Action: ActionShuffle})
}

// CycleRepeat advances the repeat cycle None -> Track -> Playlist -> None and
// returns the mode that was issued. The current mode is read fresh from the
// backend, and the next mode is sent as an absolute value because the local
// bridge only accepts absolute mode names.
func (r *Router) CycleRepeat(ctx context.Context) (RepeatMode, error) {
	backend := r.backend()
	current := backend.FetchState(ctx).Repeat
	next := current.Next()
	if err := backend.SendCommand(ctx, Command{Action: ActionRepeat, Repeat: next}); err != nil {
		return current, err
	}
	return next, nil
}
