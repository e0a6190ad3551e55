package player

import (
	"context"
	"errors"
)

// Action is an abstract control action the router maps onto backend verbs
type Action string

const (
	ActionPlay     Action = "play"
	ActionPause    Action = "pause"
	ActionToggle   Action = "play-pause"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionSeek     Action = "seek"
	ActionVolume   Action = "volume"
	ActionShuffle  Action = "shuffle"
	ActionRepeat   Action = "loop"
)

// Command is one control command addressed to a backend. Seek carries a
// position in seconds, Volume a level in 0..1, Repeat an absolute mode.
type Command struct {
	Action Action
	Seek   float64
	Volume float64
	Repeat RepeatMode
}

// Backend is the capability interface both player backends implement.
// FetchState never returns an error: a backend that cannot be queried yields
// a State with Available false, so a poll tick always produces a renderable
// value.
type Backend interface {
	Name() string
	FetchState(ctx context.Context) State
	SendCommand(ctx context.Context, cmd Command) error
}

// Sentinel errors for the command path. Unavailable is the expected, frequent
// outcome (no player, no session) and is never logged as an error by default.
var (
	// ErrUnavailable means no backend could execute the command right now
	ErrUnavailable = errors.New("player unavailable")

	// ErrNotAuthenticated means the remote backend has no usable token
	ErrNotAuthenticated = errors.New("not connected to spotify")

	// ErrRestricted means the player rejected the command as outside its
	// capabilities (Spotify answers 403, typically for free-tier accounts)
	ErrRestricted = errors.New("command not available for this player")

	// ErrNoActiveDevice means no playback target exists (Spotify 404)
	ErrNoActiveDevice = errors.New("no active playback device")

	// ErrInvalidInput means a command payload failed validation before any
	// backend call was made
	ErrInvalidInput = errors.New("invalid command payload")
)
