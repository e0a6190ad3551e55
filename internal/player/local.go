package player

import (
	"context"
	"strings"
	"time"

	"baton/internal/bridge"

	"github.com/sirupsen/logrus"
)

// bridgeClient is the slice of the playerctl bridge the local backend needs.
// Declared here so tests can substitute a fake without spawning processes.
type bridgeClient interface {
	Metadata() (bridge.Metadata, bool)
	Status() (bridge.Status, bool)
	Shuffle() (bool, bool)
	Loop() (string, bool)
	ToggleShuffle() bool
	SetLoop(mode string) bool
	SetPosition(seconds float64) bool
	SetVolume(volume float64) bool
	Command(verb string) bool
}

// FileProber resolves a duration for a local audio file when the bridge
// reports none. Optional; a nil prober disables the fallback.
type FileProber interface {
	Duration(path string) (time.Duration, bool)
}

// LocalBackend adapts the playerctl bridge to the Backend interface
type LocalBackend struct {
	client bridgeClient
	prober FileProber
	logger *logrus.Entry
}

// NewLocalBackend creates a local backend over the given bridge client
func NewLocalBackend(client bridgeClient, prober FileProber, logger *logrus.Logger) *LocalBackend {
	return &LocalBackend{
		client: client,
		prober: prober,
		logger: logger.WithField("backend", "local"),
	}
}

// Name implements Backend
func (b *LocalBackend) Name() string { return "local" }

// FetchState queries metadata, status, shuffle and loop in that order. When
// the metadata query is unavailable, the remaining three are skipped: no
// player is running and four extra process spawns would buy nothing.
func (b *LocalBackend) FetchState(ctx context.Context) State {
	md, ok := b.client.Metadata()
	if !ok {
		return Unavailable("")
	}

	state := State{
		Available:  true,
		Title:      md.Title,
		Artist:     md.Artist,
		Album:      md.Album,
		ArtURL:     md.ArtURL,
		ProgressMs: md.PositionMs,
		DurationMs: md.DurationMs,
		TrackURL:   md.TrackURL,
	}

	// Local players can report a spuriously-empty title for a real, playing
	// track, so fill in placeholders rather than declaring the state absent.
	if state.Title == "" {
		state.Title = "Unknown"
	}
	if state.Artist == "" {
		state.Artist = "Unknown"
	}

	if status, ok := b.client.Status(); ok {
		state.Playing = status == bridge.StatusPlaying
	}
	if shuffle, ok := b.client.Shuffle(); ok {
		state.Shuffle = shuffle
	}
	if loop, ok := b.client.Loop(); ok {
		if mode, err := ParseRepeatMode(loop); err == nil {
			state.Repeat = mode
		}
	}

	if state.DurationMs == 0 && b.prober != nil {
		if path, ok := localFilePath(md.TrackURL); ok {
			if d, ok := b.prober.Duration(path); ok {
				state.DurationMs = d.Milliseconds()
			}
		}
	}

	return state
}

// SendCommand maps abstract actions onto bridge verbs
func (b *LocalBackend) SendCommand(ctx context.Context, cmd Command) error {
	var ok bool
	switch cmd.Action {
	case ActionPlay, ActionPause, ActionToggle, ActionNext, ActionPrevious:
		ok = b.client.Command(string(cmd.Action))
	case ActionSeek:
		ok = b.client.SetPosition(cmd.Seek)
	case ActionVolume:
		ok = b.client.SetVolume(cmd.Volume)
	case ActionShuffle:
		ok = b.client.ToggleShuffle()
	case ActionRepeat:
		ok = b.client.SetLoop(cmd.Repeat.String())
	default:
		return ErrInvalidInput
	}

	if !ok {
		return ErrUnavailable
	}
	return nil
}

// localFilePath extracts a filesystem path from a file:// track URL
func localFilePath(trackURL string) (string, bool) {
	if !strings.HasPrefix(trackURL, "file://") {
		return "", false
	}
	return strings.TrimPrefix(trackURL, "file://"), true
}
