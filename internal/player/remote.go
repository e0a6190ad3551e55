package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"baton/internal/spotify"

	"github.com/sirupsen/logrus"
)

// remoteAPI is the slice of the Spotify client the remote backend uses
type remoteAPI interface {
	CurrentlyPlaying(ctx context.Context) (*spotify.PlaybackState, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, percent int) error
	SetShuffle(ctx context.Context, on bool) error
	SetRepeat(ctx context.Context, state string) error
}

// RemoteBackend adapts the Spotify Web API to the Backend interface
type RemoteBackend struct {
	api    remoteAPI
	logger *logrus.Entry
}

// NewRemoteBackend creates a remote backend over the given API client
func NewRemoteBackend(api remoteAPI, logger *logrus.Logger) *RemoteBackend {
	return &RemoteBackend{
		api:    api,
		logger: logger.WithField("backend", "remote"),
	}
}

// Name implements Backend
func (b *RemoteBackend) Name() string { return "remote" }

// FetchState queries the playback state endpoint. No active session (a 204,
// or a null item) maps to the same unavailable shape as local player absence,
// never to an error: unlike the local bridge, an absent remote response
// reliably means there is no session, so no placeholder title is invented.
func (b *RemoteBackend) FetchState(ctx context.Context) State {
	playback, err := b.api.CurrentlyPlaying(ctx)
	if err != nil {
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) {
			return Unavailable(fmt.Sprintf("spotify returned status %d", apiErr.StatusCode))
		}
		if errors.Is(err, spotify.ErrNoToken) {
			return Unavailable("")
		}
		return Unavailable(err.Error())
	}
	if playback == nil || playback.Item == nil {
		return Unavailable("")
	}

	state := State{
		Available:  true,
		Playing:    playback.IsPlaying,
		Title:      playback.Item.Name,
		Album:      playback.Item.Album.Name,
		ProgressMs: playback.ProgressMs,
		DurationMs: playback.Item.DurationMs,
		Shuffle:    playback.ShuffleState,
	}

	names := make([]string, 0, len(playback.Item.Artists))
	for _, artist := range playback.Item.Artists {
		names = append(names, artist.Name)
	}
	state.Artist = strings.Join(names, ", ")

	// The image list is ordered largest first; take the first if present.
	if images := playback.Item.Album.Images; len(images) > 0 {
		state.ArtURL = images[0].URL
	}

	if mode, err := ParseRepeatMode(playback.RepeatState); err == nil {
		state.Repeat = mode
	}

	return state
}

// SendCommand maps abstract actions onto Web API calls. Toggle and shuffle
// have no remote equivalent of a relative verb, so both read the current
// state first.
func (b *RemoteBackend) SendCommand(ctx context.Context, cmd Command) error {
	var err error
	switch cmd.Action {
	case ActionPlay:
		err = b.api.Play(ctx)
	case ActionPause:
		err = b.api.Pause(ctx)
	case ActionToggle:
		err = b.toggle(ctx)
	case ActionNext:
		err = b.api.Next(ctx)
	case ActionPrevious:
		err = b.api.Previous(ctx)
	case ActionSeek:
		err = b.api.Seek(ctx, int64(math.Floor(cmd.Seek*1000)))
	case ActionVolume:
		err = b.api.SetVolume(ctx, int(math.Round(cmd.Volume*100)))
	case ActionShuffle:
		err = b.toggleShuffle(ctx)
	case ActionRepeat:
		err = b.api.SetRepeat(ctx, remoteRepeatState(cmd.Repeat))
	default:
		return ErrInvalidInput
	}

	return b.translate(err)
}

// toggle reads the current playing flag and issues the opposite command
func (b *RemoteBackend) toggle(ctx context.Context) error {
	playback, err := b.api.CurrentlyPlaying(ctx)
	if err != nil {
		return err
	}
	if playback != nil && playback.IsPlaying {
		return b.api.Pause(ctx)
	}
	return b.api.Play(ctx)
}

// toggleShuffle reads the current shuffle flag and flips it
func (b *RemoteBackend) toggleShuffle(ctx context.Context) error {
	playback, err := b.api.CurrentlyPlaying(ctx)
	if err != nil {
		return err
	}
	current := playback != nil && playback.ShuffleState
	return b.api.SetShuffle(ctx, !current)
}

// translate maps transport errors to the command-path sentinels. 403 and 404
// carry distinct meanings at this boundary and must stay distinguishable for
// the user-facing warnings.
func (b *RemoteBackend) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, spotify.ErrNoToken) {
		return ErrNotAuthenticated
	}
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrRestricted, apiErr)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNoActiveDevice, apiErr)
		}
	}
	return err
}

// remoteRepeatState maps the canonical mode to Spotify's vocabulary
func remoteRepeatState(mode RepeatMode) string {
	switch mode {
	case RepeatTrack:
		return "track"
	case RepeatPlaylist:
		return "context"
	default:
		return "off"
	}
}
