package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultAPIBaseURL = "https://api.spotify.com/v1"

// APIError carries a non-success status from the Web API. The status code has
// a fixed meaning at this boundary: 403 = capability denied (free tier,
// restricted device), 404 = no active playback device, anything else is a
// generic failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify api: status %d", e.StatusCode)
}

// TokenSource yields a valid access token or an error. Satisfied by
// *TokenManager.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Image is one entry of an ordered artwork list, largest first
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// TrackItem is the track portion of a playback state response
type TrackItem struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string  `json:"name"`
		Images []Image `json:"images"`
	} `json:"album"`
}

// PlaybackState is the /me/player response. Item is a pointer because the
// API returns null when nothing is loaded.
type PlaybackState struct {
	IsPlaying    bool       `json:"is_playing"`
	ProgressMs   int64      `json:"progress_ms"`
	ShuffleState bool       `json:"shuffle_state"`
	RepeatState  string     `json:"repeat_state"`
	Item         *TrackItem `json:"item"`
}

// Client is a minimal Spotify Web API client scoped to playback control
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *logrus.Entry
}

// NewClient creates an API client backed by the given token source
func NewClient(tokens TokenSource, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
		logger:     logger.WithField("component", "spotify-api"),
	}
}

// CurrentlyPlaying fetches the playback state. A 204 means no active session
// and yields (nil, nil) rather than an error; the caller maps it to the same
// unavailable shape as local player absence.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*PlaybackState, error) {
	resp, err := c.do(ctx, http.MethodGet, "/me/player", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var state PlaybackState
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return nil, fmt.Errorf("malformed playback state: %w", err)
		}
		return &state, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, apiError(resp)
	}
}

// Play resumes playback on the active device
func (c *Client) Play(ctx context.Context) error {
	return c.command(ctx, http.MethodPut, "/me/player/play", nil)
}

// Pause pauses playback
func (c *Client) Pause(ctx context.Context) error {
	return c.command(ctx, http.MethodPut, "/me/player/pause", nil)
}

// Next skips to the next track
func (c *Client) Next(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, "/me/player/next", nil)
}

// Previous skips to the previous track
func (c *Client) Previous(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, "/me/player/previous", nil)
}

// Seek jumps to an absolute position
func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	query := url.Values{"position_ms": {strconv.FormatInt(positionMs, 10)}}
	return c.command(ctx, http.MethodPut, "/me/player/seek", query)
}

// SetVolume sets the volume percentage (0..100)
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	query := url.Values{"volume_percent": {strconv.Itoa(percent)}}
	return c.command(ctx, http.MethodPut, "/me/player/volume", query)
}

// SetShuffle enables or disables shuffle
func (c *Client) SetShuffle(ctx context.Context, on bool) error {
	query := url.Values{"state": {strconv.FormatBool(on)}}
	return c.command(ctx, http.MethodPut, "/me/player/shuffle", query)
}

// SetRepeat sets the repeat state ("off", "track" or "context")
func (c *Client) SetRepeat(ctx context.Context, state string) error {
	query := url.Values{"state": {state}}
	return c.command(ctx, http.MethodPut, "/me/player/repeat", query)
}

// command issues a control request. 200 and 204 both mean success for
// writes; everything else becomes an APIError.
func (c *Client) command(ctx context.Context, method, path string, query url.Values) error {
	resp, err := c.do(ctx, method, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return apiError(resp)
	}
}

// do builds and executes one authenticated request. Without a usable token
// no network call is made at all.
func (c *Client) do(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify request failed: %w", err)
	}
	return resp, nil
}

// apiError reads the error body (best effort) and wraps the status
func apiError(resp *http.Response) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &body)
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error.Message}
}
