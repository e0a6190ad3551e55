package player

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RepeatMode is the canonical repeat setting shared by both backends
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatTrack
	RepeatPlaylist
)

// String returns the mode name the local bridge understands
func (m RepeatMode) String() string {
	switch m {
	case RepeatTrack:
		return "Track"
	case RepeatPlaylist:
		return "Playlist"
	default:
		return "None"
	}
}

// Next advances the fixed cycle None -> Track -> Playlist -> None
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatTrack
	case RepeatTrack:
		return RepeatPlaylist
	default:
		return RepeatNone
	}
}

// ParseRepeatMode parses a mode name, case-insensitively
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return RepeatNone, nil
	case "track":
		return RepeatTrack, nil
	case "playlist", "context":
		return RepeatPlaylist, nil
	}
	return RepeatNone, fmt.Errorf("unknown repeat mode: %q", s)
}

// MarshalJSON encodes the mode as its name
func (m RepeatMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode name
func (m *RepeatMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseRepeatMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// State is the canonical, backend-agnostic player state. A fresh value is
// produced on every poll; nothing mutates a published State.
type State struct {
	Available  bool       `json:"available"`
	Playing    bool       `json:"playing"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Album      string     `json:"album"`
	ArtURL     string     `json:"artUrl"`
	ProgressMs int64      `json:"progress_ms"`
	DurationMs int64      `json:"duration_ms"`
	Shuffle    bool       `json:"shuffle"`
	Repeat     RepeatMode `json:"loop"`
	Error      string     `json:"error,omitempty"`

	// TrackURL is the xesam:url of the current track when the local backend
	// knows it. Internal (artwork fallback); never serialized.
	TrackURL string `json:"-"`
}

// Unavailable returns the shape both backends use when nothing can be
// queried. The diagnostic text is informational only; callers must not branch
// on it.
func Unavailable(diagnostic string) State {
	return State{Error: diagnostic}
}

// Progress returns the playback position as a ratio in [0,1]. Backends may
// report positions past the track length, so the ratio is clamped. A zero
// duration means unknown or live and yields 0.
func (s State) Progress() float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	ratio := float64(s.ProgressMs) / float64(s.DurationMs)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// TrackKey identifies the current track for change detection (history,
// Discord presence). Empty when no track is loaded.
func (s State) TrackKey() string {
	if !s.Available || s.Title == "" {
		return ""
	}
	return s.Artist + "\x00" + s.Title + "\x00" + s.Album
}
