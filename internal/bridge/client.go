// Package bridge invokes the playerctl command-line tool to query and control
// local MPRIS media players. playerctl exits non-zero both when no player is
// running and when the binary itself is missing; the client collapses every
// failure into an "unavailable" result instead of an error, because callers
// cannot meaningfully distinguish the two cases.
package bridge

import (
	"bytes"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"baton/internal/config"
)

// Status is the playback status reported by the bridge
type Status string

const (
	StatusPlaying Status = "Playing"
	StatusPaused  Status = "Paused"
	StatusStopped Status = "Stopped"
)

// Metadata holds the fields of one metadata query, normalized to milliseconds
type Metadata struct {
	Title      string
	Artist     string
	Album      string
	ArtURL     string
	TrackURL   string
	PositionMs int64
	DurationMs int64
}

// Runner executes the bridge binary once and returns its stdout.
// Swappable so tests can run without playerctl installed.
type Runner func(binary string, args ...string) (string, error)

// Client wraps one playerctl installation
type Client struct {
	binary string
	player string
	run    Runner
}

// metadataFormat asks for every field in one process spawn. Tab-separated
// because titles containing "|" are common enough to corrupt other separators.
const metadataFormat = "{{title}}\t{{artist}}\t{{album}}\t{{mpris:artUrl}}\t{{position}}\t{{mpris:length}}\t{{xesam:url}}"

// NewClient creates a bridge client for the configured binary
func NewClient(cfg config.BridgeConfig) *Client {
	return &Client{
		binary: cfg.Binary,
		player: cfg.Player,
		run:    execRunner,
	}
}

// NewClientWithRunner creates a client with a custom runner (used in tests)
func NewClientWithRunner(cfg config.BridgeConfig, run Runner) *Client {
	return &Client{
		binary: cfg.Binary,
		player: cfg.Player,
		run:    run,
	}
}

// execRunner is the default runner, spawning one process per call
func execRunner(binary string, args ...string) (string, error) {
	cmd := exec.Command(binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// query runs one bridge invocation, scoped to the configured player if set
func (c *Client) query(args ...string) (string, bool) {
	if c.player != "" {
		args = append([]string{"--player", c.player}, args...)
	}
	out, err := c.run(c.binary, args...)
	if err != nil {
		return "", false
	}
	return out, true
}

// Metadata queries all metadata fields. It tries the single structured query
// first and falls back to one spawn per field when the structured output does
// not parse; track titles containing tab or quote characters corrupt the
// format often enough that the slow path has to stay.
func (c *Client) Metadata() (Metadata, bool) {
	out, ok := c.query("metadata", "--format", metadataFormat)
	if !ok {
		return Metadata{}, false
	}

	if md, parsed := parseStructured(out); parsed {
		return md, true
	}

	return c.metadataPerField()
}

// parseStructured splits the tab-separated format output
func parseStructured(out string) (Metadata, bool) {
	parts := strings.Split(out, "\t")
	if len(parts) != 7 {
		return Metadata{}, false
	}

	md := Metadata{
		Title:    strings.TrimSpace(parts[0]),
		Artist:   strings.TrimSpace(parts[1]),
		Album:    strings.TrimSpace(parts[2]),
		ArtURL:   strings.TrimSpace(parts[3]),
		TrackURL: strings.TrimSpace(parts[6]),
	}
	md.PositionMs = SecondsToMs(strings.TrimSpace(parts[4]))
	md.DurationMs = MicrosToMs(strings.TrimSpace(parts[5]))
	return md, true
}

// metadataPerField is the fallback path: one process spawn per field
func (c *Client) metadataPerField() (Metadata, bool) {
	title, ok := c.query("metadata", "title")
	if !ok {
		return Metadata{}, false
	}

	md := Metadata{Title: title}
	if artist, ok := c.query("metadata", "artist"); ok {
		md.Artist = artist
	}
	if album, ok := c.query("metadata", "album"); ok {
		md.Album = album
	}
	if artURL, ok := c.query("metadata", "mpris:artUrl"); ok {
		md.ArtURL = artURL
	}
	if trackURL, ok := c.query("metadata", "xesam:url"); ok {
		md.TrackURL = trackURL
	}
	if pos, ok := c.query("position"); ok {
		md.PositionMs = SecondsToMs(pos)
	}
	if length, ok := c.query("metadata", "mpris:length"); ok {
		md.DurationMs = MicrosToMs(length)
	}
	return md, true
}

// Status returns the playback status
func (c *Client) Status() (Status, bool) {
	out, ok := c.query("status")
	if !ok {
		return "", false
	}
	switch Status(out) {
	case StatusPlaying, StatusPaused, StatusStopped:
		return Status(out), true
	}
	return "", false
}

// Shuffle returns the current shuffle state
func (c *Client) Shuffle() (bool, bool) {
	out, ok := c.query("shuffle")
	if !ok {
		return false, false
	}
	return strings.EqualFold(out, "On"), true
}

// ToggleShuffle flips the shuffle state
func (c *Client) ToggleShuffle() bool {
	_, ok := c.query("shuffle", "Toggle")
	return ok
}

// Loop returns the current loop mode (None, Track or Playlist)
func (c *Client) Loop() (string, bool) {
	return c.query("loop")
}

// SetLoop sets an absolute loop mode. playerctl has no relative "next mode"
// verb, so callers advance the cycle themselves.
func (c *Client) SetLoop(mode string) bool {
	_, ok := c.query("loop", mode)
	return ok
}

// SetPosition seeks to an absolute position in seconds
func (c *Client) SetPosition(seconds float64) bool {
	_, ok := c.query("position", strconv.FormatFloat(seconds, 'f', -1, 64))
	return ok
}

// SetVolume sets the player volume in the range 0..1
func (c *Client) SetVolume(volume float64) bool {
	_, ok := c.query("volume", strconv.FormatFloat(volume, 'f', -1, 64))
	return ok
}

// Command issues a plain transport verb (play, pause, play-pause, next, previous)
func (c *Client) Command(verb string) bool {
	_, ok := c.query(verb)
	return ok
}

// ListPlayers returns the identifiers of all running players
func (c *Client) ListPlayers() []string {
	out, ok := c.query("--list-all")
	if !ok || out == "" {
		return nil
	}
	var players []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			players = append(players, line)
		}
	}
	return players
}

// SecondsToMs converts playerctl's floating-point seconds to whole
// milliseconds, rounding down. Whole-second UI granularity makes the
// precision loss irrelevant.
func SecondsToMs(s string) int64 {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return int64(math.Floor(seconds * 1000))
}

// MicrosToMs converts mpris:length microseconds to whole milliseconds
func MicrosToMs(s string) int64 {
	micros, err := strconv.ParseInt(s, 10, 64)
	if err != nil || micros < 0 {
		return 0
	}
	return micros / 1000
}
