package bridge

import (
	"errors"
	"strings"
	"testing"

	"baton/internal/config"
)

// fakeRunner records invocations and serves canned responses keyed by the
// joined argument string.
type fakeRunner struct {
	calls     []string
	responses map[string]string
	failAll   bool
}

func (f *fakeRunner) run(binary string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if f.failAll {
		return "", errors.New("exit status 1")
	}
	out, ok := f.responses[key]
	if !ok {
		return "", errors.New("exit status 1")
	}
	return out, nil
}

func newTestClient(f *fakeRunner) *Client {
	return NewClientWithRunner(config.BridgeConfig{Binary: "playerctl"}, f.run)
}

func TestSecondsToMs(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"30.0", 30000},
		{"30.5", 30500},
		{"0", 0},
		{"12.3456", 12345},
		{"-5", 0},
		{"garbage", 0},
	}
	for _, tc := range cases {
		if got := SecondsToMs(tc.in); got != tc.want {
			t.Errorf("SecondsToMs(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMicrosToMs(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"200000000", 200000},
		{"1500", 1},
		{"0", 0},
		{"-1", 0},
		{"not-a-number", 0},
	}
	for _, tc := range cases {
		if got := MicrosToMs(tc.in); got != tc.want {
			t.Errorf("MicrosToMs(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMetadataStructured(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{
		"metadata --format " + metadataFormat: "Song\tArtist\tAlbum\thttps://art\t30.0\t200000000\tfile:///music/song.mp3",
	}}
	c := newTestClient(f)

	md, ok := c.Metadata()
	if !ok {
		t.Fatal("Expected metadata to be available")
	}
	if md.Title != "Song" || md.Artist != "Artist" || md.Album != "Album" {
		t.Errorf("Unexpected tags: %+v", md)
	}
	if md.ArtURL != "https://art" {
		t.Errorf("Expected art URL, got %q", md.ArtURL)
	}
	if md.TrackURL != "file:///music/song.mp3" {
		t.Errorf("Expected track URL, got %q", md.TrackURL)
	}
	if md.PositionMs != 30000 {
		t.Errorf("Expected position 30000ms, got %d", md.PositionMs)
	}
	if md.DurationMs != 200000 {
		t.Errorf("Expected duration 200000ms, got %d", md.DurationMs)
	}
	if len(f.calls) != 1 {
		t.Errorf("Expected a single process spawn, got %d", len(f.calls))
	}
}

func TestMetadataFallbackPerField(t *testing.T) {
	// Structured output corrupted by a tab in the title: wrong column count
	// forces the per-field path.
	f := &fakeRunner{responses: map[string]string{
		"metadata --format " + metadataFormat: "Bad\tTitle\tArtist\tAlbum\tart\t30.0\t200000000\turl",
		"metadata title":                      "Bad\tTitle",
		"metadata artist":                     "Artist",
		"metadata album":                      "Album",
		"metadata mpris:artUrl":               "https://art",
		"metadata xesam:url":                  "file:///x.mp3",
		"position":                            "12.5",
		"metadata mpris:length":               "180000000",
	}}
	c := newTestClient(f)

	md, ok := c.Metadata()
	if !ok {
		t.Fatal("Expected fallback metadata to be available")
	}
	if md.Artist != "Artist" || md.Album != "Album" {
		t.Errorf("Unexpected fallback tags: %+v", md)
	}
	if md.PositionMs != 12500 || md.DurationMs != 180000 {
		t.Errorf("Unexpected fallback timing: %+v", md)
	}
}

func TestMetadataFallbackRequiresTitle(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{
		"metadata --format " + metadataFormat: "only\ttwo",
	}}
	c := newTestClient(f)

	if _, ok := c.Metadata(); ok {
		t.Error("Expected metadata to be unavailable when the title query fails")
	}
}

func TestMetadataUnavailable(t *testing.T) {
	c := newTestClient(&fakeRunner{failAll: true})
	if _, ok := c.Metadata(); ok {
		t.Error("Expected metadata to be unavailable when every spawn fails")
	}
}

func TestStatus(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{"status": "Playing"}}
	c := newTestClient(f)

	status, ok := c.Status()
	if !ok || status != StatusPlaying {
		t.Errorf("Expected Playing, got %q (ok=%v)", status, ok)
	}

	f.responses["status"] = "Buffering"
	if _, ok := c.Status(); ok {
		t.Error("Expected unknown status strings to be unavailable")
	}
}

func TestShuffle(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{"shuffle": "On"}}
	c := newTestClient(f)

	on, ok := c.Shuffle()
	if !ok || !on {
		t.Errorf("Expected shuffle on, got %v (ok=%v)", on, ok)
	}

	f.responses["shuffle"] = "Off"
	on, ok = c.Shuffle()
	if !ok || on {
		t.Errorf("Expected shuffle off, got %v (ok=%v)", on, ok)
	}
}

func TestPlayerScoping(t *testing.T) {
	var got []string
	run := func(binary string, args ...string) (string, error) {
		got = args
		return "Playing", nil
	}
	c := NewClientWithRunner(config.BridgeConfig{Binary: "playerctl", Player: "spotifyd"}, run)

	c.Status()
	if len(got) < 2 || got[0] != "--player" || got[1] != "spotifyd" {
		t.Errorf("Expected --player spotifyd prefix, got %v", got)
	}
}

func TestListPlayers(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{
		"--list-all": "spotify\nmpv\n",
	}}
	c := newTestClient(f)

	players := c.ListPlayers()
	if len(players) != 2 || players[0] != "spotify" || players[1] != "mpv" {
		t.Errorf("Unexpected player list: %v", players)
	}

	c = newTestClient(&fakeRunner{failAll: true})
	if players := c.ListPlayers(); players != nil {
		t.Errorf("Expected nil player list on failure, got %v", players)
	}
}

func TestCommandReportsFailure(t *testing.T) {
	c := newTestClient(&fakeRunner{failAll: true})
	if c.Command("play-pause") {
		t.Error("Expected command to report failure when the spawn fails")
	}
	if c.SetPosition(30) {
		t.Error("Expected seek to report failure when the spawn fails")
	}
}
