package probe

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func testProber() *Prober {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(logger)
}

func TestDurationUnsupportedFormat(t *testing.T) {
	p := testProber()
	if _, ok := p.Duration("/music/song.ogg"); ok {
		t.Error("Unsupported formats must yield no duration")
	}
}

func TestDurationMissingFile(t *testing.T) {
	p := testProber()
	if _, ok := p.Duration("/does/not/exist.mp3"); ok {
		t.Error("Missing files must yield no duration")
	}
}

func TestDurationCachesFailures(t *testing.T) {
	p := testProber()
	path := filepath.Join(t.TempDir(), "broken.flac")
	if err := os.WriteFile(path, []byte("not a flac"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, ok := p.Duration(path); ok {
		t.Fatal("Expected probe failure for corrupt file")
	}

	// The failure is cached; a second call must not re-parse.
	p.mu.RLock()
	_, cached := p.durations[path]
	p.mu.RUnlock()
	if !cached {
		t.Error("Expected failed probe result to be cached")
	}
	if _, ok := p.Duration(path); ok {
		t.Error("Cached failure must still report no duration")
	}
}

func TestEmbeddedArtworkMissingFile(t *testing.T) {
	p := testProber()
	if _, _, ok := p.EmbeddedArtwork("/does/not/exist.mp3"); ok {
		t.Error("Missing files must yield no artwork")
	}
}

func TestEmbeddedArtworkUntaggedFile(t *testing.T) {
	p := testProber()
	path := filepath.Join(t.TempDir(), "plain.mp3")
	if err := os.WriteFile(path, []byte("no tags here"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, _, ok := p.EmbeddedArtwork(path); ok {
		t.Error("Files without tags must yield no artwork")
	}
}

func TestSniffImageType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
		{"GIF", []byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
		{"Unknown", []byte{0x00, 0x01, 0x02, 0x03}, "application/octet-stream"},
		{"TooShort", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sniffImageType(tc.data); got != tc.want {
				t.Errorf("sniffImageType = %q, want %q", got, tc.want)
			}
		})
	}
}
