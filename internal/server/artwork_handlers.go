package server

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"baton/internal/cache"
)

// artworkHTTPClient fetches remote cover images with a bounded timeout
var artworkHTTPClient = &http.Client{Timeout: 10 * time.Second}

// handleArtwork serves the current track's artwork. Remote URLs are proxied
// and cached so a UI polling every second does not hammer the image host;
// file:// URLs are read directly; tracks with no artwork URL fall back to
// embedded artwork probed from the audio file itself.
func (s *Server) handleArtwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.manager.State()

	if art, ok := s.resolveArtwork(state.ArtURL, state.TrackURL); ok {
		w.Header().Set("Content-Type", art.MimeType)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write(art.Data)
		return
	}

	http.Error(w, "No artwork available", http.StatusNotFound)
}

// resolveArtwork tries the artwork URL first and the track file second
func (s *Server) resolveArtwork(artURL, trackURL string) (cache.Artwork, bool) {
	if artURL != "" {
		if art, ok := s.artwork.GetArtwork(artURL); ok {
			return art, true
		}
		if art, ok := s.fetchArtwork(artURL); ok {
			s.artwork.SetArtwork(artURL, art)
			return art, true
		}
	}

	if s.prober != nil && strings.HasPrefix(trackURL, "file://") {
		path := strings.TrimPrefix(trackURL, "file://")
		if decoded, err := url.PathUnescape(path); err == nil {
			path = decoded
		}
		if art, ok := s.artwork.GetArtwork(trackURL); ok {
			return art, true
		}
		if data, mimeType, ok := s.prober.EmbeddedArtwork(path); ok {
			art := cache.Artwork{Data: data, MimeType: mimeType}
			s.artwork.SetArtwork(trackURL, art)
			return art, true
		}
	}

	return cache.Artwork{}, false
}

// fetchArtwork loads artwork bytes from a remote or file URL
func (s *Server) fetchArtwork(artURL string) (cache.Artwork, bool) {
	switch {
	case strings.HasPrefix(artURL, "http://"), strings.HasPrefix(artURL, "https://"):
		resp, err := artworkHTTPClient.Get(artURL)
		if err != nil {
			s.logger.WithError(err).Debug("Artwork download failed")
			return cache.Artwork{}, false
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return cache.Artwork{}, false
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return cache.Artwork{}, false
		}

		mimeType := resp.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		return cache.Artwork{Data: data, MimeType: mimeType}, true

	case strings.HasPrefix(artURL, "file://"):
		path := strings.TrimPrefix(artURL, "file://")
		if decoded, err := url.PathUnescape(path); err == nil {
			path = decoded
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return cache.Artwork{}, false
		}
		return cache.Artwork{Data: data, MimeType: http.DetectContentType(data)}, true
	}

	return cache.Artwork{}, false
}
