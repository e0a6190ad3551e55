// Package probe inspects local audio files directly when the bridge reports
// incomplete metadata: a zero mpris:length, or a track with no artwork URL.
// Everything here is best-effort; a file that cannot be parsed simply yields
// no result.
package probe

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Prober reads durations and embedded artwork from local audio files.
// Results are cached per path since the poller may ask every second while the
// same track plays.
type Prober struct {
	logger *logrus.Entry

	mu        sync.RWMutex
	durations map[string]time.Duration
}

// New creates a prober
func New(logger *logrus.Logger) *Prober {
	return &Prober{
		logger:    logger.WithField("component", "probe"),
		durations: make(map[string]time.Duration),
	}
}

// Duration resolves the duration of a local audio file
func (p *Prober) Duration(path string) (time.Duration, bool) {
	p.mu.RLock()
	cached, ok := p.durations[path]
	p.mu.RUnlock()
	if ok {
		return cached, cached > 0
	}

	duration, err := fileDuration(path)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Debug("Duration probe failed")
		duration = 0
	}

	p.mu.Lock()
	p.durations[path] = duration
	p.mu.Unlock()

	return duration, duration > 0
}

// EmbeddedArtwork extracts embedded artwork from a local audio file,
// returning the image bytes and their MIME type.
func (p *Prober) EmbeddedArtwork(path string) ([]byte, string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", false
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Debug("Artwork probe failed")
		return nil, "", false
	}

	picture := metadata.Picture()
	if picture == nil || len(picture.Data) == 0 {
		return nil, "", false
	}

	mimeType := picture.MIMEType
	if mimeType == "" {
		mimeType = sniffImageType(picture.Data)
	}
	return picture.Data, mimeType, true
}

// fileDuration dispatches on the file extension
func fileDuration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return durationMP3(path)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path)
	default:
		return 0, errors.New("unsupported format")
	}
}

// durationMP3 sums frame durations; partial decodes keep what they have
func durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return 0, err
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

// durationFLAC reads the STREAMINFO metadata block
func durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	info := stream.Info
	if info.NSamples == 0 || info.SampleRate == 0 {
		return 0, errors.New("flac stream missing sample info")
	}
	seconds := float64(info.NSamples) / float64(info.SampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}

// durationWAV approximates from the header and file size; counting every
// sample would mean decoding the whole file.
func durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, errors.New("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}

	const headerSize = 44
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerFrame <= 0 {
		return 0, errors.New("invalid sample frame size")
	}
	frames := pcmBytes / bytesPerFrame
	seconds := float64(frames) / float64(dec.SampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}

// sniffImageType guesses a MIME type from magic bytes
func sniffImageType(data []byte) string {
	if len(data) >= 4 {
		if data[0] == 0xFF && data[1] == 0xD8 {
			return "image/jpeg"
		}
		if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
			return "image/png"
		}
		if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
			return "image/gif"
		}
	}
	return "application/octet-stream"
}
