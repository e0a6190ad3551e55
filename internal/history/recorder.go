package history

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Recorder dedupes consecutive poll observations of the same track so one
// play becomes one row, not one row per poll tick.
type Recorder struct {
	store  *Store
	logger *logrus.Entry

	mu      sync.Mutex
	lastKey string
}

// NewRecorder creates a recorder over the given store
func NewRecorder(store *Store, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.WithField("component", "history"),
	}
}

// Observe records a track transition. The key identifies the track across
// ticks; an empty key (nothing playing) resets the dedup state so replaying
// the same track later is recorded again.
func (r *Recorder) Observe(key string, playing bool, title, artist, album, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == "" {
		r.lastKey = ""
		return
	}
	if !playing || key == r.lastKey {
		return
	}

	r.lastKey = key
	if err := r.store.Record(title, artist, album, source); err != nil {
		r.logger.WithError(err).Warn("Failed to record playback history")
	}
}
