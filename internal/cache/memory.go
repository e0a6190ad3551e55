package cache

import (
	"sync"
	"time"
)

// entry is a cached item with expiration
type entry struct {
	value      interface{}
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// Memory implements a simple in-memory TTL cache
type Memory struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemory creates a memory cache with the given TTL and starts the
// background cleanup loop.
func NewMemory(ttl time.Duration) *Memory {
	c := &Memory{
		items: make(map[string]*entry),
		ttl:   ttl,
	}
	go c.cleanupExpired()
	return c
}

// Set stores a value in the cache
func (c *Memory) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *Memory) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired() {
		return nil, false
	}
	return e.value, true
}

// Delete removes a value from the cache
func (c *Memory) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Size returns the number of items in the cache
func (c *Memory) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// cleanupExpired removes expired entries periodically
func (c *Memory) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, e := range c.items {
			if e.expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Artwork is the bytes+MIME pair cached per artwork URL or track path
type Artwork struct {
	Data     []byte
	MimeType string
}

// ArtworkCache caches fetched artwork so the UI polling every second does
// not re-download the same cover image.
type ArtworkCache struct {
	*Memory
}

// NewArtworkCache creates an artwork cache with the given TTL
func NewArtworkCache(ttl time.Duration) *ArtworkCache {
	return &ArtworkCache{Memory: NewMemory(ttl)}
}

// SetArtwork caches one artwork blob
func (c *ArtworkCache) SetArtwork(key string, art Artwork) {
	c.Set(key, art)
}

// GetArtwork retrieves a cached artwork blob
func (c *ArtworkCache) GetArtwork(key string) (Artwork, bool) {
	value, exists := c.Get(key)
	if !exists {
		return Artwork{}, false
	}
	art, ok := value.(Artwork)
	return art, ok
}
