package spotify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// expirySkew is subtracted from a token's expiry before it is considered
// usable, so a token is refreshed before it actually lapses mid-request.
const expirySkew = 60 * time.Second

// TokenSet holds the OAuth2 credential state for the remote backend
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAtMs  int64  `json:"expires_at_ms"`
}

// Empty reports whether no tokens have ever been obtained
func (t TokenSet) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// UsableAt reports whether the access token is valid at the given instant,
// accounting for the expiry skew.
func (t TokenSet) UsableAt(now time.Time) bool {
	if t.AccessToken == "" || t.ExpiresAtMs == 0 {
		return false
	}
	return now.UnixMilli() < t.ExpiresAtMs-expirySkew.Milliseconds()
}

// Store persists a TokenSet across restarts
type Store interface {
	Load() (TokenSet, error)
	Save(TokenSet) error
	Clear() error
}

// FileStore persists tokens as a JSON file with owner-only permissions
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a token store at the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored token set. A missing file yields an empty set.
func (s *FileStore) Load() (TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return TokenSet{}, nil
		}
		return TokenSet{}, fmt.Errorf("failed to read token file: %w", err)
	}

	var tokens TokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		return TokenSet{}, fmt.Errorf("failed to parse token file: %w", err)
	}
	return tokens, nil
}

// Save writes the token set atomically via a temp file rename
func (s *FileStore) Save(tokens TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Clear removes the stored token set
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
