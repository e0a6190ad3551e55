package spotify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSetUsableAt(t *testing.T) {
	now := time.Now()
	set := TokenSet{
		AccessToken: "token",
		ExpiresAtMs: now.Add(time.Hour).UnixMilli(),
	}

	assert.True(t, set.UsableAt(now))

	// Inside the skew window the token counts as expired even though the
	// wall-clock expiry has not passed yet.
	assert.False(t, set.UsableAt(now.Add(time.Hour-30*time.Second)))
	assert.False(t, set.UsableAt(now.Add(2*time.Hour)))

	assert.False(t, TokenSet{}.UsableAt(now))
	assert.False(t, TokenSet{AccessToken: "token"}.UsableAt(now))
}

func TestTokenSetEmpty(t *testing.T) {
	assert.True(t, TokenSet{}.Empty())
	assert.False(t, TokenSet{AccessToken: "a"}.Empty())
	assert.False(t, TokenSet{RefreshToken: "r"}.Empty())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store := NewFileStore(path)

	// A store that has never been written loads as empty, not as an error.
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Empty())

	saved := TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAtMs:  1234567890,
	}
	require.NoError(t, store.Save(saved))

	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(TokenSet{AccessToken: "a"}))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Empty())

	// Clearing an already-cleared store is not an error.
	require.NoError(t, store.Clear())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}
