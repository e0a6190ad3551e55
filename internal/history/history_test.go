package history

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), testLogger())
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	if err := store.Record("Song A", "Artist", "Album", "local"); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := store.Record("Song B", "Artist", "Album", "remote"); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Song B" {
		t.Errorf("Expected newest first, got %q", entries[0].Title)
	}
	if entries[0].Source != "remote" || entries[1].Source != "local" {
		t.Errorf("Unexpected sources: %+v", entries)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("Expected unique non-empty row IDs")
	}
}

func TestRecentEmpty(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", entries)
	}
}

func TestRecentLimitClamping(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.Record("Song", "Artist", "Album", "local"); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
	}

	entries, err := store.Recent(-1)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected clamped limit to return all rows, got %d", len(entries))
	}

	entries, err = store.Recent(2)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries with limit 2, got %d", len(entries))
	}
}

func TestRecorderDedup(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store, testLogger())

	// The same track observed over many poll ticks is one play.
	for i := 0; i < 5; i++ {
		rec.Observe("key-a", true, "Song A", "Artist", "Album", "local")
	}
	rec.Observe("key-b", true, "Song B", "Artist", "Album", "local")

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 deduped entries, got %d", len(entries))
	}
}

func TestRecorderSkipsPaused(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store, testLogger())

	rec.Observe("key-a", false, "Song A", "Artist", "Album", "local")

	entries, _ := store.Recent(10)
	if len(entries) != 0 {
		t.Errorf("Paused observations must not be recorded, got %d entries", len(entries))
	}
}

func TestRecorderResetOnIdle(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store, testLogger())

	rec.Observe("key-a", true, "Song A", "Artist", "Album", "local")
	// Player goes idle, then the same track is played again: a second play.
	rec.Observe("", false, "", "", "", "local")
	rec.Observe("key-a", true, "Song A", "Artist", "Album", "local")

	entries, _ := store.Recent(10)
	if len(entries) != 2 {
		t.Errorf("Expected replay after idle to be recorded, got %d entries", len(entries))
	}
}
