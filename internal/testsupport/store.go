package testsupport

import (
	"testing"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg.QueueDatabasePath())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLessonStore opens a lessons.Store for tests and registers cleanup.
func MustOpenLessonStore(t testing.TB, cfg *config.Config) *lessons.Store {
	t.Helper()

	store, err := lessons.OpenStore(cfg.LessonDatabasePath())
	if err != nil {
		t.Fatalf("lessons.OpenStore: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
