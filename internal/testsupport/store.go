package testsupport

import (
	"context"
	"testing"

	"aerial/internal/config"
	"aerial/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a pending scan run for tests using the provided store.
func NewRun(t testing.TB, store *queue.Store, origin string) *queue.Run {
	t.Helper()

	run, err := store.NewRun(context.Background(), origin)
	if err != nil {
		t.Fatalf("store.NewRun: %v", err)
	}
	return run
}
