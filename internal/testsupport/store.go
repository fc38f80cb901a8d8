package testsupport

import (
	"testing"

	"shinkan/internal/catalog"
	"shinkan/internal/config"
)

// MustOpenStore opens a catalog store for tests and closes it on cleanup.
func MustOpenStore(t *testing.T, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog store: %v", err)
		}
	})
	return store
}
