package testsupport

import (
	"context"
	"testing"

	"lexideck/internal/config"
	"lexideck/internal/mediacache"
)

// MustOpenCache opens the media cache configured in cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *mediacache.Cache {
	t.Helper()

	cache, err := mediacache.Open(context.Background(), cfg.Paths.MediaDir, mediacache.WithRevision(cfg.Deck.MediaRevision))
	if err != nil {
		t.Fatalf("mediacache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}
