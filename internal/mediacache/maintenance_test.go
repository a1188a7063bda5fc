package mediacache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStatsAggregatesByKind(t *testing.T) {
	ctx := context.Background()
	cache, err := Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer cache.Close()
	cache.statfs = func(string) (uint64, uint64, error) { return 1000, 250, nil }

	mustStore(t, cache, Key{Kind: "image", Content: "one", Ext: ".jpg"}, 10)
	mustStore(t, cache, Key{Kind: "image", Content: "two", Ext: ".jpg"}, 20)
	mustStore(t, cache, Key{Kind: "word_audio", Content: "drei", Ext: ".mp3"}, 5)

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 3 || stats.TotalBytes != 35 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.Kinds) != 2 || stats.Kinds[0].Kind != "image" || stats.Kinds[0].Entries != 2 {
		t.Fatalf("unexpected per-kind stats: %+v", stats.Kinds)
	}
	if stats.FreeRatio != 0.25 {
		t.Fatalf("unexpected free ratio: %v", stats.FreeRatio)
	}

	images, err := cache.List(ctx, "image", 1)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(images) != 1 || images[0].Kind != "image" {
		t.Fatalf("unexpected filtered list: %+v", images)
	}
}

func TestPruneReconcilesDirectoryAndIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cache, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer cache.Close()

	gone := Key{Kind: "image", Content: "deleted behind our back", Ext: ".jpg"}
	mustStore(t, cache, gone, 8)
	if err := os.Remove(cache.Path(gone)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	orphan := Key{Kind: "sentence_audio", Content: "copied from another machine", Ext: ".mp3"}
	if err := os.WriteFile(cache.Path(orphan), []byte("audio"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tempFilePrefix+"abandoned"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	empty := Key{Kind: "word_audio", Content: "truncated", Ext: ".mp3"}
	if err := os.WriteFile(cache.Path(empty), nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	result, err := cache.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	want := PruneResult{RemovedRows: 1, RemovedTemp: 1, RemovedEmpty: 1, Adopted: 1}
	if result != want {
		t.Fatalf("Prune = %+v, want %+v", result, want)
	}
	entries, err := cache.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "sentence_audio" {
		t.Fatalf("unexpected entries after prune: %+v", entries)
	}
}

func TestClearRemovesArtifactsButKeepsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cache, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer cache.Close()

	mustStore(t, cache, Key{Kind: "image", Content: "x", Ext: ".jpg"}, 4)
	mustStore(t, cache, Key{Kind: "word_audio", Content: "y", Ext: ".mp3"}, 4)
	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write foreign: %v", err)
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign file should survive clear: %v", err)
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected empty index, got %d", stats.Entries)
	}
}

func TestClearBlockedByBuildLock(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	builder, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open builder: %v", err)
	}
	defer builder.Close()
	maintainer, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open maintainer: %v", err)
	}
	defer maintainer.Close()

	release, err := builder.LockShared()
	if err != nil {
		t.Fatalf("LockShared returned error: %v", err)
	}
	if _, err := maintainer.Clear(ctx); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked during build, got %v", err)
	}
	release()
	if _, err := maintainer.Clear(ctx); err != nil {
		t.Fatalf("Clear after release returned error: %v", err)
	}
}

func TestParseFileName(t *testing.T) {
	key := Key{Kind: "word_audio", Content: "Hund", Ext: ".mp3"}
	name := key.FileName("v1")
	kind, digest, ok := parseFileName(name)
	if !ok || kind != "word_audio" || len(digest) != digestLength {
		t.Fatalf("parseFileName(%q) = %q %q %v", name, kind, digest, ok)
	}
	for _, bad := range []string{"index.db", "_short.mp3", ".tmp-123", "_image_zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz.jpg"} {
		if _, _, ok := parseFileName(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func mustStore(t *testing.T, cache *Cache, key Key, size int) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	if _, err := cache.Store(context.Background(), key, data); err != nil {
		t.Fatalf("Store(%s) returned error: %v", key.Content, err)
	}
}
