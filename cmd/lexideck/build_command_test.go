package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lexideck/internal/cards"
	"lexideck/internal/mediacache"
)

func TestBuildWritesManifestAndReusesCache(t *testing.T) {
	env := setupCLITestEnv(t, "")
	manifestPath := filepath.Join(t.TempDir(), "deck.json")
	bundleDir := filepath.Join(t.TempDir(), "media")

	out, _, err := runCLI(t, []string{"build", env.input, "--out", manifestPath, "--bundle-dir", bundleDir, "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, "Wrote 2 cards")
	requireContains(t, out, "(German)")
	requireContains(t, out, "Bundled media: 7 copied")

	manifest, err := cards.ReadManifest(manifestPath)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(manifest.Notes) != 2 || len(manifest.Media) != 7 {
		t.Fatalf("manifest has %d notes and %d media", len(manifest.Notes), len(manifest.Media))
	}
	if manifest.RunID == "" {
		t.Fatal("expected run id in manifest")
	}
	for _, name := range manifest.Media {
		if _, err := os.Stat(filepath.Join(bundleDir, name)); err != nil {
			t.Fatalf("bundled media %s: %v", name, err)
		}
	}

	ttsCalls, imageCalls := env.ttsCalls.Load(), env.imageCalls.Load()
	if ttsCalls != 5 || imageCalls != 2 {
		t.Fatalf("first build made %d speech and %d image calls", ttsCalls, imageCalls)
	}

	out, _, err = runCLI(t, []string{"build", env.input, "--out", manifestPath, "--bundle-dir", bundleDir, "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if env.ttsCalls.Load() != ttsCalls || env.imageCalls.Load() != imageCalls {
		t.Fatal("second build should be served from the cache")
	}
	requireContains(t, out, "7 already present")
}

func TestBuildSkipsCardWithoutWordAudio(t *testing.T) {
	env := setupCLITestEnv(t, "der Baum")
	manifestPath := filepath.Join(t.TempDir(), "deck.json")

	out, _, err := runCLI(t, []string{"build", "--out", manifestPath, "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, "Wrote 1 cards")
	requireContains(t, out, "Skipped 1 cards")
	requireContains(t, out, "(card skipped)")

	manifest, err := cards.ReadManifest(manifestPath)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(manifest.Skipped) != 1 || manifest.Summary.Usable != 1 {
		t.Fatalf("skipped = %v, usable = %d", manifest.Skipped, manifest.Summary.Usable)
	}
}

func TestBuildJSONReport(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"build", "--json", "--out", filepath.Join(t.TempDir(), "deck.json")}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var report buildReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v (%q)", err, out)
	}
	if report.Notes != 2 || report.Summary.Records != 2 || report.Governor.MaxLimit != 2 {
		t.Fatalf("report = %+v", report)
	}
}

func TestBuildMissingInput(t *testing.T) {
	env := setupCLITestEnv(t, "")
	if _, _, err := runCLI(t, []string{"build", filepath.Join(t.TempDir(), "missing.csv")}, env.configPath); err == nil {
		t.Fatal("expected error for missing vocabulary file")
	}
}

func TestCacheCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")
	if _, _, err := runCLI(t, []string{"build", "--no-progress", "--out", filepath.Join(t.TempDir(), "deck.json")}, env.configPath); err != nil {
		t.Fatalf("build: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	var stats mediacache.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Entries != 7 || len(stats.Kinds) != 3 {
		t.Fatalf("stats = %+v", stats)
	}

	out, _, err = runCLI(t, []string{"cache", "list", "--kind", "image"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "_image_")

	out, _, err = runCLI(t, []string{"cache", "prune"}, env.configPath)
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "already consistent")

	if _, _, err := runCLI(t, []string{"cache", "clear"}, env.configPath); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}
	out, _, err = runCLI(t, []string{"cache", "clear", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 7 cached artifacts")
}
