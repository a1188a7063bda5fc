package cards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lexideck/internal/fileutil"
	"lexideck/internal/pipeline"
	"lexideck/internal/textutil"
)

const manifestVersion = 1

// Manifest is the JSON document written at the end of a build.
type Manifest struct {
	Version     int              `json:"version"`
	Deck        string           `json:"deck"`
	Language    string           `json:"language"`
	RunID       string           `json:"run_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	MediaDir    string           `json:"media_dir"`
	Summary     pipeline.Summary `json:"summary"`
	Notes       []Note           `json:"notes"`
	Skipped     []string         `json:"skipped,omitempty"`
	Media       []string         `json:"media"`
}

// NewManifest wraps deck with run metadata.
func NewManifest(name, language, mediaDir string, deck Deck, summary pipeline.Summary) Manifest {
	return Manifest{
		Version:     manifestVersion,
		Deck:        name,
		Language:    language,
		GeneratedAt: time.Now().UTC(),
		MediaDir:    mediaDir,
		Summary:     summary,
		Notes:       deck.Notes,
		Skipped:     deck.Skipped,
		Media:       deck.Media,
	}
}

// DefaultManifestPath names the manifest after the deck inside outputDir.
func DefaultManifestPath(outputDir, deckName string) string {
	name := textutil.SanitizeFileName(strings.TrimSpace(deckName))
	if name == "" {
		name = "deck"
	}
	return filepath.Join(outputDir, name+".json")
}

// WriteManifest writes m to path atomically.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// BundleResult counts files handled by Bundle.
type BundleResult struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
}

// Bundle copies the named media files from mediaDir into dir. Files already
// present with the same size are left alone.
func Bundle(dir, mediaDir string, media []string) (BundleResult, error) {
	var result BundleResult
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("create bundle directory: %w", err)
	}
	for _, name := range media {
		src := filepath.Join(mediaDir, name)
		dst := filepath.Join(dir, filepath.Base(name))
		if fileutil.SameFile(src, dst) {
			result.Skipped++
			continue
		}
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			return result, fmt.Errorf("bundle %s: %w", name, err)
		}
		result.Copied++
	}
	return result, nil
}
