package testsupport

import (
	"path/filepath"
	"testing"

	"lexideck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are shortened so failure paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.InputFile = filepath.Join(base, "vocabulary.csv")
	cfgVal.Pipeline.RetryLimit = 1
	cfgVal.Pipeline.FetchTimeoutSeconds = 5
	cfgVal.Pipeline.RetryBaseDelayMS = 1
	cfgVal.Pipeline.RetryMaxDelayMS = 5
	cfgVal.Deck.Shuffle = false
	cfgVal.Image.TimeoutSeconds = 5
	cfgVal.TTS.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTTSServer points the speech client at url.
func WithTTSServer(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.BaseURL = url
	}
}

// WithImageServer points the image client at url and enables images.
func WithImageServer(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Image.Enabled = true
		b.cfg.Image.BaseURL = url
	}
}

// WithoutImages disables illustration requests.
func WithoutImages() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Image.Enabled = false
	}
}

// WithConcurrency overrides the global fetch ceiling.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.MaxConcurrency = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MediaDir)
}
