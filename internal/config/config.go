package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and input locations.
type Paths struct {
	MediaDir  string `toml:"media_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	InputFile string `toml:"input_file"`
}

// Pipeline contains scheduling and retry settings for media fetching.
type Pipeline struct {
	MaxConcurrency      int `toml:"max_concurrency"`
	RetryLimit          int `toml:"retry_limit"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
	ThrottleDecay       int `toml:"throttle_decay"`
	RecordParallelism   int `toml:"record_parallelism"`
	RetryBaseDelayMS    int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS     int `toml:"retry_max_delay_ms"`
}

// Deck contains settings for turning vocabulary rows into cards.
type Deck struct {
	Name           string `toml:"name"`
	Language       string `toml:"language"`
	StripPattern   string `toml:"strip_pattern"`
	MaxSentences   int    `toml:"max_sentences"`
	MinImagePrompt int    `toml:"min_image_prompt"`
	Shuffle        bool   `toml:"shuffle"`
	MediaRevision  string `toml:"media_revision"`
}

// TTS contains configuration for the speech synthesis endpoint.
type TTS struct {
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key"`
	Voices         []string `toml:"voices"`
	WordVolume     string   `toml:"word_volume"`
	SentenceVolume string   `toml:"sentence_volume"`
	Format         string   `toml:"format"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Image contains configuration for the illustration generator.
type Image struct {
	Enabled           bool    `toml:"enabled"`
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	Model             string  `toml:"model"`
	Width             int     `toml:"width"`
	Height            int     `toml:"height"`
	JPEGQuality       int     `toml:"jpeg_quality"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the optional Prometheus endpoint.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for lexideck.
//
// Configuration sections by subsystem:
//   - Paths: media cache, logs, output manifests, default vocabulary file
//   - Pipeline: concurrency ceiling, retries, timeouts, backoff recovery
//   - Deck: language, article stripping, sentence and prompt rules
//   - TTS: speech synthesis endpoint and voices
//   - Image: illustration generator endpoint and output size
//   - Logging: log format and level
//   - Metrics: Prometheus listener address
type Config struct {
	Paths    Paths    `toml:"paths"`
	Pipeline Pipeline `toml:"pipeline"`
	Deck     Deck     `toml:"deck"`
	TTS      TTS      `toml:"tts"`
	Image    Image    `toml:"image"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lexideck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the media, log, and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MediaDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FetchTimeout returns the per-attempt deadline applied to every fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Pipeline.FetchTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the first backoff delay between fetch attempts.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Pipeline.RetryBaseDelayMS) * time.Millisecond
}

// RetryMaxDelay returns the upper bound for backoff delays.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Pipeline.RetryMaxDelayMS) * time.Millisecond
}

// LogFilePath returns the file that receives a copy of all log output, or an
// empty string when file logging is disabled.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "lexideck.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "lexideck")
	}
	return "~/.local/share/lexideck"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
