package config

import (
	"fmt"
	"os"
	"strings"

	"lexideck/internal/langcode"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDeck()
	c.normalizeTTS()
	c.normalizeImage()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.InputFile = strings.TrimSpace(c.Paths.InputFile)
	if c.Paths.InputFile == "" {
		c.Paths.InputFile = defaultInputFile
	}
	if c.Paths.InputFile, err = expandPath(c.Paths.InputFile); err != nil {
		return fmt.Errorf("paths.input_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeDeck() {
	c.Deck.Name = strings.TrimSpace(c.Deck.Name)
	if c.Deck.Name == "" {
		c.Deck.Name = defaultDeckName
	}
	c.Deck.Language = strings.TrimSpace(c.Deck.Language)
	if c.Deck.Language == "" {
		c.Deck.Language = defaultDeckLanguage
	}
	if code, ok := langcode.Normalize(c.Deck.Language); ok {
		c.Deck.Language = code
	}
	c.Deck.MediaRevision = strings.TrimSpace(c.Deck.MediaRevision)
	if c.Deck.MediaRevision == "" {
		c.Deck.MediaRevision = defaultMediaRevision
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("LEXIDECK_TTS_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	voices := make([]string, 0, len(c.TTS.Voices))
	seen := make(map[string]struct{}, len(c.TTS.Voices))
	for _, voice := range c.TTS.Voices {
		voice = strings.TrimSpace(voice)
		if voice == "" {
			continue
		}
		if _, exists := seen[voice]; exists {
			continue
		}
		seen[voice] = struct{}{}
		voices = append(voices, voice)
	}
	c.TTS.Voices = voices
	if strings.TrimSpace(c.TTS.WordVolume) == "" {
		c.TTS.WordVolume = defaultWordVolume
	}
	if strings.TrimSpace(c.TTS.SentenceVolume) == "" {
		c.TTS.SentenceVolume = defaultSentenceVolume
	}
	c.TTS.Format = strings.ToLower(strings.TrimSpace(c.TTS.Format))
	if c.TTS.Format == "" {
		c.TTS.Format = defaultAudioFormat
	}
}

func (c *Config) normalizeImage() {
	c.Image.BaseURL = strings.TrimSpace(c.Image.BaseURL)
	if c.Image.BaseURL == "" {
		c.Image.BaseURL = defaultImageBaseURL
	}
	c.Image.Model = strings.TrimSpace(c.Image.Model)
	if c.Image.Model == "" {
		c.Image.Model = defaultImageModel
	}
	c.Image.APIKey = strings.TrimSpace(c.Image.APIKey)
	if c.Image.APIKey == "" {
		if value, ok := os.LookupEnv("LEXIDECK_IMAGE_API_KEY"); ok {
			c.Image.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("POLLINATIONS_API_KEY"); ok {
			c.Image.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Image.JPEGQuality <= 0 {
		c.Image.JPEGQuality = defaultJPEGQuality
	}
	if c.Image.RequestsPerSecond < 0 {
		c.Image.RequestsPerSecond = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
