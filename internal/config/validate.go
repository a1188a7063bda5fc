package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateDeck(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.max_concurrency":       c.Pipeline.MaxConcurrency,
		"pipeline.fetch_timeout_seconds": c.Pipeline.FetchTimeoutSeconds,
		"pipeline.throttle_decay":        c.Pipeline.ThrottleDecay,
		"pipeline.record_parallelism":    c.Pipeline.RecordParallelism,
	}); err != nil {
		return err
	}
	if c.Pipeline.RetryLimit < 0 {
		return errors.New("pipeline.retry_limit must be zero or positive")
	}
	if c.Pipeline.RetryBaseDelayMS < 0 {
		return errors.New("pipeline.retry_base_delay_ms must be zero or positive")
	}
	if c.Pipeline.RetryMaxDelayMS < c.Pipeline.RetryBaseDelayMS {
		return errors.New("pipeline.retry_max_delay_ms must be at least pipeline.retry_base_delay_ms")
	}
	return nil
}

func (c *Config) validateDeck() error {
	if _, err := language.Parse(c.Deck.Language); err != nil {
		return fmt.Errorf("deck.language %q is not a valid language tag: %w", c.Deck.Language, err)
	}
	if pattern := strings.TrimSpace(c.Deck.StripPattern); pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("deck.strip_pattern: %w", err)
		}
	}
	if c.Deck.MaxSentences < 0 {
		return errors.New("deck.max_sentences must be zero or positive")
	}
	if c.Deck.MinImagePrompt < 0 {
		return errors.New("deck.min_image_prompt must be zero or positive")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if err := validateURL("tts.base_url", c.TTS.BaseURL); err != nil {
		return err
	}
	if len(c.TTS.Voices) == 0 {
		return errors.New("tts.voices must list at least one voice")
	}
	for _, voice := range c.TTS.Voices {
		locale := voiceLocale(voice)
		if locale == "" {
			continue
		}
		if _, err := language.Parse(locale); err != nil {
			return fmt.Errorf("tts.voices: %q does not start with a language tag", voice)
		}
	}
	if c.TTS.TimeoutSeconds <= 0 {
		return errors.New("tts.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateImage() error {
	if !c.Image.Enabled {
		return nil
	}
	if err := validateURL("image.base_url", c.Image.BaseURL); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"image.width":           c.Image.Width,
		"image.height":          c.Image.Height,
		"image.timeout_seconds": c.Image.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Image.JPEGQuality > 100 {
		return errors.New("image.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

// voiceLocale returns the leading "ll-CC" portion of a voice name such as
// "de-DE-ConradNeural", or an empty string for custom voice names.
func voiceLocale(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
