// Package tts synthesizes speech through an OpenAI-compatible speech
// endpoint such as an edge-tts proxy.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lexideck/internal/config"
	"lexideck/internal/pipeline"
	"lexideck/internal/services"
	"lexideck/internal/textutil"
)

const (
	component          = "tts"
	defaultHTTPTimeout = 60 * time.Second
	defaultModel       = "tts-1"
	// minAudioBytes rejects truncated or placeholder responses.
	minAudioBytes = 100
)

// Config captures the runtime settings required to talk to the endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	Format         string
	WordVolume     string
	SentenceVolume string
	TimeoutSeconds int
}

// ConfigFrom maps the tts section of cfg.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:        cfg.TTS.BaseURL,
		APIKey:         cfg.TTS.APIKey,
		Format:         cfg.TTS.Format,
		WordVolume:     cfg.TTS.WordVolume,
		SentenceVolume: cfg.TTS.SentenceVolume,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	}
}

// Client implements pipeline.Fetcher for audio requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Format:         strings.ToLower(strings.TrimSpace(cfg.Format)),
			WordVolume:     strings.TrimSpace(cfg.WordVolume),
			SentenceVolume: strings.TrimSpace(cfg.SentenceVolume),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Format == "" {
		client.cfg.Format = "mp3"
	}
	return client
}

// Ext returns the artifact extension for the configured audio format.
func (c *Client) Ext() string {
	return "." + c.cfg.Format
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
	Volume         string `json:"volume,omitempty"`
}

// Fetch synthesizes req.Content with the voice in req.Variant. Word audio
// uses the word volume, everything else the sentence volume.
func (c *Client) Fetch(ctx context.Context, req pipeline.Request) ([]byte, error) {
	volume := c.cfg.SentenceVolume
	if req.Kind == pipeline.KindWordAudio {
		volume = c.cfg.WordVolume
	}
	return c.Synthesize(ctx, req.Content, req.Variant, volume)
}

// Synthesize returns encoded audio for text.
func (c *Client) Synthesize(ctx context.Context, text, voice, volume string) ([]byte, error) {
	text = textutil.CleanForSpeech(text)
	if text == "" {
		return nil, services.Wrap(services.ErrFatal, component, "synthesize", "no speakable text", nil)
	}
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return nil, services.Wrap(services.ErrFatal, component, "synthesize", "voice required", nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "synthesize", "base url not configured", nil)
	}

	encoded, err := json.Marshal(speechRequest{
		Model:          defaultModel,
		Input:          text,
		Voice:          voice,
		ResponseFormat: c.cfg.Format,
		Volume:         volume,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, component, "synthesize", "encode body", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "synthesize", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, services.TransportError(ctx, component, "synthesize", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.TransportError(ctx, component, "synthesize", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.StatusError(component, "synthesize", resp, body)
	}
	if len(body) < minAudioBytes {
		return nil, services.Wrap(services.ErrTransient, component, "synthesize",
			fmt.Sprintf("audio too short (%d bytes)", len(body)), nil)
	}
	return body, nil
}
