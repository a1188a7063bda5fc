// Package imagegen generates card illustrations from text prompts through a
// prompt-in-path image API and normalizes them to the card size.
package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/time/rate"

	"lexideck/internal/config"
	"lexideck/internal/pipeline"
	"lexideck/internal/services"
)

const (
	component          = "imagegen"
	defaultHTTPTimeout = 90 * time.Second
	defaultWidth       = 320
	defaultHeight      = 200
	defaultQuality     = 85
	defaultMinPrompt   = 5
	maxResponseBytes   = 32 << 20
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Width             int
	Height            int
	JPEGQuality       int
	TimeoutSeconds    int
	RequestsPerSecond float64
	MinPromptLength   int
}

// ConfigFrom maps the image and deck sections of cfg.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:           cfg.Image.BaseURL,
		APIKey:            cfg.Image.APIKey,
		Model:             cfg.Image.Model,
		Width:             cfg.Image.Width,
		Height:            cfg.Image.Height,
		JPEGQuality:       cfg.Image.JPEGQuality,
		TimeoutSeconds:    cfg.Image.TimeoutSeconds,
		RequestsPerSecond: cfg.Image.RequestsPerSecond,
		MinPromptLength:   cfg.Deck.MinImagePrompt,
	}
}

// Client implements pipeline.Fetcher for image requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
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

// NewClient constructs an image client. A positive RequestsPerSecond paces
// requests independently of the pipeline's concurrency limit.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = defaultQuality
	}
	if cfg.MinPromptLength <= 0 {
		cfg.MinPromptLength = defaultMinPrompt
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch implements pipeline.Fetcher.
func (c *Client) Fetch(ctx context.Context, req pipeline.Request) ([]byte, error) {
	return c.Generate(ctx, req.Content)
}

// Generate renders prompt and returns a JPEG fitted to the configured size.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if len([]rune(prompt)) < c.cfg.MinPromptLength {
		return nil, services.Wrap(services.ErrFatal, component, "generate",
			fmt.Sprintf("prompt shorter than %d characters", c.cfg.MinPromptLength), nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "generate", "base url not configured", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, services.TransportError(ctx, component, "generate", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(prompt), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "generate", "build request", err)
	}
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	httpReq.Header.Set("Accept", "image/jpeg,image/*")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, services.TransportError(ctx, component, "generate", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.TransportError(ctx, component, "generate", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.StatusError(component, "generate", resp, body)
	}
	return c.normalize(body)
}

func (c *Client) endpoint(prompt string) string {
	query := url.Values{}
	if c.cfg.Model != "" {
		query.Set("model", c.cfg.Model)
	}
	query.Set("width", strconv.Itoa(c.cfg.Width))
	query.Set("height", strconv.Itoa(c.cfg.Height))
	query.Set("nologo", "true")
	return c.cfg.BaseURL + "/" + url.PathEscape(prompt) + "?" + query.Encode()
}

// normalize decodes the upstream image, fits it into the card box and
// re-encodes it as JPEG. An undecodable body is treated as transient since
// the provider sometimes returns an error page with status 200.
func (c *Client) normalize(body []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "decode",
			fmt.Sprintf("invalid image (%d bytes)", len(body)), err)
	}
	fitted := imaging.Fit(img, c.cfg.Width, c.cfg.Height, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(c.cfg.JPEGQuality)); err != nil {
		return nil, services.Wrap(services.ErrFatal, component, "encode", "encode jpeg", err)
	}
	return buf.Bytes(), nil
}
