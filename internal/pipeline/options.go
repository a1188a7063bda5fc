package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lexideck/internal/config"
	"lexideck/internal/events"
	"lexideck/internal/governor"
	"lexideck/internal/services"
)

const (
	defaultFetchTimeout   = 60 * time.Second
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// Options configures a Driver.
type Options struct {
	// MaxConcurrency is the global ceiling on outstanding fetches.
	MaxConcurrency int
	// RetryLimit is the number of retries after the first attempt.
	RetryLimit int
	// FetchTimeout bounds a single fetch attempt. Zero selects the default.
	FetchTimeout time.Duration
	// ThrottleDecay is the success streak needed to raise the limit by one.
	ThrottleDecay int
	// RecordParallelism caps records in flight. Zero selects twice
	// MaxConcurrency.
	RecordParallelism int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration

	Cache    Cache
	Fetcher  Fetcher
	Governor *governor.Governor
	Reporter *events.Reporter
	Observer Observer
	Logger   *slog.Logger
}

// OptionsFromConfig maps the pipeline section of cfg onto Options. The caller
// supplies collaborators.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		MaxConcurrency:    cfg.Pipeline.MaxConcurrency,
		RetryLimit:        cfg.Pipeline.RetryLimit,
		FetchTimeout:      cfg.FetchTimeout(),
		ThrottleDecay:     cfg.Pipeline.ThrottleDecay,
		RecordParallelism: cfg.Pipeline.RecordParallelism,
		RetryBaseDelay:    cfg.RetryBaseDelay(),
		RetryMaxDelay:     cfg.RetryMaxDelay(),
	}
}

// Validate reports configuration errors. All of them abort a run.
func (o Options) Validate() error {
	var errs []error
	if o.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max concurrency must be at least 1 (got %d)", o.MaxConcurrency))
	}
	if o.RetryLimit < 0 {
		errs = append(errs, fmt.Errorf("retry limit must be non-negative (got %d)", o.RetryLimit))
	}
	if o.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be non-negative (got %s)", o.FetchTimeout))
	}
	if o.ThrottleDecay < 1 {
		errs = append(errs, fmt.Errorf("throttle decay must be at least 1 (got %d)", o.ThrottleDecay))
	}
	if o.RecordParallelism < 0 {
		errs = append(errs, fmt.Errorf("record parallelism must be non-negative (got %d)", o.RecordParallelism))
	}
	if o.RetryBaseDelay < 0 || o.RetryMaxDelay < 0 {
		errs = append(errs, errors.New("retry delays must be non-negative"))
	}
	if o.Cache == nil {
		errs = append(errs, errors.New("media cache is required"))
	}
	if o.Fetcher == nil {
		errs = append(errs, errors.New("fetcher is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "pipeline", "validate", "invalid options", errors.Join(errs...))
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout == 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	if o.RecordParallelism == 0 {
		o.RecordParallelism = o.MaxConcurrency * 2
	}
	if o.RetryBaseDelay == 0 {
		o.RetryBaseDelay = defaultRetryBaseDelay
	}
	if o.RetryMaxDelay == 0 {
		o.RetryMaxDelay = defaultRetryMaxDelay
	}
	if o.RetryMaxDelay < o.RetryBaseDelay {
		o.RetryMaxDelay = o.RetryBaseDelay
	}
	return o
}
