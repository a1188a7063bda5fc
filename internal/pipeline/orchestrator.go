package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lexideck/internal/events"
	"lexideck/internal/governor"
	"lexideck/internal/logging"
	"lexideck/internal/mediacache"
	"lexideck/internal/services"
)

// Orchestrator resolves the requests of a single record. It is safe to call
// Process for many records concurrently; they share the cache, the governor
// and in-flight fetches of identical keys.
type Orchestrator struct {
	opts     Options
	cache    Cache
	fetcher  Fetcher
	governor *governor.Governor
	reporter *events.Reporter
	observer Observer
	logger   *slog.Logger
	flight   singleflight.Group
}

// NewOrchestrator validates opts and builds an orchestrator. A governor is
// created from MaxConcurrency and ThrottleDecay when none is supplied.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	gov := opts.Governor
	if gov == nil {
		var err error
		gov, err = governor.New(opts.MaxConcurrency, opts.ThrottleDecay, governor.WithLogger(opts.Logger))
		if err != nil {
			return nil, err
		}
	}
	return &Orchestrator{
		opts:     opts,
		cache:    opts.Cache,
		fetcher:  opts.Fetcher,
		governor: gov,
		reporter: opts.Reporter,
		observer: opts.Observer,
		logger:   logging.NewComponentLogger(opts.Logger, "pipeline"),
	}, nil
}

// Governor returns the governor gating fetches.
func (o *Orchestrator) Governor() *governor.Governor {
	return o.governor
}

// Process resolves every request of record. Cached requests resolve inline;
// the rest run on their own goroutines, each gated by the governor. It
// always returns one outcome per request, in request order.
func (o *Orchestrator) Process(ctx context.Context, record Record) RecordOutcome {
	start := time.Now()
	ctx = services.WithRecordID(ctx, record.ID)
	outcome := RecordOutcome{
		RecordID:  record.ID,
		Label:     record.Label,
		Resources: make([]ResourceOutcome, len(record.Requests)),
	}

	var wg sync.WaitGroup
	for i, req := range record.Requests {
		key := req.Key()
		if key.Empty() {
			outcome.Resources[i] = o.finish(ctx, record.ID, failed(req, 0,
				services.Wrap(services.ErrFatal, "pipeline", "resolve", "empty content key", nil)))
			continue
		}
		if artifact, ok := o.cache.Lookup(ctx, key); ok {
			outcome.Resources[i] = o.finish(ctx, record.ID, ResourceOutcome{
				Request:  req,
				State:    StateCached,
				Artifact: artifact,
			})
			continue
		}
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			outcome.Resources[i] = o.finish(ctx, record.ID, o.resolve(ctx, req))
		}(i, req)
	}
	wg.Wait()

	outcome.Duration = time.Since(start)
	if o.observer != nil {
		o.observer.ObserveRecord(outcome.Usable())
	}
	return outcome
}

// fetchResult is shared between callers of the same in-flight key.
type fetchResult struct {
	artifact mediacache.Artifact
	attempts int
	cached   bool
}

func (o *Orchestrator) resolve(ctx context.Context, req Request) ResourceOutcome {
	ctx = services.WithResourceKind(ctx, string(req.Kind))
	key := req.Key()
	led := false
	value, err, _ := o.flight.Do(o.cache.FileName(key), func() (any, error) {
		led = true
		return o.fetchAndStore(ctx, req, key)
	})
	res, _ := value.(fetchResult)
	if !led {
		// Joined another caller's flight: nothing was fetched on our behalf.
		res.attempts = 0
		res.cached = true
	}
	if err != nil {
		return failed(req, res.attempts, err)
	}
	state := StateFetched
	if res.cached {
		state = StateCached
	}
	return ResourceOutcome{
		Request:  req,
		State:    state,
		Artifact: res.artifact,
		Attempts: res.attempts,
	}
}

func (o *Orchestrator) fetchAndStore(ctx context.Context, req Request, key mediacache.Key) (fetchResult, error) {
	// A flight for the same key may have published it between our lookup and
	// this call.
	if artifact, ok := o.cache.Lookup(ctx, key); ok {
		return fetchResult{artifact: artifact, cached: true}, nil
	}

	var (
		res     fetchResult
		lastErr error
	)
	for attempt := 0; attempt <= o.opts.RetryLimit; attempt++ {
		if attempt > 0 {
			delay := o.retryDelay(attempt, lastErr)
			logging.WithContext(ctx, o.logger).Debug("retrying fetch",
				logging.Int("attempt", attempt+1),
				logging.Duration("delay", delay),
				logging.String("reason", services.Class(lastErr)),
			)
			if err := services.SleepWithContext(ctx, delay); err != nil {
				return res, abandoned(lastErr, err)
			}
		}

		permit, err := o.governor.Admit(ctx)
		if err != nil {
			return res, abandoned(lastErr, err)
		}
		res.attempts++
		data, err := o.fetchOnce(ctx, req)
		permit.Release()

		if err == nil {
			o.governor.ReportSuccess()
			artifact, storeErr := o.store(ctx, key, data)
			if storeErr != nil {
				return res, storeErr
			}
			res.artifact = artifact
			return res, nil
		}

		lastErr = err
		if services.IsRateLimited(err) {
			o.governor.ReportThrottled()
		}
		if ctx.Err() != nil {
			return res, abandoned(lastErr, ctx.Err())
		}
		if !services.Retryable(err) {
			break
		}
	}
	return res, lastErr
}

func (o *Orchestrator) fetchOnce(ctx context.Context, req Request) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	data, err := o.fetcher.Fetch(fetchCtx, req)
	switch {
	case err == nil && len(data) == 0:
		err = services.Wrap(services.ErrTransient, "pipeline", "fetch", "empty response body", nil)
	case err != nil && ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		err = services.Wrap(services.ErrTransient, "pipeline", "fetch",
			fmt.Sprintf("timed out after %s", o.opts.FetchTimeout), err)
	}
	if o.observer != nil {
		o.observer.ObserveAttempt(string(req.Kind), services.Class(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// store publishes data, retrying a cache write failure once.
func (o *Orchestrator) store(ctx context.Context, key mediacache.Key, data []byte) (mediacache.Artifact, error) {
	artifact, err := o.cache.Store(ctx, key, data)
	if err == nil || !errors.Is(err, services.ErrCacheWrite) {
		return artifact, err
	}
	logging.WithContext(ctx, o.logger).Debug("cache write failed; retrying once", logging.Error(err))
	return o.cache.Store(ctx, key, data)
}

func (o *Orchestrator) retryDelay(attempt int, lastErr error) time.Duration {
	delay := services.BackoffDelay(o.opts.RetryBaseDelay, o.opts.RetryMaxDelay, attempt)
	if hint, ok := services.RetryAfter(lastErr); ok && hint > delay {
		delay = hint
	}
	if delay > o.opts.RetryMaxDelay {
		delay = o.opts.RetryMaxDelay
	}
	return delay
}

// finish reports a terminal outcome and returns it unchanged.
func (o *Orchestrator) finish(ctx context.Context, recordID string, res ResourceOutcome) ResourceOutcome {
	if res.State == StateFailed {
		logging.WarnWithContext(services.WithResourceKind(ctx, string(res.Request.Kind)), o.logger,
			"resource failed", "resource_failed",
			logging.Int("slot", res.Request.Slot),
			logging.Int("attempts", res.Attempts),
			logging.Bool("mandatory", res.Request.Mandatory),
			logging.String("reason", res.Reason),
			logging.Hint(failureHint(res.Err)),
		)
	}
	if o.observer != nil {
		o.observer.ObserveResource(string(res.Request.Kind), res.State.String(), res.Attempts)
	}
	o.reporter.Emit(events.Resource{
		RecordID:     recordID,
		ResourceKind: string(res.Request.Kind),
		Slot:         res.Request.Slot,
		State:        res.State.String(),
		Reason:       res.Reason,
		FileName:     res.Artifact.FileName,
		Attempts:     res.Attempts,
	})
	return res
}

func failed(req Request, attempts int, err error) ResourceOutcome {
	return ResourceOutcome{
		Request:  req,
		State:    StateFailed,
		Reason:   services.Reason(err),
		Err:      err,
		Attempts: attempts,
	}
}

// abandoned prefers the last upstream error over a bare context error so the
// reason stays informative.
func abandoned(lastErr, ctxErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (after: %w)", ctxErr, lastErr)
}

func failureHint(err error) string {
	switch services.Class(err) {
	case "rate_limited":
		return "lower pipeline.max_concurrency or raise pipeline.retry_limit"
	case "timeout", "transient":
		return "check the service endpoint and network; rerun to retry missing media"
	case "cache_write":
		return "check free space and permissions of paths.media_dir"
	case "configuration":
		return "check api keys and endpoints in the config file"
	case "canceled":
		return "build was cancelled; rerun to resume from cache"
	default:
		return "inspect the content of this card"
	}
}
