package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lexideck/internal/events"
	"lexideck/internal/mediacache"
	"lexideck/internal/pipeline"
)

// fakeFetcher returns deterministic bytes per request and lets tests script
// failures by content.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	total    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
	delay    time.Duration
	script   func(req pipeline.Request, call int) error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req pipeline.Request) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if n <= old || f.peak.CompareAndSwap(old, n) {
			break
		}
	}
	f.total.Add(1)
	f.mu.Lock()
	id := string(req.Kind) + "|" + req.Content
	f.calls[id]++
	call := f.calls[id]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.script != nil {
		if err := f.script(req, call); err != nil {
			return nil, err
		}
	}
	return []byte(fmt.Sprintf("%s:%s:%s", req.Kind, req.Content, req.Variant)), nil
}

func (f *fakeFetcher) callsFor(kind pipeline.Kind, content string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[string(kind)+"|"+content]
}

func openCache(t *testing.T) *mediacache.Cache {
	t.Helper()
	cache, err := mediacache.Open(context.Background(), t.TempDir(), mediacache.WithRevision("test"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func testOptions(cache pipeline.Cache, fetcher pipeline.Fetcher) pipeline.Options {
	return pipeline.Options{
		MaxConcurrency: 4,
		RetryLimit:     2,
		FetchTimeout:   time.Second,
		ThrottleDecay:  5,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		Cache:          cache,
		Fetcher:        fetcher,
	}
}

func newDriver(t *testing.T, opts pipeline.Options) *pipeline.Driver {
	t.Helper()
	driver, err := pipeline.NewDriver(opts)
	if err != nil {
		t.Fatalf("NewDriver returned error: %v", err)
	}
	return driver
}

func vocabRecord(word string) pipeline.Record {
	return pipeline.Record{
		ID:    word + "_de",
		Label: word,
		Requests: []pipeline.Request{
			{Kind: pipeline.KindWordAudio, Content: word, Variant: "de-DE-KatjaNeural", Mandatory: true},
			{Kind: pipeline.KindImage, Content: "an illustration of " + word},
		},
	}
}

func runWithRecorder(t *testing.T, opts pipeline.Options, records []pipeline.Record) ([]pipeline.RecordOutcome, *events.Recorder, error) {
	t.Helper()
	rec := &events.Recorder{}
	reporter := events.NewReporter(rec)
	opts.Reporter = reporter
	outcomes, err := newDriver(t, opts).Run(context.Background(), records)
	reporter.Close()
	return outcomes, rec, err
}
