package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lexideck/internal/events"
	"lexideck/internal/governor"
	"lexideck/internal/logging"
	"lexideck/internal/services"
)

// Driver runs the orchestrator over an ordered list of records.
type Driver struct {
	orch        *Orchestrator
	parallelism int
	reporter    *events.Reporter
	logger      *slog.Logger
}

// NewDriver validates opts and wires the orchestrator and governor.
func NewDriver(opts Options) (*Driver, error) {
	orch, err := NewOrchestrator(opts)
	if err != nil {
		return nil, err
	}
	return &Driver{
		orch:        orch,
		parallelism: orch.opts.RecordParallelism,
		reporter:    opts.Reporter,
		logger:      logging.NewComponentLogger(opts.Logger, "driver"),
	}, nil
}

// Governor returns the run's governor.
func (d *Driver) Governor() *governor.Governor {
	return d.orch.Governor()
}

// Run processes records and returns one outcome per record in input order.
// Progress events are emitted as records complete and may reach the reporter
// slightly out of count order. When ctx is cancelled, no
// new records start; records that never started are returned as failed
// outcomes and the context error is returned alongside the full slice. A run
// ID already present on ctx is kept.
func (d *Driver) Run(ctx context.Context, records []Record) ([]RecordOutcome, error) {
	if _, ok := services.RunIDFromContext(ctx); !ok {
		ctx = services.WithRunID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, d.logger)
	total := len(records)
	outcomes := make([]RecordOutcome, total)

	if total == 0 {
		d.reporter.Progress(0, 0, "")
		logger.Info("no records to process")
		return outcomes, nil
	}

	logger.Info("build started",
		logging.EventType("build_started"),
		logging.Int("records", total),
		logging.Int("max_concurrency", d.orch.opts.MaxConcurrency),
		logging.Int("record_parallelism", d.parallelism),
	)
	d.reporter.Log(slog.LevelInfo, "", "build started")
	start := time.Now()

	var (
		mu        sync.Mutex
		completed int
		started   = make([]bool, total)
	)
	var group errgroup.Group
	group.SetLimit(d.parallelism)
	for i, record := range records {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		group.Go(func() error {
			outcome := d.orch.Process(ctx, record)
			mu.Lock()
			outcomes[i] = outcome
			completed++
			n := completed
			mu.Unlock()
			d.reporter.Progress(n, total, record.Label)
			return nil
		})
	}
	_ = group.Wait()

	for i, record := range records {
		if !started[i] {
			outcomes[i] = d.notStarted(ctx, record)
		}
	}

	summary := Summarize(outcomes)
	logger.Info("build finished",
		logging.EventType("build_finished"),
		logging.Int("records", total),
		logging.Int("usable", summary.Usable),
		logging.Int("failed_resources", summary.Failed()),
		logging.Duration("elapsed", time.Since(start)),
	)
	d.reporter.Log(slog.LevelInfo, "", "build finished")

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (d *Driver) notStarted(ctx context.Context, record Record) RecordOutcome {
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	outcome := RecordOutcome{
		RecordID:  record.ID,
		Label:     record.Label,
		Resources: make([]ResourceOutcome, len(record.Requests)),
	}
	for i, req := range record.Requests {
		outcome.Resources[i] = d.orch.finish(services.WithRecordID(ctx, record.ID), record.ID, failed(req, 0, err))
	}
	return outcome
}
