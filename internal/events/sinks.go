package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"lexideck/internal/logging"
)

// Multi fans every event out to each sink. All sinks see the event even when
// an earlier one fails.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return SinkFunc(func(e Event) error {
		var errs []error
		for _, s := range filtered {
			if err := s.Handle(e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// LogSink writes events to a structured logger. Progress lines are thinned
// with a ProgressSampler; failed resources log at warn level.
func LogSink(logger *slog.Logger) Sink {
	logger = logging.NewComponentLogger(logger, "progress")
	sampler := logging.NewProgressSampler(10)
	return SinkFunc(func(e Event) error {
		switch p := e.Payload.(type) {
		case Log:
			logger.Log(context.Background(), p.Level, p.Message,
				logging.RecordID(p.RecordID),
				logging.Seq(e.Seq),
			)
		case Progress:
			if !sampler.ShouldLog(p.Completed, p.Total) {
				return nil
			}
			logger.Info("build progress",
				logging.EventType("build_progress"),
				logging.Int("completed", p.Completed),
				logging.Int("total", p.Total),
				logging.String("label", p.Label),
			)
		case Resource:
			attrs := []logging.Attr{
				logging.RecordID(p.RecordID),
				logging.ResourceKind(p.ResourceKind),
				logging.Int("slot", p.Slot),
				logging.String("state", p.State),
				logging.Int("attempts", p.Attempts),
			}
			if p.State == StateFailed {
				attrs = append(attrs,
					logging.String("reason", p.Reason),
					logging.EventType("resource_failed"),
				)
				logger.Warn("resource failed", logging.Args(attrs...)...)
				return nil
			}
			attrs = append(attrs, logging.String("file", p.FileName))
			logger.Debug("resource resolved", logging.Args(attrs...)...)
		}
		return nil
	})
}

// Recorder keeps every delivered event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle implements Sink.
func (r *Recorder) Handle(e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of recorded events in delivery order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Progress returns the recorded Progress payloads.
func (r *Recorder) Progress() []Progress {
	var out []Progress
	for _, e := range r.Events() {
		if p, ok := e.Payload.(Progress); ok {
			out = append(out, p)
		}
	}
	return out
}

// Resources returns the recorded Resource payloads.
func (r *Recorder) Resources() []Resource {
	var out []Resource
	for _, e := range r.Events() {
		if p, ok := e.Payload.(Resource); ok {
			out = append(out, p)
		}
	}
	return out
}
