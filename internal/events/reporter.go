package events

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"lexideck/internal/logging"
)

const (
	defaultBufferSize  = 256
	defaultEmitTimeout = 2 * time.Second
)

// Sink consumes delivered events. It is invoked from a single goroutine.
type Sink interface {
	Handle(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

// Handle implements Sink.
func (f SinkFunc) Handle(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// Stats counts reporter activity. Emitted counts events accepted into the
// delivery queue; events counted in Dropped are not included.
type Stats struct {
	Emitted    uint64 `json:"emitted"`
	Dropped    uint64 `json:"dropped"`
	SinkErrors uint64 `json:"sink_errors"`
}

// Reporter sequences events and hands them to a sink asynchronously. A nil
// Reporter discards everything.
//
// Events that fit in the queue are delivered in sequence order. When the
// queue is full, an emitter waits up to the emit timeout without holding the
// reporter lock, so a waiting event may be delivered after later ones. Once
// a wait times out the reporter is congested: further events that find the
// queue full are dropped at once until the sink drains it.
type Reporter struct {
	sink        Sink
	logger      *slog.Logger
	emitTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	seq     uint64
	closed  bool
	queue   chan Event
	done    chan struct{}
	senders sync.WaitGroup

	congested  atomic.Bool
	emitted    atomic.Uint64
	dropped    atomic.Uint64
	sinkErrors atomic.Uint64
}

// Option customizes a Reporter.
type Option func(*Reporter)

// WithBufferSize sets the delivery queue capacity.
func WithBufferSize(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.queue = make(chan Event, n)
		}
	}
}

// WithEmitTimeout bounds how long Emit waits on a full queue before dropping.
func WithEmitTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		r.emitTimeout = d
	}
}

// WithLogger sets the logger used for sink failures and drops.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		r.logger = logging.NewComponentLogger(logger, "events")
	}
}

// NewReporter starts a reporter delivering to sink. Close must be called to
// flush pending events.
func NewReporter(sink Sink, opts ...Option) *Reporter {
	r := &Reporter{
		sink:        sink,
		logger:      logging.NewComponentLogger(nil, "events"),
		emitTimeout: defaultEmitTimeout,
		now:         time.Now,
		queue:       make(chan Event, defaultBufferSize),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.deliver()
	return r
}

// Emit stamps payload with the next sequence number and queues it. It
// returns the assigned sequence, or 0 when the event was dropped.
func (r *Reporter) Emit(payload Payload) uint64 {
	if r == nil || payload == nil {
		return 0
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.dropped.Add(1)
		return 0
	}
	r.seq++
	event := Event{Seq: r.seq, Time: r.now(), Payload: payload}
	select {
	case r.queue <- event:
		r.mu.Unlock()
		r.emitted.Add(1)
		return event.Seq
	default:
	}
	if r.emitTimeout <= 0 || r.congested.Load() {
		r.mu.Unlock()
		return r.drop(event)
	}
	r.senders.Add(1)
	r.mu.Unlock()
	defer r.senders.Done()

	timer := time.NewTimer(r.emitTimeout)
	defer timer.Stop()
	select {
	case r.queue <- event:
		r.emitted.Add(1)
		return event.Seq
	case <-timer.C:
		if !r.congested.Swap(true) {
			r.logger.Debug("event sink congested; dropping until it drains",
				logging.Duration("waited", r.emitTimeout),
			)
		}
		return r.drop(event)
	}
}

func (r *Reporter) drop(event Event) uint64 {
	r.dropped.Add(1)
	r.logger.Debug("event dropped; sink too slow",
		logging.String("kind", string(event.Kind())),
		logging.Seq(event.Seq),
	)
	return 0
}

// Log emits a Log event.
func (r *Reporter) Log(level slog.Level, recordID, message string) uint64 {
	return r.Emit(Log{Level: level, Message: message, RecordID: recordID})
}

// Progress emits a Progress event.
func (r *Reporter) Progress(completed, total int, label string) uint64 {
	return r.Emit(Progress{Completed: completed, Total: total, Label: label})
}

// Close stops accepting events and waits until queued events are delivered.
// It is safe to call more than once.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	first := !r.closed
	r.closed = true
	r.mu.Unlock()
	if first {
		// Emitters waiting on a full queue give up within the emit timeout.
		r.senders.Wait()
		close(r.queue)
	}
	<-r.done
}

// Stats returns delivery counters.
func (r *Reporter) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		Emitted:    r.emitted.Load(),
		Dropped:    r.dropped.Load(),
		SinkErrors: r.sinkErrors.Load(),
	}
}

func (r *Reporter) deliver() {
	defer close(r.done)
	for event := range r.queue {
		if len(r.queue) == 0 {
			r.congested.Store(false)
		}
		if err := r.handle(event); err != nil {
			r.sinkErrors.Add(1)
			r.logger.Debug("event sink failed",
				logging.String("kind", string(event.Kind())),
				logging.Seq(event.Seq),
				logging.Error(err),
			)
		}
	}
}

func (r *Reporter) handle(event Event) (err error) {
	if r.sink == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panic: %v", rec)
		}
	}()
	return r.sink.Handle(event)
}
