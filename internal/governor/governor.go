// Package governor gates concurrent upstream fetches behind a permit limit
// that shrinks on throttling signals and recovers after sustained success.
package governor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lexideck/internal/logging"
	"lexideck/internal/services"
)

// State is a point-in-time view of the governor.
type State struct {
	EffectiveLimit       int       `json:"effective_limit"`
	MaxLimit             int       `json:"max_limit"`
	InFlight             int       `json:"in_flight"`
	ConsecutiveThrottles int       `json:"consecutive_throttles"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	TotalThrottles       int       `json:"total_throttles"`
	Adjustments          int       `json:"adjustments"`
	LastAdjustment       time.Time `json:"last_adjustment,omitempty"`
}

// Observer is notified after every limit change. It runs outside the
// governor lock.
type Observer func(State)

// Governor owns the rate-limit state for one run. Safe for concurrent use.
type Governor struct {
	mu          sync.Mutex
	maxLimit    int
	decay       int
	limit       int
	inFlight    int
	throttles   int
	successes   int
	total       int
	adjustments int
	lastAdjust  time.Time
	wake        chan struct{}

	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option customizes a Governor.
type Option func(*Governor)

// WithLogger sets the logger used for limit changes.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) {
		g.logger = logging.NewComponentLogger(logger, "governor")
	}
}

// WithObserver registers a callback for limit changes.
func WithObserver(observer Observer) Option {
	return func(g *Governor) {
		g.observer = observer
	}
}

// New builds a governor whose effective limit starts at maxConcurrency.
// throttleDecay is the number of consecutive successes required before the
// limit grows by one.
func New(maxConcurrency, throttleDecay int, opts ...Option) (*Governor, error) {
	if maxConcurrency < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "governor", "new",
			fmt.Sprintf("max concurrency must be at least 1 (got %d)", maxConcurrency), nil)
	}
	if throttleDecay < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "governor", "new",
			fmt.Sprintf("throttle decay must be at least 1 (got %d)", throttleDecay), nil)
	}
	g := &Governor{
		maxLimit: maxConcurrency,
		decay:    throttleDecay,
		limit:    maxConcurrency,
		wake:     make(chan struct{}),
		logger:   logging.NewComponentLogger(nil, "governor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Permit is one admitted slot. Release is idempotent.
type Permit struct {
	g    *Governor
	once sync.Once
}

// Release returns the slot to the governor.
func (p *Permit) Release() {
	if p == nil || p.g == nil {
		return
	}
	p.once.Do(p.g.release)
}

// Admit blocks until fewer than the effective limit of permits are
// outstanding, or until ctx ends.
func (g *Governor) Admit(ctx context.Context) (*Permit, error) {
	for {
		g.mu.Lock()
		if err := ctx.Err(); err != nil {
			g.mu.Unlock()
			return nil, err
		}
		if g.inFlight < g.limit {
			g.inFlight++
			g.mu.Unlock()
			return &Permit{g: g}, nil
		}
		wake := g.wake
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (g *Governor) release() {
	g.mu.Lock()
	if g.inFlight > 0 {
		g.inFlight--
	}
	g.broadcastLocked()
	g.mu.Unlock()
}

// ReportThrottled records an upstream rate-limit signal and lowers the
// effective limit by one, never below one.
func (g *Governor) ReportThrottled() {
	g.mu.Lock()
	g.total++
	g.throttles++
	g.successes = 0
	changed := false
	old := g.limit
	if g.limit > 1 {
		g.limit--
		g.adjustments++
		g.lastAdjust = g.now()
		changed = true
	}
	state := g.snapshotLocked()
	g.mu.Unlock()

	if !changed {
		g.logger.Debug("upstream throttled at minimum concurrency",
			logging.Int("consecutive_throttles", state.ConsecutiveThrottles))
		return
	}
	g.logger.Warn("upstream throttled; lowering concurrency",
		logging.EventType("concurrency_lowered"),
		logging.Int("from", old),
		logging.Int("to", state.EffectiveLimit),
		logging.Int("consecutive_throttles", state.ConsecutiveThrottles),
	)
	g.notify(state)
}

// ReportSuccess records a completed upstream call. After throttleDecay
// consecutive successes the limit grows by one, up to the configured maximum.
func (g *Governor) ReportSuccess() {
	g.mu.Lock()
	g.throttles = 0
	g.successes++
	if g.successes < g.decay {
		g.mu.Unlock()
		return
	}
	g.successes = 0
	if g.limit >= g.maxLimit {
		g.mu.Unlock()
		return
	}
	old := g.limit
	g.limit++
	g.adjustments++
	g.lastAdjust = g.now()
	g.broadcastLocked()
	state := g.snapshotLocked()
	g.mu.Unlock()

	g.logger.Info("upstream healthy; raising concurrency",
		logging.EventType("concurrency_raised"),
		logging.Int("from", old),
		logging.Int("to", state.EffectiveLimit),
	)
	g.notify(state)
}

// Snapshot returns the current state.
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Governor) snapshotLocked() State {
	return State{
		EffectiveLimit:       g.limit,
		MaxLimit:             g.maxLimit,
		InFlight:             g.inFlight,
		ConsecutiveThrottles: g.throttles,
		ConsecutiveSuccesses: g.successes,
		TotalThrottles:       g.total,
		Adjustments:          g.adjustments,
		LastAdjustment:       g.lastAdjust,
	}
}

// broadcastLocked wakes every goroutine parked in Admit.
func (g *Governor) broadcastLocked() {
	close(g.wake)
	g.wake = make(chan struct{})
}

func (g *Governor) notify(state State) {
	if g.observer != nil {
		g.observer(state)
	}
}
