package governor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lexideck/internal/governor"
	"lexideck/internal/services"
)

func newGovernor(t *testing.T, maxConcurrency, decay int, opts ...governor.Option) *governor.Governor {
	t.Helper()
	g, err := governor.New(maxConcurrency, decay, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return g
}

func TestNewRejectsInvalidLimits(t *testing.T) {
	if _, err := governor.New(0, 5); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for zero concurrency, got %v", err)
	}
	if _, err := governor.New(4, 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for zero decay, got %v", err)
	}
}

func TestThrottlesNeverRaiseAndFloorAtOne(t *testing.T) {
	g := newGovernor(t, 4, 3)
	prev := g.Snapshot().EffectiveLimit
	for i := 0; i < 10; i++ {
		g.ReportThrottled()
		cur := g.Snapshot().EffectiveLimit
		if cur > prev {
			t.Fatalf("throttle raised limit from %d to %d", prev, cur)
		}
		if cur < 1 {
			t.Fatalf("limit fell below one: %d", cur)
		}
		prev = cur
	}
	state := g.Snapshot()
	if state.EffectiveLimit != 1 || state.TotalThrottles != 10 || state.Adjustments != 3 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestSuccessesRecoverUpToMaximum(t *testing.T) {
	g := newGovernor(t, 3, 2)
	g.ReportThrottled()
	g.ReportThrottled()
	if got := g.Snapshot().EffectiveLimit; got != 1 {
		t.Fatalf("limit after throttles = %d, want 1", got)
	}
	var limits []int
	for i := 0; i < 10; i++ {
		g.ReportSuccess()
		limits = append(limits, g.Snapshot().EffectiveLimit)
	}
	want := []int{1, 2, 2, 3, 3, 3, 3, 3, 3, 3}
	for i := range want {
		if limits[i] != want[i] {
			t.Fatalf("limits = %v, want %v", limits, want)
		}
	}
}

func TestThrottleResetsSuccessStreak(t *testing.T) {
	g := newGovernor(t, 4, 2)
	g.ReportThrottled()
	g.ReportSuccess()
	g.ReportThrottled()
	g.ReportSuccess()
	if got := g.Snapshot().EffectiveLimit; got != 2 {
		t.Fatalf("limit = %d, want 2", got)
	}
}

func TestAdmitRespectsEffectiveLimit(t *testing.T) {
	g := newGovernor(t, 2, 5)
	ctx := context.Background()
	first, err := g.Admit(ctx)
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	second, err := g.Admit(ctx)
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}

	admitted := make(chan *governor.Permit)
	go func() {
		p, err := g.Admit(ctx)
		if err != nil {
			t.Errorf("blocked Admit returned error: %v", err)
		}
		admitted <- p
	}()

	select {
	case <-admitted:
		t.Fatal("third permit admitted above the limit")
	case <-time.After(50 * time.Millisecond):
	}

	first.Release()
	first.Release()
	third := <-admitted
	if got := g.Snapshot().InFlight; got != 2 {
		t.Fatalf("in flight = %d, want 2 (double release must be a no-op)", got)
	}
	second.Release()
	third.Release()
	if got := g.Snapshot().InFlight; got != 0 {
		t.Fatalf("in flight = %d, want 0", got)
	}
}

func TestAdmitHonoursCancellation(t *testing.T) {
	g := newGovernor(t, 1, 5)
	held, err := g.Admit(context.Background())
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Admit(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	canceled, stop := context.WithCancel(context.Background())
	stop()
	if _, err := g.Admit(canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
}

func TestConcurrentAdmissionsNeverExceedCeiling(t *testing.T) {
	g := newGovernor(t, 3, 2)
	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := g.Admit(context.Background())
			if err != nil {
				t.Errorf("Admit returned error: %v", err)
				return
			}
			defer p.Release()
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
			if i%7 == 0 {
				g.ReportThrottled()
			} else {
				g.ReportSuccess()
			}
		}(i)
	}
	wg.Wait()
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency %d exceeded maximum 3", peak.Load())
	}
	if got := g.Snapshot().InFlight; got != 0 {
		t.Fatalf("in flight after drain = %d", got)
	}
}

func TestObserverSeesAdjustments(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	g := newGovernor(t, 2, 1, governor.WithObserver(func(s governor.State) {
		mu.Lock()
		seen = append(seen, s.EffectiveLimit)
		mu.Unlock()
	}))
	g.ReportThrottled()
	g.ReportSuccess()
	g.ReportSuccess()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("observer saw %v, want [1 2]", seen)
	}
}
