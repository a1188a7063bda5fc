package events_test

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lexideck/internal/events"
)

func TestReporterDeliversInSequenceOrder(t *testing.T) {
	rec := &events.Recorder{}
	r := events.NewReporter(rec)
	r.Log(slog.LevelInfo, "", "starting")
	for i := 1; i <= 3; i++ {
		r.Progress(i, 3, "word")
	}
	r.Emit(events.Resource{RecordID: "abc", ResourceKind: "image", State: events.StateFetched})
	r.Close()

	got := rec.Events()
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i, e := range got {
		if e.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, e.Seq)
		}
		if e.Time.IsZero() {
			t.Fatalf("event %d missing timestamp", i)
		}
	}
	progress := rec.Progress()
	if len(progress) != 3 || progress[2].Completed != 3 || progress[2].Total != 3 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if kinds := []events.Kind{got[0].Kind(), got[4].Kind()}; kinds[0] != events.KindLog || kinds[1] != events.KindResource {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
}

func TestReporterSwallowsSinkFailures(t *testing.T) {
	calls := 0
	sink := events.SinkFunc(func(e events.Event) error {
		calls++
		switch e.Seq {
		case 1:
			return errors.New("sink unavailable")
		case 2:
			panic("sink exploded")
		}
		return nil
	})
	r := events.NewReporter(sink)
	r.Progress(1, 3, "")
	r.Progress(2, 3, "")
	r.Progress(3, 3, "")
	r.Close()

	if calls != 3 {
		t.Fatalf("expected 3 sink calls, got %d", calls)
	}
	if stats := r.Stats(); stats.SinkErrors != 2 || stats.Emitted != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReporterDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	sink := events.SinkFunc(func(events.Event) error {
		<-release
		return nil
	})
	r := events.NewReporter(sink, events.WithBufferSize(1), events.WithEmitTimeout(10*time.Millisecond))

	start := time.Now()
	dropped := 0
	for i := 0; i < 5; i++ {
		if r.Progress(i, 5, "") == 0 {
			dropped++
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Emit blocked for %s", elapsed)
	}
	if dropped == 0 {
		t.Fatal("expected some events to be dropped with a stalled sink")
	}
	close(release)
	r.Close()
	if stats := r.Stats(); stats.Dropped != uint64(dropped) {
		t.Fatalf("dropped counter %d, want %d", stats.Dropped, dropped)
	}
}

func TestReporterConcurrentEmitters(t *testing.T) {
	rec := &events.Recorder{}
	r := events.NewReporter(rec)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Emit(events.Resource{RecordID: "r", Slot: i*20 + j, State: events.StateCached})
			}
		}(i)
	}
	wg.Wait()
	r.Close()

	got := rec.Events()
	if len(got) != 200 {
		t.Fatalf("expected 200 events, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Seq <= got[i-1].Seq {
			t.Fatalf("sequence not increasing at %d: %d after %d", i, got[i].Seq, got[i-1].Seq)
		}
	}
}

func TestReporterAfterCloseAndNil(t *testing.T) {
	r := events.NewReporter(nil)
	r.Close()
	r.Close()
	if seq := r.Progress(1, 1, ""); seq != 0 {
		t.Fatalf("expected drop after close, got seq %d", seq)
	}

	var nilReporter *events.Reporter
	if seq := nilReporter.Progress(1, 1, ""); seq != 0 {
		t.Fatalf("nil reporter returned seq %d", seq)
	}
	nilReporter.Close()
}

func TestMultiSinkReachesAll(t *testing.T) {
	first, second := &events.Recorder{}, &events.Recorder{}
	failing := events.SinkFunc(func(events.Event) error { return errors.New("boom") })
	sink := events.Multi(failing, first, nil, second)
	if err := sink.Handle(events.Event{Seq: 1, Payload: events.Progress{Completed: 1, Total: 1}}); err == nil {
		t.Fatal("expected joined error")
	}
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatal("expected every sink to receive the event")
	}
}

func TestProgressFraction(t *testing.T) {
	if got := (events.Progress{}).Fraction(); got != 1 {
		t.Fatalf("empty run fraction = %v", got)
	}
	if got := (events.Progress{Completed: 1, Total: 4}).Fraction(); got != 0.25 {
		t.Fatalf("fraction = %v", got)
	}
}

func TestReporterStalledSinkDoesNotSerializeEmitters(t *testing.T) {
	release := make(chan struct{})
	sink := events.SinkFunc(func(events.Event) error {
		<-release
		return nil
	})
	r := events.NewReporter(sink, events.WithBufferSize(1), events.WithEmitTimeout(200*time.Millisecond))

	const emitters = 50
	start := time.Now()
	var wg sync.WaitGroup
	for i := range emitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Progress(i+1, emitters, "")
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Sequential waits would take emitters * 200ms.
	if elapsed > time.Second {
		t.Fatalf("%d concurrent emits took %s", emitters, elapsed)
	}
	// Once congested, later emits drop without waiting.
	start = time.Now()
	if seq := r.Progress(emitters, emitters, ""); seq != 0 {
		t.Fatalf("expected immediate drop while congested, got seq %d", seq)
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		t.Fatalf("congested emit waited %s", waited)
	}

	close(release)
	r.Close()
	stats := r.Stats()
	if stats.Emitted+stats.Dropped != emitters+1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Dropped == 0 {
		t.Fatal("expected drops with a stalled sink")
	}
}

func TestReporterStatsExcludeDrops(t *testing.T) {
	release := make(chan struct{})
	sink := events.SinkFunc(func(events.Event) error {
		<-release
		return nil
	})
	r := events.NewReporter(sink, events.WithBufferSize(1), events.WithEmitTimeout(0))
	accepted := 0
	for i := range 6 {
		if r.Progress(i, 6, "") != 0 {
			accepted++
		}
	}
	close(release)
	r.Close()
	stats := r.Stats()
	if stats.Emitted != uint64(accepted) || stats.Emitted+stats.Dropped != 6 {
		t.Fatalf("stats = %+v, accepted %d", stats, accepted)
	}
}
