package events_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"lexideck/internal/events"
)

func TestLogSinkWarnsOnFailedResource(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := events.LogSink(logger)

	_ = sink.Handle(events.Event{Seq: 1, Payload: events.Resource{
		RecordID: "abc_de", ResourceKind: "image", State: events.StateFetched, FileName: "_image_x.jpg",
	}})
	_ = sink.Handle(events.Event{Seq: 2, Payload: events.Resource{
		RecordID: "abc_de", ResourceKind: "word_audio", State: events.StateFailed, Reason: "tts unavailable", Attempts: 3,
	}})

	out := buf.String()
	if strings.Contains(out, "_image_x.jpg") {
		t.Fatalf("successful resource should log at debug only: %q", out)
	}
	for _, fragment := range []string{"level=WARN", "resource failed", "reason=\"tts unavailable\"", "attempts=3"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
}

func TestLogSinkSamplesProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := events.LogSink(logger)
	for i := 1; i <= 100; i++ {
		_ = sink.Handle(events.Event{Seq: uint64(i), Payload: events.Progress{Completed: i, Total: 100}})
	}
	lines := strings.Count(buf.String(), "build progress")
	if lines == 0 || lines > 11 {
		t.Fatalf("expected sampled progress lines, got %d", lines)
	}
	if !strings.Contains(buf.String(), "completed=100") {
		t.Fatal("final progress line must be logged")
	}
}
