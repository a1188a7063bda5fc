package pipeline

import (
	"context"
	"errors"
	"testing"

	"lexideck/internal/mediacache"
	"lexideck/internal/services"
)

func TestSummarizeCountsByKind(t *testing.T) {
	outcomes := []RecordOutcome{
		{
			RecordID: "a",
			Resources: []ResourceOutcome{
				{Request: Request{Kind: KindWordAudio, Mandatory: true}, State: StateCached, Artifact: mediacache.Artifact{Size: 10}},
				{Request: Request{Kind: KindImage}, State: StateFetched, Artifact: mediacache.Artifact{Size: 100}},
			},
		},
		{
			RecordID: "b",
			Label:    "Katze",
			Resources: []ResourceOutcome{
				{Request: Request{Kind: KindWordAudio, Mandatory: true}, State: StateFailed, Reason: "tts down"},
				{Request: Request{Kind: "video"}, State: StateFetched},
			},
		},
		{RecordID: "c"},
	}
	summary := Summarize(outcomes)
	if summary.Records != 3 || summary.Usable != 2 || summary.Complete != 2 {
		t.Fatalf("unexpected record counts: %+v", summary)
	}
	if len(summary.Kinds) != 3 {
		t.Fatalf("expected 3 kinds, got %+v", summary.Kinds)
	}
	if summary.Kinds[0].Kind != KindWordAudio || summary.Kinds[1].Kind != KindImage || summary.Kinds[2].Kind != "video" {
		t.Fatalf("unexpected kind order: %+v", summary.Kinds)
	}
	word := summary.Kinds[0]
	if word.Cached != 1 || word.Failed != 1 || word.Bytes != 10 || word.Total() != 2 {
		t.Fatalf("unexpected word audio summary: %+v", word)
	}
	if summary.Failed() != 1 || len(summary.Failures) != 1 || summary.Failures[0].Label != "Katze" {
		t.Fatalf("unexpected failures: %+v", summary.Failures)
	}
}

func TestRouterRejectsUnknownKind(t *testing.T) {
	router := Router{KindImage: FetcherFunc(func(context.Context, Request) ([]byte, error) {
		return []byte("jpeg"), nil
	})}
	if data, err := router.Fetch(context.Background(), Request{Kind: KindImage}); err != nil || string(data) != "jpeg" {
		t.Fatalf("routed fetch = %q, %v", data, err)
	}
	_, err := router.Fetch(context.Background(), Request{Kind: KindWordAudio})
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("unknown kind must not be retried")
	}
}

func TestRequestKeyDefaultsExtension(t *testing.T) {
	key := Request{Kind: KindImage, Content: "a cat"}.Key()
	if key.Ext != ".jpg" || key.Kind != "image" {
		t.Fatalf("unexpected key: %+v", key)
	}
	key = Request{Kind: KindWordAudio, Content: "Katze", Ext: ".ogg"}.Key()
	if key.Ext != ".ogg" {
		t.Fatalf("explicit extension lost: %+v", key)
	}
}
