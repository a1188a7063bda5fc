package vocab

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lexideck/internal/pipeline"
)

const sampleTable = "\ufeffTargetWord|Meaning|Part_of_Speech|ContextSentences|ImagePrompt|Tags\n" +
	"der Hund|dog|noun|Der Hund bellt.<br>Ich habe einen Hund.<br/>Hunde sind treu.<br>Vierter Satz.|a friendly dog|animals\n" +
	"|empty|noun|||\n" +
	"laufen|to run|verb|Wir laufen schnell.||verbs\n"

func testOptions() Options {
	return Options{
		Language:     "de",
		StripPattern: `^(der|die|das)\s+`,
		MaxSentences: 3,
		Voices:       []string{"de-DE-KatjaNeural", "de-DE-ConradNeural"},
		AudioExt:     ".mp3",
		Images:       true,
	}
}

func TestParseBuildsRecords(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleTable), testOptions())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (blank row skipped), got %d", len(records))
	}

	dog := records[0]
	if dog.Label != "Hund" {
		t.Fatalf("label = %q, want article stripped", dog.Label)
	}
	if !strings.HasSuffix(dog.ID, "_de") || dog.ID != RecordID("Hund", "noun", "de") {
		t.Fatalf("unexpected id %q", dog.ID)
	}
	if dog.Metadata["Meaning"] != "dog" || dog.Metadata["Tags"] != "animals" {
		t.Fatalf("metadata not carried: %+v", dog.Metadata)
	}

	var kinds []pipeline.Kind
	for _, req := range dog.Requests {
		kinds = append(kinds, req.Kind)
	}
	want := []pipeline.Kind{
		pipeline.KindWordAudio,
		pipeline.KindSentenceAudio, pipeline.KindSentenceAudio, pipeline.KindSentenceAudio,
		pipeline.KindImage,
	}
	if len(kinds) != len(want) {
		t.Fatalf("request kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("request kinds = %v, want %v", kinds, want)
		}
	}
	word := dog.Requests[0]
	if word.Content != "der Hund" || !word.Mandatory || word.Ext != ".mp3" || word.Variant == "" {
		t.Fatalf("unexpected word request: %+v", word)
	}
	if dog.Requests[2].Content != "Ich habe einen Hund." || dog.Requests[2].Slot != 1 {
		t.Fatalf("unexpected sentence request: %+v", dog.Requests[2])
	}
	if dog.Requests[4].Content != "a friendly dog" || dog.Requests[4].Mandatory {
		t.Fatalf("unexpected image request: %+v", dog.Requests[4])
	}

	run := records[1]
	if len(run.Requests) != 2 {
		t.Fatalf("expected word and one sentence for verb without prompt, got %+v", run.Requests)
	}
}

func TestParseWithoutImages(t *testing.T) {
	opts := testOptions()
	opts.Images = false
	records, err := Parse(strings.NewReader(sampleTable), opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	for _, req := range records[0].Requests {
		if req.Kind == pipeline.KindImage {
			t.Fatal("image request built while images are disabled")
		}
	}
}

func TestParseRequiresTargetWordColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("Word|Meaning\nHund|dog\n"), testOptions())
	if err == nil || !strings.Contains(err.Error(), ColumnTargetWord) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	records, err := Parse(strings.NewReader(""), testOptions())
	if err != nil || len(records) != 0 {
		t.Fatalf("expected no records, got %v, %v", records, err)
	}
}

func TestShuffleIsSeedable(t *testing.T) {
	var b strings.Builder
	b.WriteString("TargetWord|Part_of_Speech\n")
	for _, w := range []string{"eins", "zwei", "drei", "vier", "fünf", "sechs", "sieben", "acht"} {
		b.WriteString(w + "|num\n")
	}
	order := func(seed uint64) string {
		opts := testOptions()
		opts.Shuffle = true
		opts.Rand = rand.New(rand.NewPCG(seed, seed))
		records, err := Parse(strings.NewReader(b.String()), opts)
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}
		labels := make([]string, len(records))
		for i, r := range records {
			labels[i] = r.Label
		}
		return strings.Join(labels, ",")
	}
	if order(7) != order(7) {
		t.Fatal("same seed must give the same order")
	}
	if got := order(7); len(strings.Split(got, ",")) != 8 {
		t.Fatalf("shuffle lost records: %s", got)
	}
}

func TestPickVoiceIsDeterministic(t *testing.T) {
	voices := []string{"a", "b", "c"}
	first := PickVoice(voices, "Guten Tag")
	for i := 0; i < 10; i++ {
		if PickVoice(voices, "Guten Tag") != first {
			t.Fatal("voice choice changed between calls")
		}
	}
	if PickVoice(nil, "x") != "" {
		t.Fatal("expected empty voice without voices")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.csv")
	if err := os.WriteFile(path, []byte(sampleTable), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	records, err := Load(path, testOptions())
	if err != nil || len(records) != 2 {
		t.Fatalf("Load = %d records, %v", len(records), err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv"), testOptions()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
