// Package cards turns resolved records into note fields that reference the
// cached media, and writes them out as a JSON manifest.
package cards

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"lexideck/internal/pipeline"
	"lexideck/internal/textutil"
	"lexideck/internal/vocab"
)

// Sentence slots available on a note.
const sentenceSlots = 3

// FieldNames lists note fields in model order.
var FieldNames = []string{
	"TargetWord", "Meaning", "IPA", "Part_of_Speech", "Gender", "Morphology", "Nuance",
	"Sentence_1", "Sentence_2", "Sentence_3",
	"ContextTranslation", "Etymology", "Mnemonic", "Analogues",
	"Image", "Tags",
	"AudioWord", "Audio_Sent_1", "Audio_Sent_2", "Audio_Sent_3", "Audio_Path_Word",
	"ContextSentences", "UUID",
}

// Field is one named note field.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Note is one assembled card.
type Note struct {
	GUID   string   `json:"guid"`
	Label  string   `json:"label"`
	Fields []Field  `json:"fields"`
	Tags   []string `json:"tags,omitempty"`
	Media  []string `json:"media,omitempty"`
}

// Field returns the value of the named field.
func (n Note) Field(name string) string {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Assemble builds the note for record from its outcome. Media that failed
// leaves its field empty.
func Assemble(record pipeline.Record, outcome pipeline.RecordOutcome, language string) Note {
	meta := record.Metadata
	get := func(name string) string { return strings.TrimSpace(meta[name]) }

	rawContext := get(vocab.ColumnSentences)
	sentences := textutil.SplitSentences(rawContext, sentenceSlots)
	for len(sentences) < sentenceSlots {
		sentences = append(sentences, "")
	}
	cloze := rawContext
	if cloze == "" {
		cloze = sentences[0]
	}

	var (
		wordFile  string
		imageFile string
		sentFiles = make([]string, sentenceSlots)
		media     []string
	)
	for _, res := range outcome.Resources {
		if !res.OK() {
			continue
		}
		name := res.Artifact.FileName
		switch res.Request.Kind {
		case pipeline.KindWordAudio:
			wordFile = name
		case pipeline.KindImage:
			imageFile = name
		case pipeline.KindSentenceAudio:
			if res.Request.Slot >= 0 && res.Request.Slot < sentenceSlots {
				sentFiles[res.Request.Slot] = name
			}
		}
		media = append(media, name)
	}

	values := map[string]string{
		"TargetWord":         get(vocab.ColumnTargetWord),
		"Meaning":            get("Meaning"),
		"IPA":                get("IPA"),
		"Part_of_Speech":     get(vocab.ColumnPartOfSpeech),
		"Gender":             gender(get("Gender"), language),
		"Morphology":         get("Morphology"),
		"Nuance":             get("Nuance"),
		"Sentence_1":         sentences[0],
		"Sentence_2":         sentences[1],
		"Sentence_3":         sentences[2],
		"ContextTranslation": textutil.CleanForDisplay(get("ContextTranslation")),
		"Etymology":          get("Etymology"),
		"Mnemonic":           get("Mnemonic"),
		"Analogues":          textutil.FormatAnalogues(get("Analogues")),
		"Tags":               get("Tags"),
		"Audio_Sent_1":       sentFiles[0],
		"Audio_Sent_2":       sentFiles[1],
		"Audio_Sent_3":       sentFiles[2],
		"Audio_Path_Word":    wordFile,
		"ContextSentences":   cloze,
		"UUID":               record.ID,
	}
	if imageFile != "" {
		values["Image"] = fmt.Sprintf(`<img src="%s">`, html.EscapeString(imageFile))
	}
	if wordFile != "" {
		values["AudioWord"] = fmt.Sprintf("[sound:%s]", wordFile)
	}

	note := Note{
		GUID:   record.ID,
		Label:  record.Label,
		Fields: make([]Field, len(FieldNames)),
		Tags:   strings.Fields(get("Tags")),
		Media:  media,
	}
	for i, name := range FieldNames {
		note.Fields[i] = Field{Name: name, Value: values[name]}
	}
	return note
}

func gender(value, language string) string {
	if strings.EqualFold(strings.TrimSpace(language), "en") {
		return "en"
	}
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "nan" {
		return "none"
	}
	return value
}

// Deck is the assembled output of a run.
type Deck struct {
	Notes   []Note   `json:"notes"`
	Skipped []string `json:"skipped,omitempty"`
	Media   []string `json:"media"`
}

// Build assembles every usable record. Records whose mandatory media failed
// are listed in Skipped. records and outcomes must be parallel slices.
func Build(records []pipeline.Record, outcomes []pipeline.RecordOutcome, language string) (Deck, error) {
	if len(records) != len(outcomes) {
		return Deck{}, fmt.Errorf("record/outcome length mismatch: %d vs %d", len(records), len(outcomes))
	}
	deck := Deck{Notes: make([]Note, 0, len(records)), Media: []string{}}
	seen := make(map[string]struct{})
	for i, record := range records {
		outcome := outcomes[i]
		if outcome.RecordID != record.ID {
			return Deck{}, fmt.Errorf("outcome %d belongs to %q, want %q", i, outcome.RecordID, record.ID)
		}
		if !outcome.Usable() {
			deck.Skipped = append(deck.Skipped, record.ID)
			continue
		}
		note := Assemble(record, outcome, language)
		for _, name := range note.Media {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			deck.Media = append(deck.Media, name)
		}
		deck.Notes = append(deck.Notes, note)
	}
	sort.Strings(deck.Media)
	return deck, nil
}
