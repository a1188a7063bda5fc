// Package vocab reads the pipe-separated vocabulary table and builds one
// pipeline.Record per row.
package vocab

import (
	"bytes"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand/v2"
	"os"
	"regexp"
	"strings"

	"lexideck/internal/config"
	"lexideck/internal/pipeline"
	"lexideck/internal/textutil"
)

// Column names understood by the loader. Other columns are carried as
// metadata.
const (
	ColumnTargetWord   = "TargetWord"
	ColumnPartOfSpeech = "Part_of_Speech"
	ColumnSentences    = "ContextSentences"
	ColumnImagePrompt  = "ImagePrompt"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Options controls how rows become records.
type Options struct {
	Language     string
	StripPattern string
	MaxSentences int
	Voices       []string
	AudioExt     string
	Images       bool
	Shuffle      bool
	// Rand drives shuffling; nil uses the global source.
	Rand *rand.Rand
}

// OptionsFromConfig maps the deck, tts and image sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:     cfg.Deck.Language,
		StripPattern: cfg.Deck.StripPattern,
		MaxSentences: cfg.Deck.MaxSentences,
		Voices:       cfg.TTS.Voices,
		AudioExt:     "." + strings.TrimPrefix(cfg.TTS.Format, "."),
		Images:       cfg.Image.Enabled,
		Shuffle:      cfg.Deck.Shuffle,
	}
}

// Load reads the table at path.
func Load(path string, opts Options) ([]pipeline.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer file.Close()
	return Parse(file, opts)
}

// Parse reads a pipe-separated table with a header row. Rows without a
// target word are skipped.
func Parse(r io.Reader, opts Options) ([]pipeline.Record, error) {
	var strip *regexp.Regexp
	if pattern := strings.TrimSpace(opts.StripPattern); pattern != "" {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile strip pattern: %w", err)
		}
		strip = re
	}
	if len(opts.Voices) == 0 {
		return nil, errors.New("at least one voice is required")
	}

	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(string(bytes.TrimPrefix([]byte(header[i]), utf8BOM)))
	}
	if indexOf(header, ColumnTargetWord) < 0 {
		return nil, fmt.Errorf("missing %s column", ColumnTargetWord)
	}

	var records []pipeline.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			fields[name] = strings.TrimSpace(row[i])
		}
		record, ok := buildRecord(fields, strip, opts)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	if opts.Shuffle {
		shuffle := rand.Shuffle
		if opts.Rand != nil {
			shuffle = opts.Rand.Shuffle
		}
		shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	}
	return records, nil
}

func buildRecord(fields map[string]string, strip *regexp.Regexp, opts Options) (pipeline.Record, bool) {
	raw := fields[ColumnTargetWord]
	if raw == "" {
		return pipeline.Record{}, false
	}
	clean := raw
	if strip != nil {
		clean = strings.TrimSpace(strip.ReplaceAllString(raw, ""))
	}
	record := pipeline.Record{
		ID:       RecordID(clean, fields[ColumnPartOfSpeech], opts.Language),
		Label:    textutil.NFC(clean),
		Metadata: fields,
	}

	if word := textutil.CleanForSpeech(raw); word != "" {
		record.Requests = append(record.Requests, pipeline.Request{
			Kind:      pipeline.KindWordAudio,
			Content:   word,
			Variant:   PickVoice(opts.Voices, word),
			Mandatory: true,
			Ext:       opts.AudioExt,
		})
	}
	for slot, sentence := range textutil.SplitSentences(fields[ColumnSentences], opts.MaxSentences) {
		spoken := textutil.CleanForSpeech(sentence)
		if spoken == "" {
			continue
		}
		record.Requests = append(record.Requests, pipeline.Request{
			Kind:    pipeline.KindSentenceAudio,
			Content: spoken,
			Variant: PickVoice(opts.Voices, spoken),
			Slot:    slot,
			Ext:     opts.AudioExt,
		})
	}
	if prompt := strings.TrimSpace(fields[ColumnImagePrompt]); opts.Images && prompt != "" {
		record.Requests = append(record.Requests, pipeline.Request{
			Kind:    pipeline.KindImage,
			Content: textutil.NFC(prompt),
		})
	}
	return record, true
}

// RecordID derives the stable card identifier from the article-stripped word,
// its part of speech and the deck language.
func RecordID(word, partOfSpeech, language string) string {
	sum := md5.Sum([]byte(textutil.NFC(word) + partOfSpeech))
	return hex.EncodeToString(sum[:]) + "_" + strings.ToLower(strings.TrimSpace(language))
}

// PickVoice chooses a voice for text deterministically so the cache key of a
// text is stable across runs.
func PickVoice(voices []string, text string) string {
	if len(voices) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(textutil.NFC(text)))
	return voices[h.Sum32()%uint32(len(voices))]
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
