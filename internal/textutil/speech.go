package textutil

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	sentenceSplitPattern = regexp.MustCompile(`(?i)<br\s*/?>|\n`)
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
	numberedListPattern  = regexp.MustCompile(`(^|\s)\d+[.)]\s*`)
	displayListPrefix    = regexp.MustCompile(`^\s*\d+[.)]\s*`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// NFC returns text in Unicode normalization form C.
func NFC(text string) string {
	if text == "" {
		return ""
	}
	return norm.NFC.String(text)
}

// CleanForSpeech strips markup and list numbering so the text reads naturally
// when synthesized.
func CleanForSpeech(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = numberedListPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return NFC(strings.TrimSpace(text))
}

// SplitSentences splits a context field on <br> variants and newlines,
// dropping blanks and keeping at most maxCount entries (no limit when
// maxCount <= 0).
func SplitSentences(text string, maxCount int) []string {
	text = NFC(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := sentenceSplitPattern.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
		if maxCount > 0 && len(out) == maxCount {
			break
		}
	}
	return out
}

// CleanForDisplay removes leading list numbering from each line while keeping
// the line separators intact.
func CleanForDisplay(text string) string {
	text = NFC(text)
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		segments := strings.Split(line, "<br>")
		for j, segment := range segments {
			segments[j] = displayListPrefix.ReplaceAllString(segment, "")
		}
		lines[i] = strings.Join(segments, "<br>")
	}
	return strings.Join(lines, "\n")
}

// FormatAnalogues renders "CODE: word" lines as an HTML table. Lines without
// a code span both columns.
func FormatAnalogues(text string) string {
	text = NFC(strings.TrimSpace(text))
	if text == "" || strings.EqualFold(text, "nan") {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<table class="analogues-table">`)
	for _, line := range sentenceSplitPattern.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		code, word, found := strings.Cut(line, ":")
		if found {
			fmt.Fprintf(&b, `<tr class="ana-row"><td class="ana-lang">%s</td><td class="ana-word">%s</td></tr>`,
				strings.TrimSpace(code), strings.TrimSpace(word))
			continue
		}
		fmt.Fprintf(&b, `<tr class="ana-row"><td colspan="2" class="ana-word">%s</td></tr>`, line)
	}
	b.WriteString(`</table>`)
	return b.String()
}
