package textutil

import (
	"strings"
	"testing"
)

func TestNFCComposesCombiningMarks(t *testing.T) {
	decomposed := "Cafe\u0301"
	if got := NFC(decomposed); got != "Caf\u00e9" {
		t.Fatalf("NFC(%q) = %q", decomposed, got)
	}
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"tags", "<b>Hallo</b> &amp; Tschüss", "Hallo & Tschüss"},
		{"numbered", "1. Der Hund 2) bellt", "Der Hund bellt"},
		{"whitespace", "  a\t\tb \n c ", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanForSpeech(tt.in); got != tt.want {
				t.Errorf("CleanForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Eins.<br>Zwei.<BR/>\n\nDrei.<br />Vier.", 3)
	want := []string{"Eins.", "Zwei.", "Drei."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("SplitSentences = %q, want %q", got, want)
	}
	if got := SplitSentences("", 3); len(got) != 0 {
		t.Fatalf("expected no sentences, got %q", got)
	}
	if got := SplitSentences("a\nb\nc\nd", 0); len(got) != 4 {
		t.Fatalf("expected unlimited split, got %q", got)
	}
}

func TestCleanForDisplayKeepsSeparators(t *testing.T) {
	got := CleanForDisplay("1. the dog<br>2) the cat\n3. a bird")
	want := "the dog<br>the cat\na bird"
	if got != want {
		t.Fatalf("CleanForDisplay = %q, want %q", got, want)
	}
}

func TestFormatAnalogues(t *testing.T) {
	if got := FormatAnalogues("nan"); got != "" {
		t.Fatalf("expected empty output for nan, got %q", got)
	}
	got := FormatAnalogues("EN: dog<br>loose line")
	if !strings.Contains(got, `<td class="ana-lang">EN</td><td class="ana-word">dog</td>`) {
		t.Fatalf("missing coded row: %s", got)
	}
	if !strings.Contains(got, `<td colspan="2" class="ana-word">loose line</td>`) {
		t.Fatalf("missing loose row: %s", got)
	}
}
