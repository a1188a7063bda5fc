package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"":               "unknown",
		"Word_Audio":     "word_audio",
		"  image  ":      "image",
		"a/b:c":          "a_b_c",
		"---":            "unknown",
		"sentence-audio": "sentence-audio",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` deck: "A/B"? `); got != "deck- A-B" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}

func TestSanitizeFileNameDropsControlCharacters(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"Deck\tOne":   "DeckOne",
		"Café * Bar": "Café - Bar",
		"a<b>c|d":     "abcd",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
