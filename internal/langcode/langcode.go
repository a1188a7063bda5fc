// Package langcode normalizes deck language settings to the ISO 639-1 base
// codes used in record IDs and voice names.
package langcode

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// aliases covers English names and bibliographic ISO 639-2 codes that the
// tag parser does not resolve.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"fre":        "fr",
	"german":     "de",
	"ger":        "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"chi":        "zh",
	"russian":    "ru",
	"dutch":      "nl",
	"dut":        "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Normalize maps a language tag, ISO 639-2 code, or English language name to
// its base code. ok is false when value names no known language.
func Normalize(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", false
	}
	if code, ok := aliases[v]; ok {
		return code, true
	}
	tag, err := language.Parse(v)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	return base.String(), true
}

// DisplayName returns the English name of code, or the upper-cased input when
// it cannot be parsed.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
