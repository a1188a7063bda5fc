package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes a deck or manifest name safe as a single path
// element. Separators become dashes, shell-hostile punctuation and control
// characters are dropped, and the result is NFC-normalized and trimmed.
func SanitizeFileName(name string) string {
	name = NFC(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			return '-'
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(mapped)
}

// SanitizeToken lowercases value and keeps ASCII letters, digits, dashes and
// underscores; anything else becomes an underscore. Cache file names embed
// the result, so it never returns an empty string.
func SanitizeToken(value string) string {
	mapped := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	if mapped = strings.Trim(mapped, "_-"); mapped == "" {
		return "unknown"
	}
	return mapped
}
