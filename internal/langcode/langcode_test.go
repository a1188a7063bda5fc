package langcode

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"de", "de", true},
		{" DE ", "de", true},
		{"de-DE", "de", true},
		{"German", "de", true},
		{"ger", "de", true},
		{"fre", "fr", true},
		{"es-419", "es", true},
		{"", "", false},
		{"not a language", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct{ input, want string }{
		{"de", "German"},
		{"fr", "French"},
		{"", "Unknown"},
		{"!!", "!!"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
