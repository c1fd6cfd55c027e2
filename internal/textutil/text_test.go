package textutil

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"nulls stripped", "a\x00b", "ab"},
		{"windows newlines", "a\r\nb\rc", "a\nb\nc"},
		{"blank run capped", "a\n\n\n\n\nb", "a\n\nb"},
		{"space run collapsed", "a    b", "a b"},
		{"lines trimmed", "  a  \n  b  ", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateExactBoundary(t *testing.T) {
	text := strings.Repeat("a", 64)

	got, truncated := Truncate(text, 64)
	if truncated || got != text {
		t.Fatalf("text at exactly max bytes must not be truncated")
	}

	got, truncated = Truncate(text+"b", 64)
	if !truncated {
		t.Fatal("text one byte over max must be truncated")
	}
	if len(got) != 64 {
		t.Fatalf("truncated length = %d, want 64", len(got))
	}
}

func TestTruncateRespectsUTF8(t *testing.T) {
	// é is two bytes; cutting at 4 would split the second rune.
	text := "aéé"
	got, truncated := Truncate(text, 4)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if got != "aé" {
		t.Fatalf("Truncate = %q, want %q", got, "aé")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"en", "en"},
		{"EN-us", "en"},
		{"de-DE", "de"},
		{"", "en"},
		{"not a language!!", "en"},
	}
	for _, tt := range tests {
		if got := NormalizeLanguage(tt.hint, "en"); got != tt.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tt.hint, got, tt.want)
		}
	}
}

func TestTruncateZeroMaxIsNoop(t *testing.T) {
	got, truncated := Truncate("abc", 0)
	if truncated || got != "abc" {
		t.Fatalf("Truncate with zero max = (%q, %v), want passthrough", got, truncated)
	}
}
