package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Simple Title", "Simple Title"},
		{"AC/DC: Live", "AC-DC- Live"},
		{"What? \"Quoted\" <tags> a|b", "What Quoted tags ab"},
		{"  spaced\tout\n title  ", "spaced out title"},
		{"...hidden.", "hidden"},
		{"", "untitled"},
		{"???", "untitled"},
		{"Café", "Café"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.expected {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeFileNameTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("日本", 100)
	got := SanitizeFileName(long)
	if len(got) > maxNameBytes {
		t.Fatalf("expected at most %d bytes, got %d", maxNameBytes, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
}

func TestShortHash(t *testing.T) {
	a := ShortHash("https://example.com/a")
	b := ShortHash("https://example.com/b")
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("expected 8-char hashes, got %q and %q", a, b)
	}
	if a == b {
		t.Fatal("different inputs should hash differently")
	}
	if a != ShortHash("https://example.com/a") {
		t.Fatal("hash must be stable")
	}
}
