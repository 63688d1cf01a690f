package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxNameBytes keeps names well below the 255-byte limit of common
// filesystems once an extension and collision suffix are appended.
const maxNameBytes = 180

// fallbackName is used when a title sanitizes to nothing.
const fallbackName = "untitled"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName converts a title into a single path segment. The title is
// NFC-normalized, control characters are dropped, slashes, backslashes,
// colons and asterisks become dashes, and other unsafe characters are
// removed. Runs of whitespace collapse to one space, leading and trailing
// dots are trimmed, and the result is cut to a bounded byte length on a rune
// boundary. An empty result becomes "untitled".
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)
	name = fileNameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")
	name = truncate(name, maxNameBytes)
	name = strings.TrimRight(name, ". ")
	if name == "" {
		return fallbackName
	}
	return name
}

// ShortHash returns the first eight hex characters of the SHA-256 of value.
func ShortHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:8]
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
