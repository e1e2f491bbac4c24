// Package sanitize cleans text that came from outside the process (response
// bodies, file names) before it is stored in history or printed.
//
// It removes:
//   - Windows/Mac line endings and other control characters
//   - Invisible Unicode characters (zero-width spaces, BOM, etc.)
//   - Runs of whitespace
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var invisibleChars = []string{
	"\u200B", // Zero-width space
	"\u200C", // Zero-width non-joiner
	"\u200D", // Zero-width joiner
	"\uFEFF", // Zero-width no-break space (BOM)
	"\u00AD", // Soft hyphen
	"\u2060", // Word joiner
	"\u180E", // Mongolian vowel separator
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Line flattens s onto a single line: control characters become spaces,
// invisible characters are dropped and whitespace runs collapse to one space.
func Line(s string) string {
	if s == "" {
		return s
	}
	s = removeInvisibleChars(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Field removes invisible characters and trims surrounding whitespace but
// keeps the inner layout.
func Field(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(removeInvisibleChars(s))
}

func removeInvisibleChars(s string) string {
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
