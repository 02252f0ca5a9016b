package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeLine trims s, folds it to NFC and collapses inner whitespace.
// Used for single-line fields such as the complaint title.
func normalizeLine(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

// sanitizeContent prepares free text (descriptions, messages) for storage:
// NFC form, LF line endings, no NUL bytes, outer whitespace trimmed.
// Inner line breaks are kept.
func sanitizeContent(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// tooLong reports whether s exceeds max runes; max <= 0 disables the check.
func tooLong(s string, max int) bool {
	return max > 0 && utf8.RuneCountInString(s) > max
}
