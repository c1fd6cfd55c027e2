// Package textutil normalizes and truncates OCR candidate text before it is
// validated or emitted.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
)

var (
	crRe       = regexp.MustCompile(`\r\n|\r`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe = regexp.MustCompile(` +`)
)

// Normalize cleans raw engine output: NULs stripped, newlines folded to \n,
// runs of blank lines capped at one, runs of spaces collapsed, lines and the
// whole text trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = crRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = spaceRunRe.ReplaceAllString(strings.TrimSpace(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// NormalizeLanguage canonicalizes a caller-supplied language hint to its
// base tag ("EN-us" -> "en"). Unparseable hints fall back to fallback.
func NormalizeLanguage(hint, fallback string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return fallback
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return fallback
	}
	base, conf := tag.Base()
	if conf == language.No {
		return fallback
	}
	return base.String()
}

// Truncate limits text to maxBytes without splitting a UTF-8 sequence.
// It returns the (possibly shortened) text and whether truncation happened.
func Truncate(text string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text, false
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}
