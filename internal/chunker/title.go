package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxAbbrevWords = 6
	maxAbbrevChars = 6
	fallbackAbbrev = "DOC"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Abbreviate derives the short bracket prefix used in chunk titles from a document title.
func Abbreviate(docTitle string) string {
	words := strings.Fields(nonAlphanumeric.ReplaceAllString(docTitle, ""))

	switch len(words) {
	case 0:
		return fallbackAbbrev
	case 1:
		w := words[0]
		if len(w) > maxAbbrevChars {
			w = w[:maxAbbrevChars]
		}
		return strings.ToUpper(w)
	}

	if len(words) > maxAbbrevWords {
		words = words[:maxAbbrevWords]
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteByte(w[0])
	}
	return strings.ToUpper(b.String())
}

// AssignTitle builds a chunk title unique within its document. Segments without a distinct section
// title are numbered by position.
func AssignTitle(docTitle, sectionTitle string, index, total int) string {
	abbrev := Abbreviate(docTitle)
	if sectionTitle == "" || sectionTitle == docTitle || sectionTitle == UntitledSection {
		return fmt.Sprintf("[%s] Part %d/%d", abbrev, index+1, total)
	}
	return fmt.Sprintf("[%s] %s", abbrev, sectionTitle)
}
