package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default token budget for the recursive splitter.
const DefaultChunkSize = 512

// separators are tried coarse to fine. The empty separator splits into single characters.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// SplitRecursive splits text into spans whose estimated size stays within budget, preferring
// paragraph, then line, then sentence, then word boundaries. The spans concatenate back to text
// exactly; separators stay attached to the span they end.
func SplitRecursive(text string, budget int) []string {
	if text == "" {
		return nil
	}
	if budget < 1 {
		budget = 1
	}
	return splitAtLevel(text, 0, budget)
}

func splitAtLevel(text string, level, budget int) []string {
	var spans []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			spans = append(spans, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, part := range splitKeepSeparator(text, separators[level]) {
		partLen := utf8.RuneCountInString(part)

		if estimateFromLength(currentLen+partLen) <= budget {
			current.WriteString(part)
			currentLen += partLen
			continue
		}

		flush()

		if estimateFromLength(partLen) > budget && level < len(separators)-1 {
			spans = append(spans, splitAtLevel(part, level+1, budget)...)
			continue
		}

		// Oversized at the finest level: accepted as is.
		current.WriteString(part)
		currentLen = partLen
	}
	flush()

	return spans
}

// splitKeepSeparator splits text on sep and re-attaches sep to every part but the last, so the
// parts concatenate to text. Empty parts are dropped.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		parts := make([]string, 0, utf8.RuneCountInString(text))
		for i, w := 0, 0; i < len(text); i += w {
			_, w = utf8.DecodeRuneInString(text[i:])
			parts = append(parts, text[i:i+w])
		}
		return parts
	}

	pieces := strings.Split(text, sep)
	parts := make([]string, 0, len(pieces))
	for i, p := range pieces {
		if i < len(pieces)-1 {
			p += sep
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// SplitParagraphs cuts text into blocks at blank-line boundaries. The separators themselves are
// not part of any block; whitespace-only blocks are dropped.
func SplitParagraphs(text string) []string {
	var blocks []string
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}
