package llm

import (
	"regexp"
	"strings"
)

// Models that are told to answer in JSON still wrap it in markdown fences or surround it with
// prose. These helpers recover the JSON payload from such text.

var codeFencePattern = regexp.MustCompile("```(?:json|JSON)?")

// StripCodeFences removes markdown code fence markers and trims the result.
func StripCodeFences(content string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(content, ""))
}

// ExtractJSONObject returns the text from the first '{' to the last '}' inclusive.
func ExtractJSONObject(content string) (string, bool) {
	return extractBetween(content, '{', '}')
}

// ExtractJSONArray returns the text from the first '[' to the last ']' inclusive.
func ExtractJSONArray(content string) (string, bool) {
	return extractBetween(content, '[', ']')
}

func extractBetween(content string, open, close byte) (string, bool) {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start < 0 || end < start {
		return "", false
	}
	return content[start : end+1], true
}
