package chunker

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinSegmentChars is the shortest collapsed text a segment may have. Short headings and table
	// rows must survive so the merger can join them to their neighbours.
	MinSegmentChars = 1

	headerSnippetChars = 100
	previewChars       = 30
)

var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(Related topics|More information|See also|About this guide|Intended audience|Document structure|Copyright|Legal info)`),
	regexp.MustCompile(`(?i)^Page not found`),
	regexp.MustCompile(`(?i)^Error \d+`),
	regexp.MustCompile(`(?i)^javascript:void`),
}

// FilterReport counts rejected segments by reason.
type FilterReport struct {
	Boilerplate  int `json:"boilerplate"`
	TooShort     int `json:"too_short"`
	Hallucinated int `json:"hallucinated"`
}

// Total returns the number of rejected segments.
func (r FilterReport) Total() int {
	return r.Boilerplate + r.TooShort + r.Hallucinated
}

// Add accumulates other into r.
func (r *FilterReport) Add(other FilterReport) {
	r.Boilerplate += other.Boilerplate
	r.TooShort += other.TooShort
	r.Hallucinated += other.Hallucinated
}

// NoiseFilter drops boilerplate, fragments and segments that do not occur in the source document.
type NoiseFilter struct {
	logger *slog.Logger
}

// NewNoiseFilter creates a filter that logs rejections to logger.
func NewNoiseFilter(logger *slog.Logger) *NoiseFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoiseFilter{logger: logger.With("component", "noise_filter")}
}

// Filter returns the kept subsequence of segs in order. When original is non-nil every kept
// segment's collapsed text is a substring of the collapsed original.
func (f *NoiseFilter) Filter(segs []NormalizedSegment, original *string) ([]NormalizedSegment, FilterReport) {
	var report FilterReport

	var normOriginal string
	if original != nil {
		normOriginal = CollapseWhitespace(*original)
	}

	kept := make([]NormalizedSegment, 0, len(segs))
	for _, seg := range segs {
		norm := CollapseWhitespace(seg.Text)

		if isBoilerplate(norm) {
			report.Boilerplate++
			continue
		}

		if utf8.RuneCountInString(norm) < MinSegmentChars {
			report.TooShort++
			continue
		}

		if original != nil && !strings.Contains(normOriginal, norm) {
			report.Hallucinated++
			f.logger.Warn("rejecting hallucinated segment",
				"title", seg.Title,
				"preview", truncateRunes(norm, previewChars))
			continue
		}

		kept = append(kept, seg)
	}

	return kept, report
}

// FilterNoise is a convenience wrapper around NoiseFilter.Filter.
func FilterNoise(segs []NormalizedSegment, original *string, logger *slog.Logger) ([]NormalizedSegment, FilterReport) {
	return NewNoiseFilter(logger).Filter(segs, original)
}

func isBoilerplate(norm string) bool {
	snippet := truncateRunes(norm, headerSnippetChars)
	for _, re := range boilerplatePatterns {
		if re.MatchString(snippet) {
			return true
		}
	}
	return false
}

// CollapseWhitespace replaces every whitespace run with a single space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
