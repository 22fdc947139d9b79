package chunker

import "strings"

const (
	mergeBufferFloor  = 120
	mergeHeadingFloor = 50
	mergeNextFloor    = 50
	mergeHeadingLines = 2
)

// sectionStarters are heading words that always open a new chunk.
var sectionStarters = []string{
	"Overview",
	"Background",
	"Outcome",
	"Before you start",
	"Parameters to set",
	"Follow these steps",
	"Example",
	"Simulation",
	"Settings description",
}

// MergeFragments joins orphaned headings, table rows and tiny segments into their neighbours in a
// single left-to-right pass. The merged segment keeps the title and chunk type of the first part.
func MergeFragments(segs []NormalizedSegment) []NormalizedSegment {
	if len(segs) == 0 {
		return []NormalizedSegment{}
	}

	merged := make([]NormalizedSegment, 0, len(segs))
	buffer := cloneSegment(segs[0])

	for _, next := range segs[1:] {
		if shouldMerge(buffer, next) {
			buffer.Text = buffer.Text + "\n\n" + next.Text
			buffer.Programs = unionOrdered(buffer.Programs, next.Programs)
			buffer.Topics = unionOrdered(buffer.Topics, next.Topics)
			continue
		}
		merged = append(merged, buffer)
		buffer = cloneSegment(next)
	}

	return append(merged, buffer)
}

func shouldMerge(buffer, next NormalizedSegment) bool {
	if startsWithSection(next.Text) {
		return false
	}

	bufferTokens := EstimateTokens(buffer.Text)
	nextTokens := EstimateTokens(next.Text)

	bufferTooSmall := bufferTokens < mergeBufferFloor
	bufferIsHeading := strings.Count(buffer.Text, "\n")+1 <= mergeHeadingLines && bufferTokens < mergeHeadingFloor
	nextIsTableRow := strings.Contains(next.Text, "|") && !strings.Contains(next.Text, "\n\n")
	nextTooSmall := nextTokens < mergeNextFloor

	return bufferTooSmall || bufferIsHeading || nextIsTableRow || nextTooSmall
}

func startsWithSection(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, h := range sectionStarters {
		if strings.HasPrefix(trimmed, h) {
			return true
		}
	}
	return false
}

func unionOrdered(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func cloneSegment(s NormalizedSegment) NormalizedSegment {
	s.Programs = append([]string{}, s.Programs...)
	s.Topics = append([]string{}, s.Topics...)
	return s
}
