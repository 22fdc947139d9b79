package segmenter

import (
	"context"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

// LocalSegmenter splits documents at paragraph boundaries and breaks oversized paragraphs down
// with the recursive splitter. It never leaves the process.
type LocalSegmenter struct {
	budget int
}

// NewLocalSegmenter creates a local segmenter with the given token budget.
func NewLocalSegmenter(budget int) *LocalSegmenter {
	if budget <= 0 {
		budget = chunker.DefaultChunkSize
	}
	return &LocalSegmenter{budget: budget}
}

// Name returns the strategy name.
func (s *LocalSegmenter) Name() string {
	return ModeRecursive
}

// Budget returns the token budget.
func (s *LocalSegmenter) Budget() int {
	return s.budget
}

// Segment returns bare segments for doc.
func (s *LocalSegmenter) Segment(_ context.Context, doc chunker.Document) Outcome {
	var segs []chunker.RawSegment
	for _, block := range chunker.SplitParagraphs(doc.Text) {
		if chunker.EstimateTokens(block) <= s.budget {
			segs = append(segs, chunker.BareSegment(block))
			continue
		}
		for _, span := range chunker.SplitRecursive(block, s.budget) {
			segs = append(segs, chunker.BareSegment(span))
		}
	}
	return Outcome{Segments: segs}
}
