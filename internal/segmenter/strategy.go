// Package segmenter splits a document into raw segments, either locally by size or by asking an
// LLM to segment it into logical sections.
package segmenter

import (
	"context"
	"fmt"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

// Segmentation modes.
const (
	ModeRecursive = "recursive"
	ModeAI        = "ai"
)

// Outcome is the result of segmenting one document.
type Outcome struct {
	Segments []chunker.RawSegment
	// CalledOracle reports whether an external request was actually sent.
	CalledOracle bool
}

// Strategy produces raw segments for a document. Implementations never fail; problems degrade to
// a coarser segmentation.
type Strategy interface {
	Segment(ctx context.Context, doc chunker.Document) Outcome
	Name() string
}

// New returns the strategy for mode. The oracle client is required for ModeAI only.
func New(mode string, budget int, oracle *OracleClient) (Strategy, error) {
	switch mode {
	case ModeRecursive:
		return NewLocalSegmenter(budget), nil
	case ModeAI:
		if oracle == nil {
			return nil, fmt.Errorf("mode %q requires an LLM client", ModeAI)
		}
		return NewOracleSegmenter(oracle), nil
	default:
		return nil, ValidateMode(mode)
	}
}

// ValidateMode checks a mode name.
func ValidateMode(mode string) error {
	switch mode {
	case ModeRecursive, ModeAI:
		return nil
	default:
		return fmt.Errorf("unknown segmentation mode %q (want %q or %q)", mode, ModeRecursive, ModeAI)
	}
}
