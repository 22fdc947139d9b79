package chunker

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(text string) NormalizedSegment {
	return NormalizedSegment{
		Text:      text,
		Title:     UntitledSection,
		ChunkType: ChunkTypeConcept,
		Programs:  []string{},
		Topics:    []string{},
	}
}

func TestFilterNoise_Boilerplate(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"related topics", "Related topics: see also X"},
		{"case insensitive and collapsed", "   related\n\n  TOPICS for the ledger module"},
		{"copyright", "Copyright 2024 Infor. All rights reserved."},
		{"page not found", "Page not found. The page you requested is gone."},
		{"http error", "Error 404 while loading the requested page"},
		{"javascript link", "javascript:void(0) Print this page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, report := FilterNoise([]NormalizedSegment{segment(tt.text)}, nil, nil)

			assert.Empty(t, kept)
			assert.Equal(t, FilterReport{Boilerplate: 1}, report)
		})
	}
}

func TestFilterNoise_PatternMustBeAnchored(t *testing.T) {
	text := "Set the VAT code first. See also the related topics below."

	kept, report := FilterNoise([]NormalizedSegment{segment(text)}, nil, nil)

	assert.Len(t, kept, 1)
	assert.Zero(t, report.Total())
}

func TestFilterNoise_TooShort(t *testing.T) {
	kept, report := FilterNoise([]NormalizedSegment{
		segment("Example"),
		segment("   \n\t  "),
		segment(""),
		segment("| a | b |"),
	}, nil, nil)

	require.Len(t, kept, 2)
	assert.Equal(t, "Example", kept[0].Text)
	assert.Equal(t, "| a | b |", kept[1].Text)
	assert.Equal(t, 2, report.TooShort)
}

func TestFilterNoise_HallucinationGuard(t *testing.T) {
	original := "Use program CRS610 to configure the\n   customer master for each division."
	segs := []NormalizedSegment{
		segment("Use program CRS610 to configure the customer master"),
		segment("Use program CRS999 to configure the customer master"),
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	kept, report := NewNoiseFilter(logger).Filter(segs, &original)

	require.Len(t, kept, 1)
	assert.Contains(t, kept[0].Text, "CRS610")
	assert.Equal(t, 1, report.Hallucinated)
	assert.Contains(t, buf.String(), "rejecting hallucinated segment")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestFilterNoise_FidelityOff(t *testing.T) {
	kept, report := FilterNoise([]NormalizedSegment{
		segment("Use program CRS999 to configure the customer master"),
	}, nil, nil)

	assert.Len(t, kept, 1)
	assert.Zero(t, report.Total())
}

func TestFilterNoise_PreservesOrder(t *testing.T) {
	segs := []NormalizedSegment{
		segment("First section of the guide"),
		segment("See also: other guides"),
		segment("Second section of the guide"),
		segment("Third section of the guide"),
	}

	kept, _ := FilterNoise(segs, nil, nil)

	require.Len(t, kept, 3)
	assert.Equal(t, "First section of the guide", kept[0].Text)
	assert.Equal(t, "Second section of the guide", kept[1].Text)
	assert.Equal(t, "Third section of the guide", kept[2].Text)
}

func TestFilterReport_Add(t *testing.T) {
	r := FilterReport{Boilerplate: 1}
	r.Add(FilterReport{TooShort: 2, Hallucinated: 3})

	assert.Equal(t, FilterReport{Boilerplate: 1, TooShort: 2, Hallucinated: 3}, r)
	assert.Equal(t, 6, r.Total())
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\n b\t\tc  "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}
