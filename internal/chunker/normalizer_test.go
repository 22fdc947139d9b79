package chunker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRawSegment_UnmarshalJSON(t *testing.T) {
	payload := `[
		"plain span",
		{"text": "structured", "title": "Overview", "chunk_type": "procedure", "programs": ["CRS610"], "topics": ["vat"]},
		{"text": "loose", "programs": "GLS100", "topics": [1, "ledger", null]},
		{"text": 42, "title": {"nested": true}}
	]`

	var segs []RawSegment
	require.NoError(t, json.Unmarshal([]byte(payload), &segs))
	require.Len(t, segs, 4)

	assert.True(t, segs[0].Bare)
	assert.Equal(t, "plain span", segs[0].Text)

	assert.False(t, segs[1].Bare)
	assert.Equal(t, "Overview", *segs[1].Title)
	assert.Equal(t, "procedure", *segs[1].ChunkType)
	assert.Equal(t, []string{"CRS610"}, segs[1].Programs)

	assert.Equal(t, []string{"GLS100"}, segs[2].Programs)
	assert.Equal(t, []string{"ledger"}, segs[2].Topics)
	assert.Nil(t, segs[2].Title)

	assert.Equal(t, "", segs[3].Text)
	assert.Nil(t, segs[3].Title)
}

func TestRawSegment_MarshalJSON(t *testing.T) {
	segs := []RawSegment{
		BareSegment("plain"),
		TypedSegment("typed", "Doc", ChunkTypeConcept),
	}

	data, err := json.Marshal(segs)
	require.NoError(t, err)
	assert.JSONEq(t, `["plain", {"text": "typed", "title": "Doc", "chunk_type": "concept"}]`, string(data))

	var decoded []RawSegment
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, segs, decoded)
}

func TestNormalize_BareSegment(t *testing.T) {
	out := Normalize([]RawSegment{BareSegment("body text")}, DocumentMeta{Title: "Tax Setup"})

	require.Len(t, out, 1)
	assert.Equal(t, NormalizedSegment{
		Text:      "body text",
		Title:     "Tax Setup",
		ChunkType: ChunkTypeConcept,
		Programs:  []string{},
		Topics:    []string{},
	}, out[0])
}

func TestNormalize_DefaultsWithoutDocumentTitle(t *testing.T) {
	out := Normalize([]RawSegment{BareSegment("body")}, DocumentMeta{})

	require.Len(t, out, 1)
	assert.Equal(t, UntitledSection, out[0].Title)
}

func TestNormalize_StructuredPrefersOwnValues(t *testing.T) {
	raw := []RawSegment{
		{Text: "a", Title: strPtr("Parameters to set"), ChunkType: strPtr("reference"), Programs: []string{"CRS610"}},
		{Text: "b", Title: strPtr(""), ChunkType: strPtr("")},
		{Text: "c", ChunkType: strPtr("glossary")},
	}

	out := Normalize(raw, DocumentMeta{Title: "VAT Settings Guide"})

	require.Len(t, out, 3)
	assert.Equal(t, "Parameters to set", out[0].Title)
	assert.Equal(t, "reference", out[0].ChunkType)
	assert.Equal(t, []string{"CRS610"}, out[0].Programs)
	assert.Equal(t, []string{}, out[0].Topics)

	assert.Equal(t, "VAT Settings Guide", out[1].Title)
	assert.Equal(t, ChunkTypeConcept, out[1].ChunkType)

	assert.Equal(t, "glossary", out[2].ChunkType)
}

func TestRenormalize_FixedPoint(t *testing.T) {
	meta := DocumentMeta{Title: "Tax Setup"}
	first := Normalize([]RawSegment{
		BareSegment("one"),
		{Text: "two", Title: strPtr("Overview"), Topics: []string{"tax"}},
		{Text: "three", Programs: []string{"CRS610", "GLS100"}},
	}, meta)

	second := Renormalize(first, meta)

	assert.Equal(t, first, second)
	assert.Equal(t, second, Renormalize(second, DocumentMeta{Title: "Other"}))
}
