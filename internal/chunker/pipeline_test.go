package chunker

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("chunk-%d", n)
	}
}

func TestAssemble_Defaults(t *testing.T) {
	merged := []NormalizedSegment{segment("First body"), segment("Second body")}

	chunks := Assemble(merged, DocumentMeta{}, AssembleOptions{
		Bucket:            "official",
		Confidence:        "official",
		IncludeChunkCount: true,
		IDFunc:            sequentialIDs(),
	})

	require.Len(t, chunks, 2)
	c := chunks[1]
	assert.Equal(t, "chunk-2", c.ID)
	assert.Equal(t, UntitledDocument, c.OriginalDocTitle)
	assert.Equal(t, "[UD] Part 2/2", c.Title)
	assert.Equal(t, UnknownDocument, c.Source.DocumentID)
	assert.Equal(t, UntitledSection, c.Source.Section)
	assert.Equal(t, DefaultVersion, c.Source.Version)
	assert.Equal(t, []string{DefaultModule}, c.Tags.Module)
	assert.Equal(t, DefaultClientScope, c.Tags.ClientScope)
	assert.Equal(t, []string{}, c.Content.Steps)
	assert.Equal(t, 1, c.ChunkIndex)
	require.NotNil(t, c.ChunkCount)
	assert.Equal(t, 2, *c.ChunkCount)
	assert.Equal(t, EstimateTokens("Second body"), c.ChunkTokens)
}

func TestAssemble_UniqueRandomIDs(t *testing.T) {
	merged := make([]NormalizedSegment, 20)
	for i := range merged {
		merged[i] = segment(fmt.Sprintf("body %d", i))
	}

	chunks := Assemble(merged, DocumentMeta{Title: "Doc"}, AssembleOptions{})

	seen := make(map[string]bool)
	for _, c := range chunks {
		_, err := uuid.Parse(c.ID)
		require.NoError(t, err)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}

func TestAssemble_JSONLayout(t *testing.T) {
	chunks := Assemble([]NormalizedSegment{segment("Only body")},
		DocumentMeta{Title: "Tax Setup", File: "tax.html", URL: "https://docs.example.com/tax"},
		AssembleOptions{Bucket: "manual_ai", Confidence: "reviewed", IDFunc: sequentialIDs()})

	data, err := json.Marshal(chunks[0])
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "chunk-1",
		"bucket": "manual_ai",
		"chunk_type": "concept",
		"title": "[TS] Part 1/1",
		"original_doc_title": "Tax Setup",
		"source": {"document_id": "tax.html", "section": "Untitled Section", "version": "M3 Cloud", "url": "https://docs.example.com/tax"},
		"content": {"text": "Only body", "steps": []},
		"tags": {"module": ["Finance"], "programs": [], "topics": [], "client_scope": "global", "confidence": "reviewed"},
		"chunk_index": 0,
		"chunk_tokens": 3
	}`, string(data))
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, ProfileAutomatic, p.Name)

	p, err = ProfileByName(ProfileSupervised)
	require.NoError(t, err)
	assert.Equal(t, "manual_ai", p.Bucket)
	assert.Equal(t, "reviewed", p.Confidence)
	assert.False(t, p.VerifyFidelity)
	assert.False(t, p.IncludeChunkCount)
	assert.True(t, p.TypedFallback)

	_, err = ProfileByName("nightly")
	assert.Error(t, err)
}

func TestPipeline_TaxSetupParagraphs(t *testing.T) {
	doc := Document{
		Title: "Tax Setup",
		Text:  "Overview\nShort intro.\n\nFollow these steps\n1. Do X\n2. Do Y\n\nRelated topics\nSee also here.",
		File:  "tax-setup.html",
	}
	var raw []RawSegment
	for _, block := range SplitParagraphs(doc.Text) {
		raw = append(raw, BareSegment(block))
	}

	res := NewPipeline(AutomaticProfile(), nil, WithIDFunc(sequentialIDs())).Process(doc, raw)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "[TS] Part 1/2", res.Chunks[0].Title)
	assert.Equal(t, "[TS] Part 2/2", res.Chunks[1].Title)
	assert.Equal(t, FilterReport{Boilerplate: 1}, res.Report)
	for i, c := range res.Chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "official", c.Bucket)
		require.NotNil(t, c.ChunkCount)
		assert.Equal(t, 2, *c.ChunkCount)
	}
}

func TestPipeline_SupervisedSkipsFidelityCheck(t *testing.T) {
	doc := Document{Title: "VAT Settings Guide", Text: "Short original text."}
	raw := []RawSegment{
		{Text: "A paraphrased explanation of VAT codes", Title: strPtr("Overview")},
	}

	res := NewPipeline(SupervisedProfile(), nil).Process(doc, raw)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "[VSG] Overview", res.Chunks[0].Title)
	assert.Equal(t, "Overview", res.Chunks[0].Source.Section)
	assert.Nil(t, res.Chunks[0].ChunkCount)

	strict := NewPipeline(AutomaticProfile(), nil).Process(doc, raw)
	assert.Empty(t, strict.Chunks)
	assert.Equal(t, 1, strict.Report.Hallucinated)
}

func TestPipeline_ChunksReconstructKeptText(t *testing.T) {
	paragraphs := []string{
		"Background\n" + strings.Repeat("The ledger posts entries per division. ", 10),
		"Copyright 2024",
		"Settings description\n" + strings.Repeat("Field A controls rounding. ", 12),
		"| Field | Value |",
		"Example\n" + strings.Repeat("Voucher 1001 is posted to account 4000. ", 8),
	}
	doc := Document{Title: "Ledger Guide", Text: strings.Join(paragraphs, "\n\n")}
	var raw []RawSegment
	for _, p := range paragraphs {
		raw = append(raw, BareSegment(p))
	}

	res := NewPipeline(AutomaticProfile(), nil).Process(doc, raw)

	var got []string
	for _, c := range res.Chunks {
		got = append(got, c.Content.Text)
	}
	kept := []string{paragraphs[0], paragraphs[2], paragraphs[3], paragraphs[4]}
	assert.Equal(t, strings.Join(kept, "\n\n"), strings.Join(got, "\n\n"))

	titles := make(map[string]bool)
	for _, c := range res.Chunks {
		assert.False(t, titles[c.Title])
		titles[c.Title] = true
	}
}

func TestPipeline_HeadingParagraphMergesForward(t *testing.T) {
	body := strings.TrimSpace(strings.Repeat("Voucher 1001 is posted to account 4000. ", 10))
	doc := Document{Title: "Posting Guide", Text: "Example\n\n" + body}
	raw := []RawSegment{BareSegment("Example"), BareSegment(body)}

	res := NewPipeline(AutomaticProfile(), nil).Process(doc, raw)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, FilterReport{}, res.Report)
	assert.Equal(t, "Example\n\n"+body, res.Chunks[0].Content.Text)
}
