// Package chunker turns raw document text into normalized, size-bounded chunks for RAG indexing.
//
// The stages are independent functions (split, normalize, filter, merge, title, assemble) so each
// can be tested on its own; Pipeline wires the post-segmentation stages together.
package chunker

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Defaults applied when a document or segment carries no value of its own.
const (
	UntitledSection  = "Untitled Section"
	UntitledDocument = "Untitled Document"
	UnknownDocument  = "unknown"
)

// Chunk types understood by the segmentation prompt. The set is open; unknown values pass through.
const (
	ChunkTypeConcept   = "concept"
	ChunkTypeProcedure = "procedure"
	ChunkTypeExample   = "example"
	ChunkTypeReference = "reference"
)

// Document is one input record. Unrecognized JSON fields are ignored.
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	File  string `json:"file"`
	URL   string `json:"url"`
}

// DocumentMeta holds the provenance fields of a document without its text.
type DocumentMeta struct {
	Title string `json:"title"`
	File  string `json:"file"`
	URL   string `json:"url"`
}

// Meta returns the provenance fields of the document.
func (d Document) Meta() DocumentMeta {
	return DocumentMeta{Title: d.Title, File: d.File, URL: d.URL}
}

// RawSegment is a segment as produced by a segmentation strategy: either a bare text span or a
// partially structured record from the semantic segmenter.
type RawSegment struct {
	Text      string
	Title     *string
	ChunkType *string
	Programs  []string
	Topics    []string
	Bare      bool
}

// BareSegment wraps a plain text span.
func BareSegment(text string) RawSegment {
	return RawSegment{Text: text, Bare: true}
}

// TypedSegment builds a minimally typed record.
func TypedSegment(text, title, chunkType string) RawSegment {
	return RawSegment{Text: text, Title: &title, ChunkType: &chunkType}
}

// UnmarshalJSON accepts either a JSON string (bare span) or an object. Object fields with an
// unexpected JSON type are treated as absent rather than failing the whole payload.
func (s *RawSegment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("decode bare segment: %w", err)
		}
		*s = BareSegment(text)
		return nil
	}

	var rec map[string]json.RawMessage
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode segment record: %w", err)
	}

	*s = RawSegment{
		Text:      stringField(rec["text"]),
		Title:     optionalStringField(rec["title"]),
		ChunkType: optionalStringField(rec["chunk_type"]),
		Programs:  stringListField(rec["programs"]),
		Topics:    stringListField(rec["topics"]),
	}
	return nil
}

// MarshalJSON writes bare spans as strings and records as objects, the inverse of UnmarshalJSON.
func (s RawSegment) MarshalJSON() ([]byte, error) {
	if s.Bare {
		return json.Marshal(s.Text)
	}
	rec := struct {
		Text      string   `json:"text"`
		Title     *string  `json:"title,omitempty"`
		ChunkType *string  `json:"chunk_type,omitempty"`
		Programs  []string `json:"programs,omitempty"`
		Topics    []string `json:"topics,omitempty"`
	}{s.Text, s.Title, s.ChunkType, s.Programs, s.Topics}
	return json.Marshal(rec)
}

func stringField(raw json.RawMessage) string {
	if p := optionalStringField(raw); p != nil {
		return *p
	}
	return ""
}

func optionalStringField(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// stringListField reads an array of strings, skipping non-string items. A single string is
// promoted to a one-element list.
func stringListField(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	if single := optionalStringField(raw); single != nil {
		return []string{*single}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := optionalStringField(item); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// NormalizedSegment is a RawSegment with every field populated.
type NormalizedSegment struct {
	Text      string   `json:"text"`
	Title     string   `json:"title"`
	ChunkType string   `json:"chunk_type"`
	Programs  []string `json:"programs"`
	Topics    []string `json:"topics"`
}

// Raw converts the segment back into a structured RawSegment.
func (s NormalizedSegment) Raw() RawSegment {
	title, chunkType := s.Title, s.ChunkType
	return RawSegment{
		Text:      s.Text,
		Title:     &title,
		ChunkType: &chunkType,
		Programs:  append([]string(nil), s.Programs...),
		Topics:    append([]string(nil), s.Topics...),
	}
}

// Chunk is the final, immutable output record.
type Chunk struct {
	ID               string       `json:"id"`
	Bucket           string       `json:"bucket"`
	ChunkType        string       `json:"chunk_type"`
	Title            string       `json:"title"`
	OriginalDocTitle string       `json:"original_doc_title"`
	Source           ChunkSource  `json:"source"`
	Content          ChunkContent `json:"content"`
	Tags             ChunkTags    `json:"tags"`
	ChunkIndex       int          `json:"chunk_index"`
	ChunkCount       *int         `json:"chunk_count,omitempty"`
	ChunkTokens      int          `json:"chunk_tokens"`
}

// ChunkSource records where a chunk came from.
type ChunkSource struct {
	DocumentID string `json:"document_id"`
	Section    string `json:"section"`
	Version    string `json:"version"`
	URL        string `json:"url"`
}

// ChunkContent holds the chunk text. Steps is reserved and always empty.
type ChunkContent struct {
	Text  string   `json:"text"`
	Steps []string `json:"steps"`
}

// ChunkTags holds classification tags.
type ChunkTags struct {
	Module      []string `json:"module"`
	Programs    []string `json:"programs"`
	Topics      []string `json:"topics"`
	ClientScope string   `json:"client_scope"`
	Confidence  string   `json:"confidence"`
}
