package segmenter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/llm"
)

// ErrNoChunks is returned when a reply carries no recognizable chunks array.
var ErrNoChunks = errors.New("reply contains no chunks array")

type chunksEnvelope struct {
	Chunks *[]json.RawMessage `json:"chunks"`
}

// ParseSegments recovers the chunks array from a model reply. The reply may be wrapped in code
// fences or prose; a bare array is accepted in place of the {"chunks": [...]} object.
func ParseSegments(content string) ([]chunker.RawSegment, error) {
	body := llm.StripCodeFences(content)

	if obj, ok := llm.ExtractJSONObject(body); ok {
		var env chunksEnvelope
		if err := json.Unmarshal([]byte(obj), &env); err == nil && env.Chunks != nil {
			return decodeItems(*env.Chunks), nil
		}
	}

	if arr, ok := llm.ExtractJSONArray(body); ok {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(arr), &items); err == nil {
			return decodeItems(items), nil
		}
	}

	return nil, fmt.Errorf("%w: no parseable JSON in %d bytes", ErrNoChunks, len(content))
}

// decodeItems keeps strings and objects and skips anything else.
func decodeItems(items []json.RawMessage) []chunker.RawSegment {
	segs := make([]chunker.RawSegment, 0, len(items))
	for _, item := range items {
		if string(item) == "null" {
			continue
		}
		var seg chunker.RawSegment
		if err := json.Unmarshal(item, &seg); err != nil {
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}
