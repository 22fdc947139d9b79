// Package ingest drives documents through segmentation and the chunk pipeline and moves the
// results in and out of files, object storage and event sinks.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

var (
	// ErrMalformedInput is returned for input that is not a JSON object or array of documents.
	ErrMalformedInput = errors.New("malformed input")
	// ErrEmptyInput is returned when the input holds no documents.
	ErrEmptyInput = errors.New("input contains no documents")
)

// LoadDocuments reads a JSON document or array of documents from r.
func LoadDocuments(r io.Reader) ([]chunker.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return ParseDocuments(data)
}

// ParseDocuments decodes a single document object or an array of them.
func ParseDocuments(data []byte) ([]chunker.Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	switch data[0] {
	case '{':
		var doc chunker.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		return []chunker.Document{doc}, nil

	case '[':
		var docs []chunker.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if len(docs) == 0 {
			return nil, ErrEmptyInput
		}
		return docs, nil

	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array", ErrMalformedInput)
	}
}
