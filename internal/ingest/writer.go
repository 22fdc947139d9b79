package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// WriteChunks writes chunks to w as an indented JSON array.
func WriteChunks(w io.Writer, chunks []chunker.Chunk) error {
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	return nil
}

// WriteChunksFile writes chunks to path, replacing any existing file.
func WriteChunksFile(path string, chunks []chunker.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := WriteChunks(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// UploadOutput stores the chunk array under key and returns the stored object key.
func UploadOutput(ctx context.Context, store storage.ObjectStorage, key string, chunks []chunker.Chunk) (string, error) {
	var buf bytes.Buffer
	if err := WriteChunks(&buf, chunks); err != nil {
		return "", err
	}
	stored, err := store.UploadBytes(ctx, buf.Bytes(), key, "application/json")
	if err != nil {
		return "", fmt.Errorf("upload chunks: %w", err)
	}
	return stored, nil
}

// DownloadDocuments loads input documents from an object in store.
func DownloadDocuments(ctx context.Context, store storage.ObjectStorage, key string) ([]chunker.Document, error) {
	data, err := store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download documents: %w", err)
	}
	return ParseDocuments(data)
}
