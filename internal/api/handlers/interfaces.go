// Package handlers provides HTTP request handlers for the API.
package handlers

import (
	"context"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/ingest"
	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// ChunkService runs a chunking job.
type ChunkService interface {
	Chunk(ctx context.Context, job ingest.Job) (*ingest.JobResult, error)
}

// OutputStore defines the object storage operations used to serve run outputs.
type OutputStore interface {
	// Health checks storage connectivity.
	Health(ctx context.Context) error

	// List lists objects under prefix.
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)

	// GenerateSignedURL generates a presigned URL for downloading.
	GenerateSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// HealthChecker defines an interface for components that can report health.
type HealthChecker interface {
	Health(ctx context.Context) error
}
