package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/ingest"
)

// MaxRequestBytes caps the size of a chunk request body.
const MaxRequestBytes = 32 << 20

// ChunkRequestBody represents the incoming chunk request body. Documents holds a single document
// object or an array of them.
type ChunkRequestBody struct {
	Documents json.RawMessage `json:"documents"`
	Mode      string          `json:"mode,omitempty"`
	Profile   string          `json:"profile,omitempty"`
	ChunkSize int             `json:"chunk_size,omitempty"`
	Upload    bool            `json:"upload,omitempty"`
}

// ChunkResponse represents the chunk API response.
type ChunkResponse struct {
	RunID     string          `json:"run_id"`
	Chunks    []chunker.Chunk `json:"chunks"`
	Stats     ingest.Stats    `json:"stats"`
	OutputKey string          `json:"output_key,omitempty"`
}

// ValidateChunkRequest checks the fields that do not need decoding.
func ValidateChunkRequest(req *ChunkRequestBody) []FieldError {
	var errs []FieldError

	raw := bytes.TrimSpace(req.Documents)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		errs = append(errs, FieldError{Field: "documents", Message: "documents is required"})
	}
	if req.ChunkSize < 0 {
		errs = append(errs, FieldError{Field: "chunk_size", Message: "chunk_size must be positive"})
	}

	return errs
}

// HandleChunk returns a handler for chunking documents.
// POST /api/v1/chunk
//
// Request body:
//
//	{
//	  "documents": [{"title": "...", "text": "...", "file": "...", "url": "..."}],
//	  "mode": "recursive",
//	  "profile": "automatic",
//	  "chunk_size": 512
//	}
//
// Response:
//
//	{
//	  "run_id": "...",
//	  "chunks": [...],
//	  "stats": {...}
//	}
func HandleChunk(service ChunkService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ChunkRequestBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
			logger.Warn("failed to decode chunk request", "error", err)
			RespondBadRequest(w, "Invalid request body")
			return
		}

		if validationErrors := ValidateChunkRequest(&req); len(validationErrors) > 0 {
			logger.Warn("chunk request validation failed", "errors", validationErrors)
			RespondValidationError(w, validationErrors)
			return
		}

		docs, err := ingest.ParseDocuments(req.Documents)
		switch {
		case errors.Is(err, ingest.ErrEmptyInput):
			RespondValidationError(w, []FieldError{{Field: "documents", Message: "at least one document is required"}})
			return
		case err != nil:
			logger.Warn("malformed documents", "error", err)
			RespondBadRequest(w, "documents must be a document object or an array of documents")
			return
		}

		if service == nil {
			logger.Warn("chunk service not available")
			RespondServiceUnavailable(w, "Chunking service not available")
			return
		}

		logger.Info("processing chunk request",
			"documents", len(docs),
			"mode", req.Mode,
			"profile", req.Profile,
		)

		result, err := service.Chunk(ctx, ingest.Job{
			Documents: docs,
			Mode:      strings.TrimSpace(req.Mode),
			Profile:   strings.TrimSpace(req.Profile),
			ChunkSize: req.ChunkSize,
			Upload:    req.Upload,
		})
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidJob) {
				RespondValidationError(w, []FieldError{{Message: err.Error()}})
				return
			}
			if ctx.Err() != nil {
				logger.Warn("chunk request cancelled", "error", err)
				RespondServiceUnavailable(w, "Request cancelled before completion")
				return
			}
			logger.Error("failed to process chunk request", "error", err)
			RespondInternalError(w, "Failed to process documents. Please try again.")
			return
		}

		response := ChunkResponse{
			RunID:     result.RunID,
			Chunks:    result.Chunks,
			Stats:     result.Stats,
			OutputKey: result.OutputKey,
		}
		if response.Chunks == nil {
			response.Chunks = []chunker.Chunk{}
		}

		RespondJSON(w, http.StatusOK, response)
	}
}
