package handlers

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// SignedURLExpiry is the default expiration time for signed URLs.
const SignedURLExpiry = 1 * time.Hour

// OutputSummary describes one stored run output.
type OutputSummary struct {
	RunID        string    `json:"run_id"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ListOutputsResponse is returned by ListOutputs.
type ListOutputsResponse struct {
	Outputs []OutputSummary `json:"outputs"`
	Total   int             `json:"total"`
}

// ListOutputs returns a handler listing uploaded run outputs, newest first.
// GET /api/v1/outputs
func ListOutputs(store OutputStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			logger.Warn("storage not available")
			RespondServiceUnavailable(w, "Storage service not available")
			return
		}

		objects, err := store.List(r.Context(), storage.PathChunks+"/")
		if err != nil {
			logger.Error("failed to list outputs", "error", err)
			RespondInternalError(w, "Failed to list outputs")
			return
		}

		outputs := make([]OutputSummary, 0, len(objects))
		for _, obj := range objects {
			outputs = append(outputs, OutputSummary{
				RunID:        runIDFromKey(obj.Key),
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		sort.Slice(outputs, func(i, j int) bool {
			return outputs[i].LastModified.After(outputs[j].LastModified)
		})

		RespondJSON(w, http.StatusOK, ListOutputsResponse{Outputs: outputs, Total: len(outputs)})
	}
}

// HandleOutputDownload returns a handler that redirects to a signed URL for a run's output.
// GET /api/v1/outputs/{runID}
func HandleOutputDownload(store OutputStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		runID := chi.URLParam(r, "runID")
		if _, err := uuid.Parse(runID); err != nil {
			logger.Warn("invalid run ID", "run_id", runID, "error", err)
			RespondBadRequest(w, "Invalid run ID")
			return
		}

		if store == nil {
			logger.Warn("storage not available")
			RespondServiceUnavailable(w, "Storage service not available")
			return
		}

		key := storage.ChunkOutputPath(runID)
		exists, err := store.Exists(ctx, key)
		if err != nil {
			logger.Error("failed to check output existence", "key", key, "error", err)
			RespondInternalError(w, "Failed to verify output")
			return
		}
		if !exists {
			RespondNotFound(w, "Output not found")
			return
		}

		signedURL, err := store.GenerateSignedURL(ctx, key, SignedURLExpiry)
		if err != nil {
			logger.Error("failed to generate signed URL", "key", key, "error", err)
			RespondInternalError(w, "Failed to generate download URL")
			return
		}

		logger.Info("output download initiated", "run_id", runID, "key", key)
		http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
	}
}

func runIDFromKey(key string) string {
	name := key[strings.LastIndex(key, "/")+1:]
	return strings.TrimSuffix(name, ".json")
}
