package ingest

import (
	"time"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

// Stats summarizes a run.
type Stats struct {
	TotalDocuments      int                  `json:"total_documents"`
	TotalOriginalTokens int                  `json:"total_original_tokens"`
	TotalChunks         int                  `json:"total_chunks"`
	TotalChunkTokens    int                  `json:"total_chunk_tokens"`
	OracleCalls         int                  `json:"oracle_calls"`
	FailedDocuments     int                  `json:"failed_documents"`
	Rejected            chunker.FilterReport `json:"rejected"`
	Duration            time.Duration        `json:"duration_ns"`
}

// Add accumulates one document result.
func (s *Stats) Add(res DocumentResult) {
	s.TotalDocuments++
	s.TotalOriginalTokens += res.OriginalTokens
	s.TotalChunks += len(res.Chunks)
	for _, c := range res.Chunks {
		s.TotalChunkTokens += c.ChunkTokens
	}
	if res.CalledOracle {
		s.OracleCalls++
	}
	if res.Err != nil {
		s.FailedDocuments++
	}
	s.Rejected.Add(res.Report)
}

// AverageChunkTokens returns the mean estimated size of a chunk.
func (s Stats) AverageChunkTokens() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(s.TotalChunkTokens) / float64(s.TotalChunks)
}
