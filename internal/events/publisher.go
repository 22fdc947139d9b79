package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/ingest"
)

// Publisher sends an event to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

// ChunksProducedEvent is published once per processed document.
type ChunksProducedEvent struct {
	EventID       string               `json:"event_id"`
	RunID         string               `json:"run_id"`
	DocumentIndex int                  `json:"document_index"`
	DocumentTitle string               `json:"document_title"`
	DocumentFile  string               `json:"document_file"`
	DocumentURL   string               `json:"document_url"`
	Profile       string               `json:"profile"`
	Strategy      string               `json:"strategy"`
	ChunkCount    int                  `json:"chunk_count"`
	Chunks        []chunker.Chunk      `json:"chunks"`
	Rejected      chunker.FilterReport `json:"rejected"`
	Error         string               `json:"error,omitempty"`
	ProducedAt    time.Time            `json:"produced_at"`
}

// Validate checks if the event has required fields.
func (e *ChunksProducedEvent) Validate() error {
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.RunID == "" {
		return errors.New("run_id is required")
	}
	return nil
}

// RunCompletedEvent is published after the last document of a run.
type RunCompletedEvent struct {
	EventID     string       `json:"event_id"`
	RunID       string       `json:"run_id"`
	Stats       ingest.Stats `json:"stats"`
	OutputKey   string       `json:"output_key,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}

// ChunkPublisher is an ingest.Sink that publishes every document result.
type ChunkPublisher struct {
	publisher Publisher
	runID     string
	profile   string
	strategy  string
}

// NewChunkPublisher creates a sink that tags events with runID, profile and strategy names.
func NewChunkPublisher(publisher Publisher, runID, profile, strategy string) *ChunkPublisher {
	return &ChunkPublisher{
		publisher: publisher,
		runID:     runID,
		profile:   profile,
		strategy:  strategy,
	}
}

// Deliver publishes res on SubjectChunksProduced.
func (p *ChunkPublisher) Deliver(ctx context.Context, res ingest.DocumentResult) error {
	event := ChunksProducedEvent{
		EventID:       uuid.New().String(),
		RunID:         p.runID,
		DocumentIndex: res.Index,
		DocumentTitle: res.Document.Title,
		DocumentFile:  res.Document.File,
		DocumentURL:   res.Document.URL,
		Profile:       p.profile,
		Strategy:      p.strategy,
		ChunkCount:    len(res.Chunks),
		Chunks:        res.Chunks,
		Rejected:      res.Report,
		ProducedAt:    time.Now().UTC(),
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}
	if err := event.Validate(); err != nil {
		return err
	}
	return p.publisher.Publish(ctx, SubjectChunksProduced, event)
}

// Complete publishes the run summary on SubjectRunCompleted.
func (p *ChunkPublisher) Complete(ctx context.Context, stats ingest.Stats, outputKey string) error {
	return p.publisher.Publish(ctx, SubjectRunCompleted, RunCompletedEvent{
		EventID:     uuid.New().String(),
		RunID:       p.runID,
		Stats:       stats,
		OutputKey:   outputKey,
		CompletedAt: time.Now().UTC(),
	})
}
