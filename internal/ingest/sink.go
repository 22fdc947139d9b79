package ingest

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

// Sink receives each document's result as soon as it is produced.
type Sink interface {
	Deliver(ctx context.Context, res DocumentResult) error
}

// Collector drains a result sequence into a flat chunk list and run statistics.
type Collector struct {
	Sinks  []Sink
	Logger *slog.Logger
	// OnResult is called after each document, e.g. to advance a progress bar.
	OnResult func(DocumentResult)
}

// Drain consumes seq. Sink failures are logged and do not stop the run.
func (c *Collector) Drain(ctx context.Context, seq iter.Seq[DocumentResult]) ([]chunker.Chunk, Stats) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	chunks := []chunker.Chunk{}
	var stats Stats

	for res := range seq {
		chunks = append(chunks, res.Chunks...)
		stats.Add(res)

		for _, sink := range c.Sinks {
			if err := sink.Deliver(ctx, res); err != nil {
				logger.Warn("sink delivery failed",
					"index", res.Index,
					"title", res.Document.Title,
					"error", err,
				)
			}
		}

		if c.OnResult != nil {
			c.OnResult(res)
		}
	}

	stats.Duration = time.Since(start)
	return chunks, stats
}
