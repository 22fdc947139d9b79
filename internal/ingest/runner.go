package ingest

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
)

// DefaultOracleCallDelay is the pause after a document that was sent to the oracle.
const DefaultOracleCallDelay = time.Second

// DocumentResult is the outcome of one document.
type DocumentResult struct {
	Index          int
	Document       chunker.Document
	Chunks         []chunker.Chunk
	Report         chunker.FilterReport
	OriginalTokens int
	CalledOracle   bool
	Err            error
}

// RunnerConfig holds runner tunables.
type RunnerConfig struct {
	OracleCallDelay time.Duration
}

// Runner processes documents one at a time with a single strategy and pipeline.
type Runner struct {
	strategy segmenter.Strategy
	pipeline *chunker.Pipeline
	config   RunnerConfig
	logger   *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(strategy segmenter.Strategy, pipeline *chunker.Pipeline, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		strategy: strategy,
		pipeline: pipeline,
		config:   cfg,
		logger:   logger.With("component", "runner", "strategy", strategy.Name(), "profile", pipeline.Profile().Name),
	}
}

// Results yields one result per document, in input order. Cancellation is observed between
// documents: the document in flight completes, the next one is not started.
func (r *Runner) Results(ctx context.Context, docs []chunker.Document) iter.Seq[DocumentResult] {
	return func(yield func(DocumentResult) bool) {
		for i, doc := range docs {
			if ctx.Err() != nil {
				r.logger.Info("run cancelled", "processed", i, "total", len(docs))
				return
			}

			res := r.process(ctx, i, doc)
			if !yield(res) {
				return
			}

			if res.CalledOracle && i < len(docs)-1 && r.config.OracleCallDelay > 0 {
				select {
				case <-ctx.Done():
					r.logger.Info("run cancelled", "processed", i+1, "total", len(docs))
					return
				case <-time.After(r.config.OracleCallDelay):
				}
			}
		}
	}
}

func (r *Runner) process(ctx context.Context, index int, doc chunker.Document) (res DocumentResult) {
	res = DocumentResult{
		Index:          index,
		Document:       doc,
		OriginalTokens: chunker.EstimateTokens(doc.Text),
		Chunks:         []chunker.Chunk{},
	}

	defer func() {
		if rec := recover(); rec != nil {
			res.Chunks = []chunker.Chunk{}
			res.Err = fmt.Errorf("document %d panicked: %v", index, rec)
			r.logger.Error("document processing failed",
				"index", index,
				"title", doc.Title,
				"error", res.Err,
			)
		}
	}()

	// The document in flight finishes even when ctx is cancelled; the provider's own timeout
	// bounds the call.
	outcome := r.strategy.Segment(context.WithoutCancel(ctx), doc)
	res.CalledOracle = outcome.CalledOracle

	processed := r.pipeline.Process(doc, outcome.Segments)
	res.Chunks = processed.Chunks
	res.Report = processed.Report

	r.logger.Debug("document processed",
		"index", index,
		"title", doc.Title,
		"segments", len(outcome.Segments),
		"chunks", len(res.Chunks),
		"rejected", res.Report.Total(),
	)
	return res
}
