package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// ErrInvalidJob is returned when a job names an unknown mode or profile or a bad budget.
var ErrInvalidJob = errors.New("invalid chunking job")

// RunSink is a Sink that is also told when the run is over.
type RunSink interface {
	Sink
	Complete(ctx context.Context, stats Stats, outputKey string) error
}

// RunSinkFactory builds the per-run sinks for a run.
type RunSinkFactory func(runID, profile, strategy string) RunSink

// Job describes one chunking request. Empty fields take the service defaults.
type Job struct {
	Documents []chunker.Document
	Mode      string
	Profile   string
	ChunkSize int
	Upload    bool
}

// JobResult is the outcome of a Job.
type JobResult struct {
	RunID     string          `json:"run_id"`
	Chunks    []chunker.Chunk `json:"chunks"`
	Stats     Stats           `json:"stats"`
	OutputKey string          `json:"output_key,omitempty"`
}

// ServiceConfig holds the defaults applied to every job.
type ServiceConfig struct {
	Mode      string
	Profile   chunker.Profile
	ChunkSize int
	Runner    RunnerConfig

	// VerifyFidelity and IncludeChunkCount override the preset of a profile named by a job.
	VerifyFidelity    *bool
	IncludeChunkCount *bool
}

// Service runs chunking jobs on behalf of the HTTP API.
type Service struct {
	config   ServiceConfig
	oracle   *segmenter.OracleClient
	store    storage.ObjectStorage
	runSinks RunSinkFactory
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithOracle enables the ai mode.
func WithOracle(oracle *segmenter.OracleClient) ServiceOption {
	return func(s *Service) { s.oracle = oracle }
}

// WithOutputStore enables uploading job output.
func WithOutputStore(store storage.ObjectStorage) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithRunSinks attaches per-run sinks, e.g. an event publisher.
func WithRunSinks(factory RunSinkFactory) ServiceOption {
	return func(s *Service) { s.runSinks = factory }
}

// NewService creates a Service.
func NewService(cfg ServiceConfig, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = segmenter.ModeRecursive
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = chunker.AutomaticProfile()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}

	s := &Service{
		config: cfg,
		logger: logger.With("component", "chunk_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chunk runs job to completion.
func (s *Service) Chunk(ctx context.Context, job Job) (*JobResult, error) {
	mode := job.Mode
	if mode == "" {
		mode = s.config.Mode
	}

	profile := s.config.Profile
	if job.Profile != "" {
		p, err := chunker.ProfileByName(job.Profile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
		if s.config.VerifyFidelity != nil {
			p.VerifyFidelity = *s.config.VerifyFidelity
		}
		if s.config.IncludeChunkCount != nil {
			p.IncludeChunkCount = *s.config.IncludeChunkCount
		}
		profile = p
	}

	budget := job.ChunkSize
	switch {
	case budget == 0:
		budget = s.config.ChunkSize
	case budget < 0:
		return nil, fmt.Errorf("%w: chunk_size must be positive", ErrInvalidJob)
	}

	if job.Upload && s.store == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrInvalidJob)
	}

	strategy, err := segmenter.New(mode, budget, s.oracle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	runID := uuid.New().String()
	logger := s.logger.With("run_id", runID)
	runner := NewRunner(strategy, chunker.NewPipeline(profile, logger), s.config.Runner, logger)

	collector := &Collector{Logger: logger}
	var runSink RunSink
	if s.runSinks != nil {
		runSink = s.runSinks(runID, profile.Name, strategy.Name())
		collector.Sinks = append(collector.Sinks, runSink)
	}

	chunks, stats := collector.Drain(ctx, runner.Results(ctx, job.Documents))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &JobResult{RunID: runID, Chunks: chunks, Stats: stats}

	if job.Upload {
		key, err := UploadOutput(ctx, s.store, storage.ChunkOutputPath(runID), chunks)
		if err != nil {
			return nil, err
		}
		result.OutputKey = key
	}

	if runSink != nil {
		if err := runSink.Complete(ctx, stats, result.OutputKey); err != nil {
			logger.Warn("failed to report run completion", "error", err)
		}
	}

	logger.Info("chunking job completed",
		"documents", stats.TotalDocuments,
		"chunks", stats.TotalChunks,
		"oracle_calls", stats.OracleCalls,
		"duration", stats.Duration,
	)
	return result, nil
}
