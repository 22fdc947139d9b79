package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alqutdigital/doc-chunker/internal/app"
	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/internal/events"
	"github.com/alqutdigital/doc-chunker/internal/ingest"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
	"github.com/alqutdigital/doc-chunker/internal/storage"
	"github.com/alqutdigital/doc-chunker/pkg/logger"
	"github.com/alqutdigital/doc-chunker/pkg/shutdown"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	InputFile         string
	InputObject       string
	OutputFile        string
	Mode              string
	Profile           string
	ChunkSize         int
	Delay             time.Duration
	VerifyFidelity    bool
	IncludeChunkCount bool
	ExactTokens       bool
	Upload            bool
	Publish           bool
	NoProgress        bool
}

func newRunCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Chunk a batch of documents",
		Long:  "Segment, validate and assemble chunks for every document in a JSON input file.",
		Example: `  # Size-based chunking of a scraped batch
  chunker run --input=scraped.json --output=chunks.json

  # Semantic segmentation for the supervised workflow
  chunker run --input=review.json --mode=ai --profile=supervised

  # Read input from object storage and upload the result
  chunker run --input-object=documents/batch-7.json --upload --output=-`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			applyRunFlags(cmd.Flags(), opts, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if opts.InputFile == "" && opts.InputObject == "" {
				return errors.New("one of --input or --input-object is required")
			}
			return runChunking(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input JSON file with a document or an array of documents ('-' for stdin)")
	cmd.Flags().StringVar(&opts.InputObject, "input-object", "", "Object storage key to read the input from")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "chunks.json", "Output JSON file ('-' for stdout)")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", segmenter.ModeRecursive, "Segmentation mode: 'recursive' or 'ai'")
	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", chunker.ProfileAutomatic, "Output profile: 'automatic' or 'supervised'")
	cmd.Flags().IntVarP(&opts.ChunkSize, "chunk-size", "s", chunker.DefaultChunkSize, "Token budget for size-based splitting")
	cmd.Flags().DurationVar(&opts.Delay, "delay", ingest.DefaultOracleCallDelay, "Pause after each document sent to the LLM")
	cmd.Flags().BoolVar(&opts.VerifyFidelity, "verify-fidelity", true, "Reject segments whose text is not found in the source document")
	cmd.Flags().BoolVar(&opts.IncludeChunkCount, "include-chunk-count", true, "Emit chunk_count on every chunk")
	cmd.Flags().BoolVar(&opts.ExactTokens, "exact-tokens", false, "Report exact cl100k_base token counts for the output")
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "Upload the output to object storage")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "Publish per-document events to NATS")
	cmd.Flags().BoolVar(&opts.NoProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

// applyRunFlags overrides configuration values with the flags set on the command line.
func applyRunFlags(flags *pflag.FlagSet, opts *RunOptions, cfg *config.Config) {
	if flags.Changed("mode") {
		cfg.Chunking.Mode = opts.Mode
	}
	if flags.Changed("profile") {
		cfg.Chunking.Profile = opts.Profile
	}
	if flags.Changed("chunk-size") {
		cfg.Chunking.ChunkSize = opts.ChunkSize
	}
	if flags.Changed("delay") {
		cfg.Chunking.OracleCallDelay = opts.Delay
	}
	if flags.Changed("verify-fidelity") {
		cfg.Chunking.VerifyFidelity = &opts.VerifyFidelity
	}
	if flags.Changed("include-chunk-count") {
		cfg.Chunking.IncludeChunkCount = &opts.IncludeChunkCount
	}
	if flags.Changed("exact-tokens") {
		cfg.Chunking.ExactTokens = opts.ExactTokens
	}
}

func runChunking(ctx context.Context, cfg *config.Config, opts *RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := shutdown.SignalContext(ctx)
	defer cancel()

	runID := uuid.New().String()
	log := newLogger(cfg).WithContext(logger.WithRunID(ctx, runID))

	log.Info("starting chunking run",
		"mode", cfg.Chunking.Mode,
		"profile", cfg.Chunking.Profile,
		"chunk_size", cfg.Chunking.ChunkSize,
		"input", opts.InputFile,
		"input_object", opts.InputObject,
	)

	components, err := app.Open(ctx, cfg, log.Logger, app.Options{
		Cache:         cfg.Chunking.Mode == segmenter.ModeAI,
		Storage:       opts.Upload || opts.InputObject != "",
		Events:        opts.Publish,
		RequireOracle: cfg.Chunking.Mode == segmenter.ModeAI,
	})
	if err != nil {
		return err
	}
	defer components.Close()

	if (opts.Upload || opts.InputObject != "") && components.Store == nil {
		return errors.New("object storage is required for --upload and --input-object; set STORAGE_ENDPOINT")
	}

	docs, err := loadInput(ctx, components, opts)
	if err != nil {
		return err
	}
	log.Info("loaded documents", "count", len(docs))

	strategy, err := components.Strategy(cfg.Chunking.Mode, cfg.Chunking.ChunkSize)
	if err != nil {
		return err
	}
	pipeline, err := components.Pipeline()
	if err != nil {
		return err
	}
	runner := ingest.NewRunner(strategy, pipeline, ingest.RunnerConfig{
		OracleCallDelay: cfg.Chunking.OracleCallDelay,
	}, log.Logger)

	collector := &ingest.Collector{Logger: log.Logger}

	var publisher *events.ChunkPublisher
	if opts.Publish {
		if components.NATS == nil {
			log.Warn("NATS is not available, events will not be published")
		} else {
			publisher = events.NewChunkPublisher(components.NATS, runID, pipeline.Profile().Name, strategy.Name())
			collector.Sinks = append(collector.Sinks, publisher)
		}
	}

	var bar *progressbar.ProgressBar
	if !opts.NoProgress {
		bar = newProgressBar(len(docs))
		collector.OnResult = func(ingest.DocumentResult) {
			_ = bar.Add(1)
		}
	}

	chunks, stats := collector.Drain(ctx, runner.Results(ctx, docs))
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	cancelled := ctx.Err() != nil
	if cancelled {
		log.Warn("run interrupted, writing partial output", "processed", stats.TotalDocuments, "total", len(docs))
	}

	if err := writeOutput(opts.OutputFile, chunks); err != nil {
		return err
	}

	var outputKey string
	if opts.Upload && !cancelled {
		outputKey, err = ingest.UploadOutput(ctx, components.Store, storage.ChunkOutputPath(runID), chunks)
		if err != nil {
			return err
		}
		log.Info("uploaded output", "key", outputKey)
	}

	if publisher != nil && !cancelled {
		if err := publisher.Complete(ctx, stats, outputKey); err != nil {
			log.WithError(err).Warn("failed to publish run completion")
		}
	}

	printStats(os.Stderr, runID, stats, exactTokenCount(cfg, chunks, log))

	if cancelled {
		return context.Canceled
	}
	return nil
}

func loadInput(ctx context.Context, components *app.Components, opts *RunOptions) ([]chunker.Document, error) {
	if opts.InputObject != "" {
		return ingest.DownloadDocuments(ctx, components.Store, opts.InputObject)
	}
	if opts.InputFile == "-" {
		return ingest.LoadDocuments(os.Stdin)
	}

	f, err := os.Open(opts.InputFile)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ingest.LoadDocuments(f)
}

func writeOutput(path string, chunks []chunker.Chunk) error {
	if path == "-" {
		return ingest.WriteChunks(os.Stdout, chunks)
	}
	return ingest.WriteChunksFile(path, chunks)
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Chunking documents"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// exactTokenCount returns -1 when exact counting is off or unavailable.
func exactTokenCount(cfg *config.Config, chunks []chunker.Chunk, log *logger.Logger) int {
	if !cfg.Chunking.ExactTokens {
		return -1
	}
	counter, err := chunker.NewTiktokenCounter("")
	if err != nil {
		log.WithError(err).Warn("exact token counting unavailable")
		return -1
	}
	total := 0
	for _, c := range chunks {
		total += counter.Count(c.Content.Text)
	}
	return total
}

// printStats prints final run statistics.
func printStats(w io.Writer, runID string, stats ingest.Stats, exactTokens int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Chunking Statistics ===")
	fmt.Fprintf(w, "Run ID:              %s\n", runID)
	fmt.Fprintf(w, "Duration:            %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Documents:           %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "Original Tokens:     %d\n", stats.TotalOriginalTokens)
	fmt.Fprintf(w, "Chunks Created:      %d\n", stats.TotalChunks)
	fmt.Fprintf(w, "Avg Chunk Tokens:    %.1f\n", stats.AverageChunkTokens())
	if exactTokens >= 0 {
		fmt.Fprintf(w, "Exact Tokens:        %d (cl100k_base)\n", exactTokens)
	}
	fmt.Fprintf(w, "LLM Calls:           %d\n", stats.OracleCalls)
	fmt.Fprintf(w, "Rejected:            %d (boilerplate %d, too short %d, hallucinated %d)\n",
		stats.Rejected.Total(), stats.Rejected.Boilerplate, stats.Rejected.TooShort, stats.Rejected.Hallucinated)
	fmt.Fprintf(w, "Failed Documents:    %d\n", stats.FailedDocuments)
	fmt.Fprintln(w, "===========================")
}
