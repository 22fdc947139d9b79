// Package app opens the optional backing services named in the configuration and builds the
// chunking components on top of them. Unreachable services are logged and left disabled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/api/handlers"
	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/internal/events"
	"github.com/alqutdigital/doc-chunker/internal/ingest"
	"github.com/alqutdigital/doc-chunker/internal/llm"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// Components holds the opened services. Any field may be nil when not configured or unreachable.
type Components struct {
	Redis  *storage.RedisClientWrapper
	Cache  *storage.SegmentCache
	Store  *storage.MinIOStorage
	NATS   *events.NATSClient
	Oracle *segmenter.OracleClient

	config *config.Config
	logger *slog.Logger
}

// Options selects which services Open connects to.
type Options struct {
	Cache   bool
	Storage bool
	Events  bool
	// Oracle builds the LLM client. With RequireOracle a failure is returned instead of logged.
	Oracle        bool
	RequireOracle bool
}

// Open connects the services selected by opts.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{config: cfg, logger: logger}

	if opts.Cache && cfg.Redis.Enabled() {
		c.openCache(ctx)
	}
	if opts.Storage && cfg.Storage.Enabled() {
		c.openStorage(ctx)
	}
	if opts.Events && cfg.NATS.Enabled() {
		c.openNATS(ctx)
	}
	if opts.Oracle || opts.RequireOracle {
		if err := c.openOracle(); err != nil {
			if opts.RequireOracle {
				c.Close()
				return nil, err
			}
			logger.Warn("LLM provider unavailable, ai mode disabled", "error", err)
		}
	}

	return c, nil
}

func (c *Components) openCache(ctx context.Context) {
	cfg := c.config.Redis
	client, err := storage.NewRedisClient(ctx, storage.RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		c.logger.Warn("failed to connect to Redis, segment cache disabled", "error", err)
		return
	}

	cacheCfg := storage.DefaultCacheConfig()
	if cfg.CacheTTL > 0 {
		cacheCfg.TTL = cfg.CacheTTL
	}
	c.Redis = client
	c.Cache = storage.NewSegmentCache(ctx, client, c.logger, cacheCfg)
	c.logger.Info("connected to Redis", "host", cfg.Host, "db", cfg.DB)
}

func (c *Components) openStorage(ctx context.Context) {
	cfg := c.config.Storage
	store, err := storage.NewMinIOStorage(storage.MinIOConfig{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		BucketName:      cfg.BucketName,
		UseSSL:          cfg.UseSSL,
		Region:          cfg.Region,
	})
	if err != nil {
		c.logger.Warn("failed to connect to object storage, uploads disabled", "error", err)
		return
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.InitBucket(initCtx); err != nil {
		c.logger.Warn("failed to initialize storage bucket", "error", err)
	}

	c.Store = store
	c.logger.Info("connected to object storage", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)
}

func (c *Components) openNATS(ctx context.Context) {
	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL = c.config.NATS.URL
	if c.config.NATS.ClientName != "" {
		natsCfg.ClientName = c.config.NATS.ClientName
	}

	client, err := events.NewNATSClient(natsCfg, c.logger)
	if err != nil {
		c.logger.Warn("failed to connect to NATS, event publishing disabled", "error", err)
		return
	}
	if err := client.SetupStreams(ctx); err != nil {
		c.logger.Warn("failed to set up chunk stream, event publishing disabled", "error", err)
		_ = client.Close()
		return
	}
	c.NATS = client
}

func (c *Components) openOracle() error {
	providerCfg := c.config.ProviderConfig()
	if err := llm.ValidateProviderConfig(providerCfg); err != nil {
		return err
	}

	provider, err := llm.NewProvider(providerCfg, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	profile, err := c.config.Profile()
	if err != nil {
		return err
	}

	var opts []segmenter.OracleOption
	if c.Cache != nil {
		opts = append(opts, segmenter.WithSegmentCache(c.Cache))
	}
	c.Oracle = segmenter.NewOracleClient(provider, segmenter.OracleConfig{
		TypedFallback:     profile.TypedFallback,
		RequestsPerMinute: c.config.LLM.RequestsPerMinute,
		MaxTokens:         c.config.LLM.MaxTokens,
		Temperature:       c.config.LLM.Temperature,
	}, c.logger, opts...)
	return nil
}

// Strategy returns the segmentation strategy for mode.
func (c *Components) Strategy(mode string, budget int) (segmenter.Strategy, error) {
	return segmenter.New(mode, budget, c.Oracle)
}

// Pipeline builds the pipeline for the configured profile.
func (c *Components) Pipeline() (*chunker.Pipeline, error) {
	profile, err := c.config.Profile()
	if err != nil {
		return nil, err
	}
	return chunker.NewPipeline(profile, c.logger), nil
}

// RunSinks returns a factory for per-run event publishers, or nil when NATS is disabled.
func (c *Components) RunSinks() ingest.RunSinkFactory {
	if c.NATS == nil {
		return nil
	}
	return func(runID, profile, strategy string) ingest.RunSink {
		return events.NewChunkPublisher(c.NATS, runID, profile, strategy)
	}
}

// Service builds the HTTP chunking service from the configuration defaults.
func (c *Components) Service() (*ingest.Service, error) {
	profile, err := c.config.Profile()
	if err != nil {
		return nil, err
	}

	opts := []ingest.ServiceOption{ingest.WithOracle(c.Oracle)}
	if c.Store != nil {
		opts = append(opts, ingest.WithOutputStore(c.Store))
	}
	if sinks := c.RunSinks(); sinks != nil {
		opts = append(opts, ingest.WithRunSinks(sinks))
	}

	return ingest.NewService(ingest.ServiceConfig{
		Mode:      c.config.Chunking.Mode,
		Profile:   profile,
		ChunkSize: c.config.Chunking.ChunkSize,
		Runner:    ingest.RunnerConfig{OracleCallDelay: c.config.Chunking.OracleCallDelay},

		VerifyFidelity:    c.config.Chunking.VerifyFidelity,
		IncludeChunkCount: c.config.Chunking.IncludeChunkCount,
	}, c.logger, opts...), nil
}

// HealthCheckers returns the readiness checks for every configured service. A configured but
// unreachable service is reported as unhealthy.
func (c *Components) HealthCheckers() map[string]handlers.HealthChecker {
	checkers := map[string]handlers.HealthChecker{}

	if c.config.Redis.Enabled() {
		checkers["redis"] = healthOrDown(c.Cache != nil, c.Cache, "redis")
	}
	if c.config.Storage.Enabled() {
		checkers["object_storage"] = healthOrDown(c.Store != nil, c.Store, "object storage")
	}
	if c.config.NATS.Enabled() {
		checkers["nats"] = healthOrDown(c.NATS != nil, c.NATS, "NATS")
	}
	return checkers
}

// Close releases every opened service.
func (c *Components) Close() error {
	var errs []error
	if c.NATS != nil {
		errs = append(errs, c.NATS.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	return errors.Join(errs...)
}

type downChecker string

func (d downChecker) Health(context.Context) error {
	return fmt.Errorf("%s connection failed at startup", string(d))
}

func healthOrDown(ok bool, checker handlers.HealthChecker, name string) handlers.HealthChecker {
	if ok {
		return checker
	}
	return downChecker(name)
}
