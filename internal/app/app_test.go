package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/internal/ingest"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
)

func baseConfig() *config.Config {
	return &config.Config{
		Chunking: config.ChunkingConfig{
			ChunkSize: 512,
			Mode:      segmenter.ModeRecursive,
			Profile:   chunker.ProfileAutomatic,
		},
		LLM: config.LLMConfig{Provider: "openrouter"},
	}
}

func TestOpen_NothingConfigured(t *testing.T) {
	c, err := Open(context.Background(), baseConfig(), nil, Options{Cache: true, Storage: true, Events: true, Oracle: true})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Cache)
	assert.Nil(t, c.Store)
	assert.Nil(t, c.NATS)
	assert.Nil(t, c.Oracle)
	assert.Empty(t, c.HealthCheckers())
	assert.Nil(t, c.RunSinks())

	_, err = c.Strategy(segmenter.ModeAI, 512)
	assert.Error(t, err)
}

func TestOpen_RequireOracleWithoutKey(t *testing.T) {
	_, err := Open(context.Background(), baseConfig(), nil, Options{RequireOracle: true})
	assert.ErrorContains(t, err, "API key is required")
}

func TestOpen_LocalProviderNeedsNoKey(t *testing.T) {
	cfg := baseConfig()
	cfg.LLM.Provider = "ollama"

	c, err := Open(context.Background(), cfg, nil, Options{RequireOracle: true})
	require.NoError(t, err)
	require.NotNil(t, c.Oracle)

	strategy, err := c.Strategy(segmenter.ModeAI, 512)
	require.NoError(t, err)
	assert.Equal(t, segmenter.ModeAI, strategy.Name())
}

func TestOpen_UnreachableRedisReportsDown(t *testing.T) {
	cfg := baseConfig()
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	c, err := Open(context.Background(), cfg, nil, Options{Cache: true})
	require.NoError(t, err)
	assert.Nil(t, c.Cache)

	checkers := c.HealthCheckers()
	require.Contains(t, checkers, "redis")
	assert.Error(t, checkers["redis"].Health(context.Background()))
}

func TestComponents_ServiceUsesConfigDefaults(t *testing.T) {
	cfg := baseConfig()
	cfg.Chunking.Profile = chunker.ProfileSupervised
	no := false
	cfg.Chunking.IncludeChunkCount = &no

	c, err := Open(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)

	svc, err := c.Service()
	require.NoError(t, err)

	result, err := svc.Chunk(context.Background(), ingest.Job{Documents: []chunker.Document{{
		Title: "Tax Setup",
		Text:  "Overview\nShort intro.\n\nFollow these steps\n1. Do X\n2. Do Y",
	}}})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, "manual_ai", result.Chunks[0].Bucket)
	assert.Nil(t, result.Chunks[0].ChunkCount)
}

func TestComponents_Pipeline(t *testing.T) {
	c, err := Open(context.Background(), baseConfig(), nil, Options{})
	require.NoError(t, err)

	p, err := c.Pipeline()
	require.NoError(t, err)
	assert.Equal(t, chunker.ProfileAutomatic, p.Profile().Name)
}
