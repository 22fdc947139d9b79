package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alqutdigital/doc-chunker/internal/app"
	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/internal/ingest"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
)

func testConfig() *config.Config {
	return &config.Config{
		Chunking: config.ChunkingConfig{
			ChunkSize:       chunker.DefaultChunkSize,
			Mode:            segmenter.ModeRecursive,
			Profile:         chunker.ProfileAutomatic,
			OracleCallDelay: time.Second,
		},
		LLM: config.LLMConfig{Provider: "openrouter"},
		Log: config.LogConfig{Level: "error"},
	}
}

func TestApplyRunFlags_OnlyChangedFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--profile=supervised", "--verify-fidelity=false"}))

	cfg := testConfig()
	cfg.Chunking.ChunkSize = 256
	opts := &RunOptions{}
	opts.Profile = chunker.ProfileSupervised
	opts.VerifyFidelity = false
	opts.ChunkSize = 999

	applyRunFlags(cmd.Flags(), opts, cfg)

	assert.Equal(t, chunker.ProfileSupervised, cfg.Chunking.Profile)
	assert.Equal(t, 256, cfg.Chunking.ChunkSize)
	require.NotNil(t, cfg.Chunking.VerifyFidelity)
	assert.False(t, *cfg.Chunking.VerifyFidelity)
	assert.Nil(t, cfg.Chunking.IncludeChunkCount)
}

func TestSplitCmd_JSON(t *testing.T) {
	cmd := newSplitCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("First paragraph here.\n\nSecond paragraph here."))
	cmd.SetArgs([]string{"--json", "--chunk-size=8"})

	require.NoError(t, cmd.Execute())

	var pieces []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &pieces))
	assert.Equal(t, []string{"First paragraph here.\n\n", "Second paragraph here."}, pieces)
}

func TestSplitCmd_EmptyInputPrintsEmptyArray(t *testing.T) {
	cmd := newSplitCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--json"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "[]\n", out.String())
}

func TestSplitCmd_RejectsNonPositiveBudget(t *testing.T) {
	cmd := newSplitCmd()
	cmd.SetIn(strings.NewReader("text"))
	cmd.SetArgs([]string{"--chunk-size=0"})

	assert.Error(t, cmd.Execute())
}

func TestRunChunking_WritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.json")
	output := filepath.Join(dir, "chunks.json")
	require.NoError(t, os.WriteFile(input, []byte(`[
		{"title": "Tax Setup", "text": "Overview\nShort intro.\n\nFollow these steps\n1. Do X\n2. Do Y"},
		{"title": "Empty", "text": ""}
	]`), 0o644))

	err := runChunking(context.Background(), testConfig(), &RunOptions{
		InputFile:  input,
		OutputFile: output,
		NoProgress: true,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var chunks []chunker.Chunk
	require.NoError(t, json.Unmarshal(data, &chunks))
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Title, "[TS] Part "), c.Title)
		assert.Equal(t, "official", c.Bucket)
	}
}

func TestRunChunking_UploadRequiresStorage(t *testing.T) {
	err := runChunking(context.Background(), testConfig(), &RunOptions{
		InputFile:  "unused.json",
		OutputFile: "-",
		Upload:     true,
		NoProgress: true,
	})
	assert.ErrorContains(t, err, "STORAGE_ENDPOINT")
}

func TestPrintStats(t *testing.T) {
	out := &bytes.Buffer{}
	stats := ingest.Stats{TotalDocuments: 2, TotalChunks: 3, TotalChunkTokens: 30}
	stats.Rejected.Boilerplate = 1

	printStats(out, "run-1", stats, 42)

	assert.Contains(t, out.String(), "Run ID:              run-1")
	assert.Contains(t, out.String(), "Avg Chunk Tokens:    10.0")
	assert.Contains(t, out.String(), "Exact Tokens:        42 (cl100k_base)")
	assert.Contains(t, out.String(), "boilerplate 1")
}

func TestBuildStatus_NoServices(t *testing.T) {
	cfg := testConfig()
	components, err := app.Open(context.Background(), cfg, nil, app.Options{Cache: true, Storage: true, Events: true})
	require.NoError(t, err)

	report, err := buildStatus(context.Background(), cfg, components, &StatusOptions{Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, segmenter.ModeRecursive, report.Mode)
	assert.Empty(t, report.Services)
	assert.Nil(t, report.Cache)
	assert.Empty(t, report.Outputs)

	out := &bytes.Buffer{}
	printStatus(out, report)
	assert.Contains(t, out.String(), "none configured")
}
