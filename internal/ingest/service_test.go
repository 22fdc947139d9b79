package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// MockRunSink implements RunSink for testing.
type MockRunSink struct {
	MockSink
	runID       string
	profile     string
	strategy    string
	completed   bool
	outputKey   string
	completeErr error
}

func (m *MockRunSink) Complete(ctx context.Context, stats Stats, outputKey string) error {
	m.completed = true
	m.outputKey = outputKey
	return m.completeErr
}

func taxSetupDoc() chunker.Document {
	return chunker.Document{
		Title: "Tax Setup",
		Text:  "Overview\nShort intro.\n\nFollow these steps\n1. Do X\n2. Do Y\n\nRelated topics\nSee also here.",
	}
}

func TestService_ChunkDefaults(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil)

	result, err := svc.Chunk(context.Background(), Job{Documents: []chunker.Document{taxSetupDoc()}})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "official", result.Chunks[0].Bucket)
	require.NotNil(t, result.Chunks[0].ChunkCount)
	assert.Equal(t, 2, result.Stats.TotalChunks)
	assert.Empty(t, result.OutputKey)
}

func TestService_JobProfileOverridesDefault(t *testing.T) {
	svc := NewService(ServiceConfig{Profile: chunker.AutomaticProfile()}, nil)

	result, err := svc.Chunk(context.Background(), Job{
		Documents: []chunker.Document{taxSetupDoc()},
		Profile:   chunker.ProfileSupervised,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, "manual_ai", result.Chunks[0].Bucket)
	assert.Nil(t, result.Chunks[0].ChunkCount)
}

func TestService_ConfigTogglesApplyToJobProfile(t *testing.T) {
	includeCount, verify := true, true
	svc := NewService(ServiceConfig{
		Profile:           chunker.AutomaticProfile(),
		VerifyFidelity:    &verify,
		IncludeChunkCount: &includeCount,
	}, nil)

	result, err := svc.Chunk(context.Background(), Job{
		Documents: []chunker.Document{taxSetupDoc()},
		Profile:   chunker.ProfileSupervised,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, "manual_ai", result.Chunks[0].Bucket)
	require.NotNil(t, result.Chunks[0].ChunkCount)
	assert.Equal(t, len(result.Chunks), *result.Chunks[0].ChunkCount)
}

func TestService_InvalidJobs(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil)
	docs := []chunker.Document{taxSetupDoc()}

	tests := []struct {
		name string
		job  Job
	}{
		{name: "unknown mode", job: Job{Documents: docs, Mode: "semantic"}},
		{name: "ai without oracle", job: Job{Documents: docs, Mode: segmenter.ModeAI}},
		{name: "unknown profile", job: Job{Documents: docs, Profile: "strict"}},
		{name: "negative budget", job: Job{Documents: docs, ChunkSize: -1}},
		{name: "upload without store", job: Job{Documents: docs, Upload: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Chunk(context.Background(), tt.job)
			assert.ErrorIs(t, err, ErrInvalidJob)
		})
	}
}

func TestService_UploadAndRunSinks(t *testing.T) {
	store := NewMockObjectStorage()
	var sink *MockRunSink
	svc := NewService(ServiceConfig{}, nil,
		WithOutputStore(store),
		WithRunSinks(func(runID, profile, strategy string) RunSink {
			sink = &MockRunSink{runID: runID, profile: profile, strategy: strategy}
			return sink
		}),
	)

	result, err := svc.Chunk(context.Background(), Job{
		Documents: []chunker.Document{taxSetupDoc(), taxSetupDoc()},
		Upload:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, storage.ChunkOutputPath(result.RunID), result.OutputKey)
	assert.Contains(t, store.objects, result.OutputKey)

	require.NotNil(t, sink)
	assert.Equal(t, result.RunID, sink.runID)
	assert.Equal(t, chunker.ProfileAutomatic, sink.profile)
	assert.Equal(t, segmenter.ModeRecursive, sink.strategy)
	assert.Equal(t, []int{0, 1}, sink.delivered)
	assert.True(t, sink.completed)
	assert.Equal(t, result.OutputKey, sink.outputKey)
}

func TestService_CompletionFailureIsNotFatal(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil, WithRunSinks(func(string, string, string) RunSink {
		return &MockRunSink{completeErr: errors.New("no responders")}
	}))

	_, err := svc.Chunk(context.Background(), Job{Documents: []chunker.Document{taxSetupDoc()}})
	assert.NoError(t, err)
}

func TestService_UploadFailure(t *testing.T) {
	store := NewMockObjectStorage()
	store.uploadErr = errors.New("bucket missing")
	svc := NewService(ServiceConfig{}, nil, WithOutputStore(store))

	_, err := svc.Chunk(context.Background(), Job{Documents: []chunker.Document{taxSetupDoc()}, Upload: true})
	assert.ErrorContains(t, err, "bucket missing")
}

func TestService_Cancelled(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Chunk(ctx, Job{Documents: []chunker.Document{taxSetupDoc()}})
	assert.ErrorIs(t, err, context.Canceled)
}
