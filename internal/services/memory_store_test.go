package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-ranker/internal/models"
)

func chunkAt(index int, vector ...float32) models.Chunk {
	return models.Chunk{ChunkIndex: index, Embedding: vector}
}

func TestMemoryStore_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "s1", "alice", []models.Chunk{chunkAt(0, 1, 0)}))
	require.NoError(t, store.Upsert(ctx, "s2", "bob", []models.Chunk{chunkAt(0, 1, 0)}))

	matches, err := store.Query(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alice", matches[0].CandidateID)

	matches, err = store.Query(ctx, "unknown", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	chunks := []models.Chunk{chunkAt(0, 1, 0), chunkAt(1, 0, 1)}
	require.NoError(t, store.Upsert(ctx, "s1", "alice", chunks))
	require.NoError(t, store.Upsert(ctx, "s1", "alice", chunks))

	matches, err := store.Query(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].ChunkIndex)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.InDelta(t, 0.0, matches[1].Similarity, 1e-6)
}

func TestMemoryStore_TieBrokenByRecency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "s1", "first", []models.Chunk{chunkAt(0, 1, 1)}))
	require.NoError(t, store.Upsert(ctx, "s1", "second", []models.Chunk{chunkAt(0, 1, 1)}))

	matches, err := store.Query(ctx, "s1", []float32{1, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, []string{"second", "first"}, []string{matches[0].CandidateID, matches[1].CandidateID})
}

func TestMemoryStore_TopK(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "s1", "alice", []models.Chunk{chunkAt(0, 1, 0), chunkAt(1, 1, 1), chunkAt(2, 0, 1)}))

	matches, err := store.Query(ctx, "s1", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].ChunkIndex)
	assert.Equal(t, 1, matches[1].ChunkIndex)

	_, err = store.Query(ctx, "s1", []float32{1, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMemoryStore_Purge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "s1", "alice", []models.Chunk{chunkAt(0, 1, 0)}))
	require.NoError(t, store.Purge(ctx, "s1"))
	require.NoError(t, store.Purge(ctx, "never-created"))

	matches, err := store.Query(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()

	err := store.Upsert(ctx, "s1", "alice", []models.Chunk{chunkAt(0, 1, 0)})
	assert.ErrorIs(t, err, ErrVectorStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Query(ctx, "s1", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrVectorStoreUnavailable)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), cosine([]float32{0, 0}, []float32{1, 2}))
}
